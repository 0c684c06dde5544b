package version

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/glasspane/glasspane/constant"
	"github.com/glasspane/glasspane/filesystem"
	"github.com/glasspane/glasspane/network"
	"github.com/glasspane/glasspane/util"
	"github.com/glasspane/glasspane/where"
	"github.com/metafates/gache"
)

// ReleasesAPI is the endpoint of the latest published release.
const ReleasesAPI = "https://api.github.com/repos/glasspane/glasspane/releases/latest"

var latestCache = gache.New[string](&gache.Options{
	Path:       filepath.Join(where.Cache(), "version.json"),
	Lifetime:   time.Hour * 24 * 2,
	FileSystem: &filesystem.GacheFs{},
})

// Latest returns the newest release version, cached for two days.
func Latest(ctx context.Context) (string, error) {
	cached, expired, err := latestCache.Get()
	if err == nil && !expired && cached != "" {
		return cached, nil
	}

	latest, err := fetchLatest(ctx, network.Client, ReleasesAPI)
	if err != nil {
		return "", err
	}
	_ = latestCache.Set(latest)
	return latest, nil
}

func fetchLatest(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", constant.UserAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer util.Ignore(resp.Body.Close)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("release lookup: %s", resp.Status)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", err
	}
	if release.TagName == "" {
		return "", errors.New("empty tag name")
	}
	return strings.TrimPrefix(release.TagName, "v"), nil
}
