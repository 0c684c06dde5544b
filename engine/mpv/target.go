package mpv

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

// target validates a source before it reaches loadfile. Anything starting with '-' would be
// parsed as an option, and only http(s) and file URLs are accepted.
func target(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", fmt.Errorf("empty URL")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", fmt.Errorf("invalid control characters in URL")
	}

	if strings.HasPrefix(l, "-") {
		return "", fmt.Errorf("url must not start with '-' (looks like a flag)")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l, nil
		case "file":
			return filepath.Clean(u.Path), nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	return filepath.Clean(l), nil
}

// headerFields renders headers as mpv's http-header-fields list. Keys are sorted so the
// option string is stable, and commas in values are escaped since they separate entries.
func headerFields(headers map[string]string) string {
	keys := lo.Keys(headers)
	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%s: %s", k, strings.ReplaceAll(headers[k], ",", "%2C"))
	}
	return b.String()
}
