package acquire

import (
	"context"
	"runtime"
	"strings"

	"github.com/glasspane/glasspane/constant"
)

// Extractor unpacks an archive into an existing directory.
type Extractor interface {
	Extract(ctx context.Context, archive, dest string) error
}

// CommandExtractor shells out to the platform's archive tool.
type CommandExtractor struct {
	Runner Runner
}

func (e CommandExtractor) Extract(ctx context.Context, archive, dest string) error {
	name, args := extractCommand(runtime.GOOS, archive, dest)
	if _, err := e.Runner.Run(ctx, name, args...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ExtractError{Archive: archive, Detail: stderrOf(err)}
	}
	return nil
}

func extractCommand(goos, archive, dest string) (string, []string) {
	if strings.HasSuffix(strings.ToLower(archive), ".zip") {
		if goos == constant.Darwin {
			// ditto keeps symlinks and extended attributes that framework bundles rely on
			return "ditto", []string{"-x", "-k", archive, dest}
		}
		return "unzip", []string{"-q", "-o", archive, "-d", dest}
	}
	return "tar", []string{"-xf", archive, "-C", dest}
}

// archiveExt keeps the compound extension of a URL so the extractor can pick its tool.
func archiveExt(url string) string {
	lower := strings.ToLower(url)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	for _, ext := range []string{".tar.gz", ".tar.xz", ".tar.bz2", ".tgz", ".zip"} {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ".zip"
}
