package acquire

import (
	"context"
	"runtime"

	"github.com/glasspane/glasspane/constant"
)

// Quarantine clears the download-origin marker that would block the OS from loading a bundle.
type Quarantine interface {
	Clear(ctx context.Context, path string) error
}

// XattrQuarantine removes com.apple.quarantine recursively. It does nothing off macOS.
type XattrQuarantine struct {
	Runner Runner
}

func (q XattrQuarantine) Clear(ctx context.Context, path string) error {
	if runtime.GOOS != constant.Darwin {
		return nil
	}
	_, err := q.Runner.Run(ctx, "xattr", "-dr", "com.apple.quarantine", path)
	return err
}
