// Package acquire downloads, verifies and installs native plugin bundles into the app-private cache.
package acquire

import (
	"errors"
	"fmt"
)

var (
	ErrDownloadFailed       = errors.New("download failed")
	ErrExtractFailed        = errors.New("extract failed")
	ErrBundleNotFound       = errors.New("bundle not found in archive")
	ErrPluginAssetsNotFound = errors.New("plugin assets not found in archive")
	ErrVerificationFailed   = errors.New("verification failed")
)

// ExtractError carries the archive tool's standard error.
type ExtractError struct {
	Archive string
	Detail  string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.Archive, e.Detail)
}

func (e *ExtractError) Is(target error) bool {
	return target == ErrExtractFailed
}

// VerificationError reports that the installed library failed its load-and-unload cycle.
type VerificationError struct {
	Detail string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verify plugin: %s", e.Detail)
}

func (e *VerificationError) Is(target error) bool {
	return target == ErrVerificationFailed
}
