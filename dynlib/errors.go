package dynlib

import (
	"errors"
	"fmt"
)

var (
	// ErrLoadFailed is matched by every LoadError.
	ErrLoadFailed = errors.New("load failed")
	// ErrSymbolMissing is matched by every SymbolMissingError.
	ErrSymbolMissing = errors.New("symbol missing")
)

// LoadError reports that the operating system refused to open a library.
type LoadError struct {
	Path   string
	Detail string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s", e.Path, e.Detail)
}

func (e *LoadError) Is(target error) bool {
	return target == ErrLoadFailed
}

// SymbolMissingError reports the first required entry point that could not be resolved.
type SymbolMissingError struct {
	Path string
	Name string
}

func (e *SymbolMissingError) Error() string {
	return fmt.Sprintf("load %s: symbol %s missing", e.Path, e.Name)
}

func (e *SymbolMissingError) Is(target error) bool {
	return target == ErrSymbolMissing
}
