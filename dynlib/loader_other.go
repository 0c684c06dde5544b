//go:build !darwin && !linux && !freebsd

package dynlib

import (
	"fmt"
	"runtime"
)

type systemLoader struct{}

// SystemLoader returns a loader that refuses every library: plugin backends are not offered on this platform.
func SystemLoader() Loader {
	return systemLoader{}
}

func (systemLoader) Open(path string) (uintptr, error) {
	return 0, fmt.Errorf("dynamic plugin loading is not supported on %s", runtime.GOOS)
}

func (systemLoader) Lookup(uintptr, string) (uintptr, error) {
	return 0, fmt.Errorf("dynamic plugin loading is not supported on %s", runtime.GOOS)
}

func (systemLoader) Close(uintptr) error {
	return nil
}
