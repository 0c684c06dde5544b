//go:build darwin || linux || freebsd

package dynlib

import (
	"github.com/ebitengine/purego"
)

type systemLoader struct{}

// SystemLoader returns the dlopen-backed loader of the running platform.
func SystemLoader() Loader {
	return systemLoader{}
}

// Open uses global visibility: plugin-internal modules resolve their own symbols against the process.
func (systemLoader) Open(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

func (systemLoader) Lookup(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

func (systemLoader) Close(handle uintptr) error {
	return purego.Dlclose(handle)
}
