//go:build !(darwin || freebsd || linux)

package mpv

import (
	"fmt"

	"github.com/glasspane/glasspane/dynlib"
)

func callbackTrampoline() uintptr { return 0 }

func updateTrampoline() uintptr { return 0 }

func Bind(lib *dynlib.Library) (*API, error) {
	return nil, fmt.Errorf("bind libmpv: %w", dynlib.ErrLoadFailed)
}
