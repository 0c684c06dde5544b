//go:build !(darwin || freebsd || linux)

package vlc

import (
	"fmt"

	"github.com/glasspane/glasspane/dynlib"
)

func Bind(lib *dynlib.Library) (*API, error) {
	return nil, fmt.Errorf("bind libvlc: %w", dynlib.ErrLoadFailed)
}
