// Package backend enumerates the mutually exclusive playback engines a player can route to.
package backend

import (
	"fmt"
	"strings"
)

// Kind identifies a playback backend. The set is closed; switch statements over Kind are exhaustive.
type Kind int

const (
	// Native is the built-in OS media framework. It needs no installation.
	Native Kind = iota
	// RenderLoop is the libmpv plugin, drawn through a render callback.
	RenderLoop
	// Shim is the libVLC plugin, reached through a narrow C entry-point table.
	Shim
)

// All lists every backend in routing priority order.
func All() []Kind {
	return []Kind{Native, RenderLoop, Shim}
}

// Plugins lists the backends that must be installed on demand, in the order the router prefers them.
func Plugins() []Kind {
	return []Kind{RenderLoop, Shim}
}

// IsPlugin reports whether the backend is delivered as a downloadable plugin bundle.
func (k Kind) IsPlugin() bool {
	return k == RenderLoop || k == Shim
}

// Name is the short identifier used for directories, preference keys and CLI arguments.
func (k Kind) Name() string {
	switch k {
	case Native:
		return "native"
	case RenderLoop:
		return "mpv"
	case Shim:
		return "vlc"
	default:
		return fmt.Sprintf("backend(%d)", int(k))
	}
}

// String returns a human-readable label.
func (k Kind) String() string {
	switch k {
	case Native:
		return "Native"
	case RenderLoop:
		return "MPV"
	case Shim:
		return "VLC"
	default:
		return fmt.Sprintf("Backend(%d)", int(k))
	}
}

// Parse resolves a backend from its short name or label, case-insensitively.
func Parse(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, k := range All() {
		if n == k.Name() || n == strings.ToLower(k.String()) {
			return k, nil
		}
	}
	return Native, fmt.Errorf("unknown backend %q", name)
}
