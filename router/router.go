// Package router selects the backend that can decode a source's container format.
package router

import (
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/glasspane/glasspane/backend"
	"github.com/samber/lo"
)

// ErrUnsupportedFormat means the format needs a plugin backend and none is ready.
var ErrUnsupportedFormat = errors.New("unsupported format: install a plugin to play this file")

// PluginRequired lists container extensions the native media framework cannot decode.
var PluginRequired = map[string]struct{}{
	"webm": {},
	"mkv":  {},
	"ogv":  {},
	"ogg":  {},
	"flv":  {},
	"wmv":  {},
	"divx": {},
	"vob":  {},
	"asf":  {},
}

// Readiness answers whether a backend is installed, enabled and loaded.
type Readiness interface {
	Ready(kind backend.Kind) bool
}

// ReadinessFunc adapts a function to Readiness.
type ReadinessFunc func(kind backend.Kind) bool

func (f ReadinessFunc) Ready(kind backend.Kind) bool {
	return f(kind)
}

func normalize(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// NeedsPlugin reports whether ext is in the plugin-required set.
func NeedsPlugin(ext string) bool {
	_, ok := PluginRequired[normalize(ext)]
	return ok
}

// BackendFor routes an extension. Plugin formats go to the first ready plugin backend;
// everything else goes to Native.
func BackendFor(ext string, readiness Readiness) (backend.Kind, error) {
	if !NeedsPlugin(ext) {
		return backend.Native, nil
	}

	kind, ok := lo.Find(backend.Plugins(), readiness.Ready)
	if !ok {
		return backend.Native, ErrUnsupportedFormat
	}
	return kind, nil
}

// Extension extracts the container extension from a file path or URL, ignoring query strings.
func Extension(source string) string {
	p := source
	if u, err := url.Parse(source); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		p = u.Path
	}
	return normalize(path.Ext(strings.ReplaceAll(p, `\`, "/")))
}
