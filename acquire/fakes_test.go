package acquire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"

	"github.com/glasspane/glasspane/backend"
	"github.com/spf13/afero"
)

const testPlatform = "test/arch"

// layoutExtractor treats the downloaded archive's content as the name of a file tree to create.
type layoutExtractor struct {
	fs      afero.Fs
	layouts map[string]map[string]string
	fail    string
}

func (e *layoutExtractor) Extract(_ context.Context, archive, dest string) error {
	data, err := afero.ReadFile(e.fs, archive)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(string(data))
	if name == e.fail {
		return &ExtractError{Archive: archive, Detail: "unexpected end of archive"}
	}
	layout, ok := e.layouts[name]
	if !ok {
		return fmt.Errorf("no layout %q", name)
	}
	for rel, content := range layout {
		if err := afero.WriteFile(e.fs, filepath.Join(dest, rel), []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

type fakeVerifier struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (v *fakeVerifier) Verify(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paths = append(v.paths, path)
	return v.err
}

type fakeRelinker struct {
	roots []string
}

func (r *fakeRelinker) Relink(_ context.Context, root string) error {
	r.roots = append(r.roots, root)
	return nil
}

type nopQuarantine struct{}

func (nopQuarantine) Clear(context.Context, string) error { return nil }

type fakeUnloader struct {
	loaded  bool
	unloads int
}

func (u *fakeUnloader) Loaded() bool { return u.loaded }

func (u *fakeUnloader) Unload() error {
	u.unloads++
	u.loaded = false
	return nil
}

// scriptedRunner answers commands from a table keyed by the joined command line.
type scriptedRunner struct {
	outputs map[string]string
	calls   []string
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, line)
	if out, ok := r.outputs[line]; ok {
		return []byte(out), nil
	}
	if name == "otool" || name == "fail" {
		return nil, &CommandError{Name: name, Code: 1, Stderr: "no such file"}
	}
	return nil, nil
}

// archiveServer serves each path's body as-is and 404s everything else.
func archiveServer(bodies map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
}

func testManifest(base string) Manifest {
	return Manifest{
		Backend:      backend.RenderLoop,
		Version:      "0.39.0",
		Archives:     map[string]Archive{testPlatform: {URL: base + "/core.zip"}},
		Bundle:       "libmpv",
		LibraryPaths: []string{"lib/libmpv.2.dylib"},
		LibraryNames: []string{"libmpv.2.dylib"},
		SystemLocations: []SystemLocation{
			{Library: "/opt/homebrew/lib/libmpv.2.dylib"},
		},
	}
}

func testAssetsManifest(base string) Manifest {
	m := testManifest(base)
	m.Backend = backend.Shim
	m.Bundle = "libvlc"
	m.LibraryPaths = []string{"lib/libvlc.dylib"}
	m.LibraryNames = []string{"libvlc.dylib"}
	m.SystemLocations = nil
	m.Assets = &Assets{
		Archives:   map[string]Archive{testPlatform: {URL: base + "/assets.zip"}},
		Subdir:     "plugins",
		SearchName: "plugins",
	}
	m.Environment = map[string]string{"VLC_PLUGIN_PATH": "{assets}"}
	return m
}

var errVerify = errors.New("symbol libmpv_render_context_create not found")
