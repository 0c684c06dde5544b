package acquire

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/glasspane/glasspane/constant"
	"github.com/glasspane/glasspane/log"
	"github.com/samber/lo"
	"github.com/spf13/afero"
)

// Relinker rewrites absolute dependency references inside an installed bundle so its
// libraries resolve each other relative to their own location.
type Relinker interface {
	Relink(ctx context.Context, root string) error
}

// DefaultRelinker picks the relinker of the running platform.
func DefaultRelinker(fs afero.Fs, runner Runner) Relinker {
	switch runtime.GOOS {
	case constant.Darwin:
		return MachORelinker{Fs: fs, Runner: runner}
	case constant.Linux, constant.FreeBSD:
		return ELFRelinker{Fs: fs, Runner: runner}
	default:
		return NopRelinker{}
	}
}

type NopRelinker struct{}

func (NopRelinker) Relink(context.Context, string) error { return nil }

// systemPrefixes are locations every machine provides, so references to them stay absolute.
var systemPrefixes = []string{"/usr/lib/", "/System/", "/lib/", "/lib64/"}

func relocatable(dep string) bool {
	if !filepath.IsAbs(dep) {
		return false
	}
	return !lo.SomeBy(systemPrefixes, func(p string) bool { return strings.HasPrefix(dep, p) })
}

func isSharedObject(name string) bool {
	return strings.HasSuffix(name, ".dylib") || strings.HasSuffix(name, ".so") || strings.Contains(name, ".so.")
}

// sharedObjects maps every shared object under root by base name.
func sharedObjects(fs afero.Fs, root string) (map[string]string, error) {
	found := make(map[string]string)
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() && isSharedObject(info.Name()) {
			if _, dup := found[info.Name()]; !dup {
				found[info.Name()] = path
			}
		}
		return nil
	})
	return found, err
}

// MachORelinker uses otool and install_name_tool to make references loader-relative.
type MachORelinker struct {
	Fs     afero.Fs
	Runner Runner
}

type change struct {
	Old, New string
}

type relinkPlan struct {
	ID      string
	Changes []change
}

func (p relinkPlan) empty() bool {
	return p.ID == "" && len(p.Changes) == 0
}

func (p relinkPlan) args(file string) []string {
	var args []string
	if p.ID != "" {
		args = append(args, "-id", p.ID)
	}
	for _, c := range p.Changes {
		args = append(args, "-change", c.Old, c.New)
	}
	return append(args, file)
}

func (m MachORelinker) Relink(ctx context.Context, root string) error {
	siblings, err := sharedObjects(m.Fs, root)
	if err != nil {
		return err
	}

	files := lo.Values(siblings)
	sort.Strings(files)

	for _, file := range files {
		out, err := m.Runner.Run(ctx, "otool", "-L", file)
		if err != nil {
			return err
		}
		idOut, err := m.Runner.Run(ctx, "otool", "-D", file)
		if err != nil {
			return err
		}

		plan := planRelink(file, parseOtoolID(string(idOut)), parseOtoolDeps(string(out)), siblings)
		if plan.empty() {
			continue
		}

		log.With(log.Fields{"file": filepath.Base(file), "changes": len(plan.Changes)}).Debugf("relinking")
		if _, err := m.Runner.Run(ctx, "install_name_tool", plan.args(file)...); err != nil {
			return err
		}

		// rewriting load commands invalidates the signature, which arm64 refuses to load
		if _, err := m.Runner.Run(ctx, "codesign", "--force", "--sign", "-", file); err != nil {
			log.Warnf("re-sign %s: %s", file, stderrOf(err))
		}
	}
	return nil
}

// parseOtoolDeps reads `otool -L` output. The first line names the file itself.
func parseOtoolDeps(out string) []string {
	var deps []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			if strings.HasSuffix(line, ":") {
				continue
			}
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if i := strings.Index(line, " (compatibility version"); i >= 0 {
			line = line[:i]
		}
		deps = append(deps, strings.TrimSpace(line))
	}
	return deps
}

// parseOtoolID reads `otool -D` output, which is the file name followed by its install name.
func parseOtoolID(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}

func planRelink(file, id string, deps []string, siblings map[string]string) relinkPlan {
	var plan relinkPlan
	dir := filepath.Dir(file)

	if id != "" && relocatable(id) {
		plan.ID = "@loader_path/" + filepath.Base(file)
	}

	for _, dep := range deps {
		if dep == id || !relocatable(dep) {
			continue
		}
		target, ok := siblings[filepath.Base(dep)]
		if !ok || target == file {
			continue
		}
		rel, err := filepath.Rel(dir, target)
		if err != nil {
			continue
		}
		plan.Changes = append(plan.Changes, change{Old: dep, New: "@loader_path/" + filepath.ToSlash(rel)})
	}
	return plan
}

// ELFRelinker sets a $ORIGIN-relative rpath with patchelf. Without patchelf the
// search-path environment set at load time has to carry the bundle.
type ELFRelinker struct {
	Fs     afero.Fs
	Runner Runner
}

func (e ELFRelinker) Relink(ctx context.Context, root string) error {
	if !Available("patchelf") {
		log.Warnf("patchelf not found, leaving rpath of %s untouched", root)
		return nil
	}

	siblings, err := sharedObjects(e.Fs, root)
	if err != nil {
		return err
	}

	dirs := lo.Uniq(lo.Map(lo.Values(siblings), func(p string, _ int) string { return filepath.Dir(p) }))
	sort.Strings(dirs)

	for _, file := range lo.Values(siblings) {
		if _, err := e.Runner.Run(ctx, "patchelf", "--set-rpath", originRPath(filepath.Dir(file), dirs), file); err != nil {
			return err
		}
	}
	return nil
}

func originRPath(from string, dirs []string) string {
	entries := lo.FilterMap(dirs, func(d string, _ int) (string, bool) {
		rel, err := filepath.Rel(from, d)
		if err != nil {
			return "", false
		}
		if rel == "." {
			return "$ORIGIN", true
		}
		return "$ORIGIN/" + filepath.ToSlash(rel), true
	})
	return strings.Join(entries, ":")
}
