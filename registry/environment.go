package registry

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/glasspane/glasspane/constant"
	"github.com/samber/lo"
)

// Environment is the process environment the dynamic loader reads.
type Environment interface {
	Getenv(key string) string
	Setenv(key, value string) error
}

// ProcessEnvironment is the real process environment. It remembers what it changed.
type ProcessEnvironment struct {
	mu      sync.Mutex
	applied map[string]string
}

func (p *ProcessEnvironment) Getenv(key string) string {
	return os.Getenv(key)
}

func (p *ProcessEnvironment) Setenv(key, value string) error {
	if err := os.Setenv(key, value); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.applied == nil {
		p.applied = make(map[string]string)
	}
	p.applied[key] = value
	return nil
}

// Applied returns the variables set through this environment.
func (p *ProcessEnvironment) Applied() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo.Assign(map[string]string{}, p.applied)
}

// MapEnvironment is an in-memory environment.
type MapEnvironment map[string]string

func (m MapEnvironment) Getenv(key string) string {
	return m[key]
}

func (m MapEnvironment) Setenv(key, value string) error {
	m[key] = value
	return nil
}

// SearchPathVariable names the dynamic-loader search path variable of an OS.
func SearchPathVariable(goos string) string {
	switch goos {
	case constant.Darwin:
		return "DYLD_LIBRARY_PATH"
	case constant.Windows:
		return "PATH"
	default:
		return "LD_LIBRARY_PATH"
	}
}

// PrependSearchPath puts dirs in front of the loader search path, keeping whatever was
// there before and skipping entries already present.
func PrependSearchPath(env Environment, dirs ...string) error {
	name := SearchPathVariable(runtime.GOOS)
	sep := string(filepath.ListSeparator)

	var existing []string
	if current := env.Getenv(name); current != "" {
		existing = strings.Split(current, sep)
	}

	fresh := lo.Filter(lo.Uniq(dirs), func(d string, _ int) bool {
		return d != "" && !lo.Contains(existing, d)
	})
	if len(fresh) == 0 {
		return nil
	}

	return env.Setenv(name, strings.Join(append(fresh, existing...), sep))
}
