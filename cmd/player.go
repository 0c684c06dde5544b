package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glasspane/glasspane/acquire"
	"github.com/glasspane/glasspane/backend"
	"github.com/glasspane/glasspane/color"
	"github.com/glasspane/glasspane/config"
	"github.com/glasspane/glasspane/key"
	"github.com/glasspane/glasspane/mainloop"
	"github.com/glasspane/glasspane/player"
	"github.com/glasspane/glasspane/style"
	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newPlayer builds a headless player bound to the persisted preferences. The CLI has no
// media framework binding, so only plugin backends can open sources.
func newPlayer(loop mainloop.Loop) *player.Player {
	return player.New(player.Options{
		Loop:        loop,
		Preferences: config.Preferences{},
		Install: acquire.Options{
			MinDownloadSize: viper.GetInt64(key.InstallMinDownloadSize),
		},
	})
}

// installTimeout bounds a whole plugin installation.
func installTimeout() time.Duration {
	seconds := viper.GetInt(key.InstallTimeout)
	if seconds <= 0 {
		return time.Duration(config.Default[key.InstallTimeout].Value.(int)) * time.Second
	}
	return time.Duration(seconds) * time.Second
}

// runLoop drains loop on the calling goroutine until done reports true or ctx ends.
func runLoop(ctx context.Context, loop *mainloop.Queue, done func() bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()

	for !done() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			loop.RunPending()
		}
	}
	return nil
}

func pluginNames() []string {
	return lo.Map(backend.Plugins(), func(k backend.Kind, _ int) string {
		return k.Name()
	})
}

// parsePlugin resolves a plugin backend name, suggesting the closest one on a typo.
func parsePlugin(name string) (backend.Kind, error) {
	kind, err := backend.Parse(name)
	if err == nil && kind.IsPlugin() {
		return kind, nil
	}

	msg := fmt.Sprintf(
		"unknown plugin %s, did you mean %s?",
		style.Fg(color.Red)(name),
		style.Fg(color.Yellow)(closest(name, pluginNames())),
	)
	return backend.Native, errors.New(msg)
}

// closest returns the candidate with the smallest edit distance to name.
func closest(name string, candidates []string) string {
	return lo.MinBy(candidates, func(a, b string) bool {
		return levenshtein.Distance(name, a) < levenshtein.Distance(name, b)
	})
}

func completionPlugins(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return pluginNames(), cobra.ShellCompDirectiveNoFileComp
}
