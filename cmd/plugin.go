package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/glasspane/glasspane/acquire"
	"github.com/glasspane/glasspane/backend"
	"github.com/glasspane/glasspane/color"
	"github.com/glasspane/glasspane/filesystem"
	"github.com/glasspane/glasspane/icon"
	"github.com/glasspane/glasspane/mainloop"
	"github.com/glasspane/glasspane/style"
	"github.com/glasspane/glasspane/util"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pluginCmd)
}

var pluginCmd = &cobra.Command{
	Use:     "plugin",
	Short:   "Manage the mpv and VLC playback plugins",
	Aliases: []string{"plugins"},
}

func init() {
	pluginCmd.AddCommand(pluginListCmd)
	pluginListCmd.SetOut(os.Stdout)
}

var pluginListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the install, enable and load state of every plugin",
	Run: func(cmd *cobra.Command, args []string) {
		p := newPlayer(mainloop.NewQueue(16))
		_ = p.Start()
		defer func() { _ = p.Shutdown() }()

		for i, kind := range backend.Plugins() {
			installer := lo.Must(p.Installer(kind))
			cmd.Print(describePlugin(kind, p.Registry().Readiness(kind).Ready(), installer.Installation()))
			if i < len(backend.Plugins())-1 {
				cmd.Println()
			}
		}
	},
}

func describePlugin(kind backend.Kind, ready bool, inst *acquire.Installation) string {
	badge := lo.Ternary(ready, style.Ready("ready"), style.NotReady("not ready"))
	yes := func(b bool) string {
		return lo.Ternary(b, style.Fg(color.Green)("yes"), style.Fg(color.Red)("no"))
	}

	out := fmt.Sprintf("%s %s %s\n", icon.Get(icon.Plugin), style.Bold(kind.String()), badge)
	out += fmt.Sprintf("  %s %s\n", style.Faint("Installed"), yes(inst.Installed()))

	if loc, ok := inst.Locate().Get(); ok {
		out += fmt.Sprintf("  %s %s%s\n", style.Faint("Library  "), loc.Library, lo.Ternary(loc.System, style.Faint(" (system)"), ""))
	}
	if receipt, ok := inst.Receipt(); ok {
		out += fmt.Sprintf("  %s %s%s\n", style.Faint("Version  "), receipt.Version, lo.Ternary(inst.Outdated(), style.Fg(color.Yellow)(" (update available)"), ""))
	}
	if size, err := util.DirSize(filesystem.API(), inst.Directory()); err == nil && size > 0 {
		out += fmt.Sprintf("  %s %s\n", style.Faint("Size     "), util.HumanBytes(size))
	}
	return out
}

func init() {
	pluginCmd.AddCommand(pluginInstallCmd)
}

var pluginInstallCmd = &cobra.Command{
	Use:               "install <plugin>",
	Short:             "Download and install a plugin, then load it when it is enabled",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionPlugins,
	Run: func(cmd *cobra.Command, args []string) {
		kind, err := parsePlugin(args[0])
		handleErr(err)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, installTimeout())
		defer cancel()

		loop := mainloop.NewQueue(64)
		p := newPlayer(loop)
		_ = p.Start()
		defer func() { _ = p.Shutdown() }()

		bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(util.TerminalWidth(80)/2))
		var result mo.Option[mo.Result[*acquire.Receipt]]

		handleErr(p.Install(ctx, kind, func(fraction float64, message string) {
			fmt.Printf("\r\033[K%s %s", bar.ViewAs(fraction), style.Faint(message))
		}, func(r mo.Result[*acquire.Receipt]) {
			result = mo.Some(r)
		}))

		handleErr(runLoop(context.Background(), loop, func() bool { return result.IsPresent() }))
		fmt.Print("\r\033[K")

		receipt, err := result.MustGet().Get()
		handleErr(err)

		fmt.Printf("%s Installed %s %s\n", icon.Get(icon.Success), style.Bold(kind.String()), style.Faint(receipt.Version))
		if !p.Registry().Enabled(kind) {
			fmt.Printf("%s Enable it with %s\n", icon.Get(icon.Warn), style.Fg(color.Yellow)("glasspane plugin enable "+kind.Name()))
		}
	},
}

func init() {
	pluginCmd.AddCommand(pluginUninstallCmd)
	pluginUninstallCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

var pluginUninstallCmd = &cobra.Command{
	Use:               "uninstall <plugin>",
	Short:             "Remove the files of an installed plugin",
	Aliases:           []string{"remove"},
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionPlugins,
	Run: func(cmd *cobra.Command, args []string) {
		kind, err := parsePlugin(args[0])
		handleErr(err)

		if !lo.Must(cmd.Flags().GetBool("yes")) {
			var confirm bool
			handleErr(survey.AskOne(&survey.Confirm{
				Message: fmt.Sprintf("Remove the %s plugin?", kind),
				Default: false,
			}, &confirm))
			if !confirm {
				return
			}
		}

		p := newPlayer(mainloop.NewQueue(16))
		defer func() { _ = p.Shutdown() }()

		handleErr(p.Uninstall(kind))
		fmt.Printf("%s %s uninstalled\n", icon.Get(icon.Trash), kind)
	},
}

func init() {
	pluginCmd.AddCommand(pluginEnableCmd, pluginDisableCmd)
}

var pluginEnableCmd = &cobra.Command{
	Use:               "enable <plugin>",
	Short:             "Allow the router to use a plugin",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionPlugins,
	Run: func(cmd *cobra.Command, args []string) {
		setEnabled(args[0], true)
	},
}

var pluginDisableCmd = &cobra.Command{
	Use:               "disable <plugin>",
	Short:             "Stop routing to a plugin without uninstalling it",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionPlugins,
	Run: func(cmd *cobra.Command, args []string) {
		setEnabled(args[0], false)
	},
}

func setEnabled(name string, enabled bool) {
	kind, err := parsePlugin(name)
	handleErr(err)

	p := newPlayer(mainloop.NewQueue(16))
	handleErr(p.Registry().SetEnabled(kind, enabled))

	fmt.Printf("%s %s %s\n",
		style.Fg(color.Green)(icon.Get(icon.Success)),
		kind,
		lo.Ternary(enabled, "enabled", "disabled"),
	)
	if enabled && !p.Registry().Installed(kind) {
		fmt.Printf("%s It is not installed yet, run %s\n", icon.Get(icon.Warn), style.Fg(color.Yellow)("glasspane plugin install "+kind.Name()))
	}
}

func init() {
	pluginCmd.AddCommand(pluginLoadCmd)
}

var pluginLoadCmd = &cobra.Command{
	Use:               "load <plugin>",
	Short:             "Load an installed plugin library and verify its entry points",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionPlugins,
	Run: func(cmd *cobra.Command, args []string) {
		kind, err := parsePlugin(args[0])
		handleErr(err)

		p := newPlayer(mainloop.NewQueue(16))
		defer func() { _ = p.Shutdown() }()

		handleErr(p.Registry().TryLoad(kind))
		if !p.Registry().Loaded(kind) {
			handleErr(fmt.Errorf("%s is not loaded: it must be installed and enabled", kind))
		}
		fmt.Printf("%s %s loaded\n", icon.Get(icon.Success), kind)
	},
}
