package cmd

import (
	"os"

	"github.com/glasspane/glasspane/color"
	"github.com/glasspane/glasspane/mainloop"
	"github.com/glasspane/glasspane/router"
	"github.com/glasspane/glasspane/style"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(routeCmd)
	routeCmd.SetOut(os.Stdout)
}

var routeCmd = &cobra.Command{
	Use:   "route <file>...",
	Short: "Show which backend would play each file",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p := newPlayer(mainloop.NewQueue(16))
		_ = p.Start()
		defer func() { _ = p.Shutdown() }()

		var failed bool
		for _, src := range args {
			kind, err := p.Route(src)
			if err != nil {
				failed = true
				cmd.Printf("%s %s\n", style.Faint(src), style.Fg(color.Red)(err.Error()))
				continue
			}

			ext := router.Extension(src)
			if ext == "" {
				ext = "?"
			}
			cmd.Printf("%s %s %s\n", style.Faint(src), style.Fg(color.Purple)("."+ext), style.Bold(kind.String()))
		}

		if failed {
			os.Exit(1)
		}
	},
}
