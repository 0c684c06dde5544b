package cmd

import (
	"fmt"

	"github.com/glasspane/glasspane/filesystem"
	"github.com/glasspane/glasspane/icon"
	"github.com/glasspane/glasspane/util"
	"github.com/glasspane/glasspane/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	location func() string
}

// Plugins live under the cache root, so clearing the cache also removes them.
var clearTargets = []clearTarget{
	{"cache directory", "cache", mo.Some("c"), where.Cache},
	{"installed plugins", "plugins", mo.Some("p"), where.Plugins},
	{"logs", "logs", mo.Some("l"), where.Logs},
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		help := fmt.Sprintf("clear %s", target.name)
		if short, ok := target.argShort.Get(); ok {
			clearCmd.Flags().BoolP(target.argLong, short, false, help)
		} else {
			clearCmd.Flags().Bool(target.argLong, false, help)
		}
	}
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached data, installed plugins or logs",
	Run: func(cmd *cobra.Command, args []string) {
		var anyCleared bool

		for _, target := range clearTargets {
			if !lo.Must(cmd.Flags().GetBool(target.argLong)) {
				continue
			}

			anyCleared = true
			location := target.location()
			size, _ := util.DirSize(filesystem.API(), location)

			e := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Progress), target.name))
			err := filesystem.API().RemoveAll(location)
			e()
			handleErr(err)

			fmt.Printf("%s %s cleared %s\n", icon.Get(icon.Success), util.Capitalize(target.name), util.HumanBytes(size))
		}

		if !anyCleared {
			handleErr(cmd.Help())
		}
	},
}
