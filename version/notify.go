package version

import (
	"context"
	"fmt"
	"time"

	"github.com/glasspane/glasspane/color"
	"github.com/glasspane/glasspane/constant"
	"github.com/glasspane/glasspane/icon"
	"github.com/glasspane/glasspane/key"
	"github.com/glasspane/glasspane/style"
	"github.com/glasspane/glasspane/util"
	"github.com/spf13/viper"
)

// Notify prints a short banner when a newer release than the running one exists.
func Notify() {
	if !viper.GetBool(key.CliVersionCheck) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	erase := util.PrintErasable(fmt.Sprintf("%s Checking for a newer release...", icon.Get(icon.Progress)))
	latest, err := Latest(ctx)
	erase()
	if err != nil {
		return
	}
	if comp, err := Compare(latest, constant.Version); err != nil || comp <= 0 {
		return
	}

	fmt.Printf(`
%s New version is available %s %s
%s

`,
		style.Fg(color.Green)("▇▇▇"),
		style.Bold(latest),
		style.Faint(fmt.Sprintf("(You're on %s)", constant.Version)),
		style.Faint("https://github.com/glasspane/glasspane/releases/tag/v"+latest),
	)
}
