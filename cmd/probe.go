package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/glasspane/glasspane/backend"
	"github.com/glasspane/glasspane/icon"
	"github.com/glasspane/glasspane/log"
	"github.com/glasspane/glasspane/mainloop"
	"github.com/glasspane/glasspane/session"
	"github.com/glasspane/glasspane/style"
	"github.com/glasspane/glasspane/util"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().StringP("plugin", "p", "", "Open on this plugin instead of the routed backend")
	probeCmd.Flags().StringToStringP("header", "H", nil, "HTTP header sent with remote sources, as Name=Value")
	probeCmd.Flags().DurationP("timeout", "t", 15*time.Second, "How long to wait for metadata")
	probeCmd.Flags().BoolP("json", "j", false, "Print the result as JSON")
	_ = probeCmd.RegisterFlagCompletionFunc("plugin", completionPlugins)
	probeCmd.SetOut(os.Stdout)
}

type probeResult struct {
	Backend     string  `json:"backend"`
	Duration    float64 `json:"duration"`
	FrameRate   float64 `json:"frame_rate"`
	Estimated   bool    `json:"frame_rate_estimated"`
	TotalFrames int     `json:"total_frames"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
}

var probeCmd = &cobra.Command{
	Use:   "probe <file>",
	Short: "Open a file headlessly on a plugin backend and print its metadata",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loop := mainloop.NewQueue(256)
		p := newPlayer(loop)
		_ = p.Start()
		defer func() { _ = p.Shutdown() }()

		watchCtx, stopWatch := context.WithCancel(context.Background())
		defer stopWatch()
		if err := p.Watch(watchCtx); err != nil {
			log.Warnf("plugin watch: %v", err)
		}

		src := session.Source{
			URL:     args[0],
			Headers: lo.Must(cmd.Flags().GetStringToString("header")),
		}

		var (
			latest  session.PlaybackState
			failure mo.Option[error]
		)
		p.Session().Observe(func(s session.PlaybackState) { latest = s })
		p.Session().OnError(func(err error) { failure = mo.Some(err) })

		kind := lo.Must(cmd.Flags().GetString("plugin"))
		if kind != "" {
			k, err := parsePlugin(kind)
			handleErr(err)
			handleErr(p.OpenOn(k, src))
		} else {
			routed, err := p.Route(src.URL)
			handleErr(err)
			if routed == backend.Native {
				handleErr(fmt.Errorf("%s plays on the native framework, pass --plugin to probe it with a plugin", src.URL))
			}
			handleErr(p.Open(src))
		}

		erase := cmdErasable(cmd, fmt.Sprintf("%s Probing %s...", icon.Get(icon.Progress), src.URL))
		ctx, cancel := context.WithTimeout(context.Background(), lo.Must(cmd.Flags().GetDuration("timeout")))
		defer cancel()

		waitErr := runLoop(ctx, loop, func() bool {
			return failure.IsPresent() || (latest.Loaded && latest.Duration > 0 && latest.RateResolved)
		})
		erase()

		if err, ok := failure.Get(); ok {
			handleErr(err)
		}
		if !latest.Loaded {
			handleErr(fmt.Errorf("no metadata within the timeout: %w", waitErr))
		}

		driver := p.Session().Driver().MustGet()
		result := probeResult{
			Backend:     driver.Kind().Name(),
			Duration:    latest.Duration,
			FrameRate:   latest.FrameRate,
			Estimated:   !latest.RateResolved,
			TotalFrames: latest.TotalFrames,
			Width:       latest.NaturalSize.Width,
			Height:      latest.NaturalSize.Height,
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(result))
			return
		}
		printProbe(cmd, result)
	},
}

func printProbe(cmd *cobra.Command, r probeResult) {
	rate := fmt.Sprintf("%.3f", r.FrameRate)
	if r.Estimated {
		rate += style.Faint(" (assumed)")
	}

	row := func(name, value string) {
		cmd.Printf("  %s %s\n", style.Faint(fmt.Sprintf("%-12s", name)), value)
	}
	cmd.Printf("%s %s\n", icon.Get(icon.Success), style.Bold(r.Backend))
	row("Duration", (time.Duration(r.Duration * float64(time.Second))).Round(time.Millisecond).String())
	row("Frame rate", rate)
	row("Frames", fmt.Sprint(r.TotalFrames))
	row("Size", lo.Ternary(r.Width > 0, fmt.Sprintf("%dx%d", r.Width, r.Height), style.Faint("unknown")))
}

// cmdErasable prints a transient status line only when stdout is the command's output.
func cmdErasable(cmd *cobra.Command, msg string) func() {
	if cmd.OutOrStdout() != os.Stdout {
		return func() {}
	}
	return util.PrintErasable(msg)
}
