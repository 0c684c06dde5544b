// Package icon renders the status symbols printed by the CLI in the variant chosen by
// the icons.variant setting.
package icon

import (
	"github.com/glasspane/glasspane/key"
	"github.com/spf13/viper"
	"golang.org/x/exp/slices"
)

// Icon identifies a symbol printed by the CLI.
type Icon int

const (
	Success Icon = iota
	Fail
	Warn
	Progress
	Plugin
	Download
	Trash
)

var variants = []string{"emoji", "nerd", "plain", "kaomoji", "squares"}

// AvailableVariants lists the accepted icons.variant values.
func AvailableVariants() []string {
	return slices.Clone(variants)
}

// glyphs holds one rendering per entry of variants, in the same order.
var glyphs = map[Icon][]string{
	Success:  {"🎉", "", "✓", "(ᵔ◡ᵔ)", "🟩"},
	Fail:     {"💀", "", "✗", "(×_×)", "🟥"},
	Warn:     {"⚠️", "", "!", "(・_・;)", "🟨"},
	Progress: {"⏳", "", "…", "(・・ )?", "🟦"},
	Plugin:   {"🧩", "", "+", "(⌐■_■)", "🟪"},
	Download: {"📦", "", "↓", "(っ˘ڡ˘ς)", "🟫"},
	Trash:    {"🗑️", "", "-", "(╯°□°)╯", "⬛"},
}

// Get renders i in the configured variant, or returns "" for an unknown variant.
func Get(i Icon) string {
	idx := slices.Index(variants, viper.GetString(key.IconsVariant))
	if idx < 0 {
		return ""
	}
	return glyphs[i][idx]
}
