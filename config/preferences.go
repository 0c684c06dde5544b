package config

import (
	"github.com/glasspane/glasspane/backend"
	"github.com/glasspane/glasspane/key"
	"github.com/spf13/viper"
)

// Preferences is the viper-backed store of per-backend enabled flags.
// Flags are independent of installation state and survive a restart.
type Preferences struct{}

// Enabled reports the persisted user preference. The native framework cannot be disabled.
func (Preferences) Enabled(kind backend.Kind) bool {
	if !kind.IsPlugin() {
		return true
	}
	return viper.GetBool(key.BackendEnabled(kind.Name()))
}

// SetEnabled updates and persists the preference.
func (Preferences) SetEnabled(kind backend.Kind, enabled bool) error {
	if !kind.IsPlugin() {
		return nil
	}
	viper.Set(key.BackendEnabled(kind.Name()), enabled)
	return Save()
}
