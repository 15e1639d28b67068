package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	t.Run("registers all subcommands", func(t *testing.T) {
		names := make(map[string]bool)
		for _, c := range rootCmd.Commands() {
			names[c.Name()] = true
		}

		for _, want := range []string{"log", "day", "watch", "drink", "supplement", "replay", "remove"} {
			assert.True(t, names[want], "missing subcommand %s", want)
		}
	})

	t.Run("has the persistent connection flags", func(t *testing.T) {
		for _, flag := range []string{"redis", "session", "user", "config"} {
			require.NotNil(t, rootCmd.PersistentFlags().Lookup(flag), "missing flag %s", flag)
		}
	})
}

func TestSetVersionInfo(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-08-30")
	assert.Equal(t, "1.2.3 (commit: abc123, built: 2026-08-30)", rootCmd.Version)
}
