package commands

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/platewise/platewise/internal/config"
	"github.com/platewise/platewise/pkg/foodlog"
)

var (
	version string
	commit  string
	date    string
)

var (
	redisAddr  string
	session    string
	userID     string
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "platewise",
	Short: "Platewise - multi-source food logging pipeline",
	Long: `Platewise logs food from photos, speech, typed text, and barcode
scans into a shared daily log.

Every candidate runs through nutrition resolution, serving
normalization, and an explicit confirmation step before it is
persisted; a realtime change feed keeps every connected client's
daily totals in sync.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", "localhost:6379", "Redis address")
	rootCmd.PersistentFlags().StringVar(&session, "session", "default", "Log session namespace")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "default", "User id entries are logged under")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to platewise.yml (defaults apply when empty)")
}

// loadConfig returns the file-backed configuration, or defaults when no
// path was given.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// newStore opens the session's store.
func newStore() (*foodlog.Store, error) {
	return foodlog.NewStore(&redis.Options{Addr: redisAddr}, session)
}
