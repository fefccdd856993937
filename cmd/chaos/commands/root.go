package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chaosbotics/chaos/cmd/chaos/internal/config"
)

var (
	// Global flags.
	verbose    bool
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "chaos",
	Short: "Voice-controlled robot brain",
	Long: `chaos - the daemon and toolbox for a voice-controlled wheeled robot.

The robot listens for its wake phrase, captures the following utterance,
and either answers out loud or executes a short movement plan on the
chassis.

Configuration comes from CHAOS_* environment variables, an optional .env
file in the working directory, and an optional YAML file via --config.
Environment variables win.

Examples:
  # Run the full brain against real hardware
  chaos run

  # Run on a bench with no chassis attached
  STUB_HARDWARE=true chaos run

  # Enroll the wake phrase (speak it once after pressing enter)
  chaos enroll --name default

  # Inspect what the robot senses
  chaos sensors --jq '.rpm'`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to YAML config file")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig loads and validates the daemon configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(configFile)
}
