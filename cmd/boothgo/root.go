package main

import (
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cjeanneret/BoothGo/internal/config"
	"github.com/cjeanneret/BoothGo/internal/debug"
)

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:   "boothgo",
		Short: "Kiosk photo booth with a photostrip compositor",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Secrets (SMTP password, gateway token) may live in .env.
			_ = godotenv.Load()
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", filepath.Join("configs", "default.yaml"), "path to config file")

	root.AddCommand(
		newServeCmd(&cfgPath),
		newShootCmd(&cfgPath),
		newComposeCmd(&cfgPath),
	)
	return root
}

// loadConfig validates the path, loads the file and initializes the debug
// level from it.
func loadConfig(path string) (*config.Config, error) {
	if err := config.ValidateConfigPath(path); err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Value("config", path)
	debug.PrintStruct("Camera", cfg.Camera)
	debug.PrintStruct("Sequence", cfg.Sequence)
	return cfg, nil
}

// addCountdownFlag registers --countdown; applyCountdown copies it into cfg
// when it was given on the command line.
func addCountdownFlag(cmd *cobra.Command, v *int) {
	cmd.Flags().IntVar(v, "countdown", 0, "override countdown seconds before each shot (0-30)")
}

func applyCountdown(cmd *cobra.Command, cfg *config.Config, v int) error {
	if !cmd.Flags().Changed("countdown") {
		return nil
	}
	if v < 0 || v > 30 {
		return fmt.Errorf("--countdown must be between 0 and 30, got %d", v)
	}
	cfg.Sequence.CountdownSeconds = v
	return nil
}
