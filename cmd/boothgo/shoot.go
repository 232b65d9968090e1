package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/BoothGo/internal/logic/booth"
)

func newShootCmd(cfgPath *string) *cobra.Command {
	var outDir string
	var countdown int

	cmd := &cobra.Command{
		Use:   "shoot",
		Short: "Run one session without the web UI and write the strip and originals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if err := applyCountdown(cmd, cfg, countdown); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			a, err := newApp(cfg, func(e booth.Event) {
				switch e.Type {
				case booth.EventCountdown:
					fmt.Fprintf(out, "shot %d/%d: %d\n", e.Shot, e.Total, e.Remaining)
				case booth.EventWarning, booth.EventError:
					fmt.Fprintf(out, "%s: %s\n", e.Type, e.Message)
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.booth.Run(cmd.Context()); err != nil {
				return err
			}
			atts, err := a.booth.Attachments()
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			for _, att := range atts {
				path := filepath.Join(outDir, att.Filename)
				if err := os.WriteFile(path, att.Data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				fmt.Fprintln(out, path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "directory for the strip and the original photos")
	addCountdownFlag(cmd, &countdown)
	return cmd
}
