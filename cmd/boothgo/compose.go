package main

import (
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/logic/strip"
)

func newComposeCmd(cfgPath *string) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "compose IMG1 IMG2 IMG3",
		Short: "Compose three image files into a photostrip",
		Args:  cobra.ExactArgs(strip.Slots),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			layout, err := stripLayout(cfg)
			if err != nil {
				return err
			}
			comp, err := strip.NewCompositor(layout)
			if err != nil {
				return err
			}

			images := make([]image.Image, 0, len(args))
			for _, path := range args {
				img, err := decodeFile(path)
				if err != nil {
					return err
				}
				images = append(images, img)
			}

			img, err := comp.Render(images)
			if err != nil {
				return err
			}
			if err := writeStrip(out, img); err != nil {
				return err
			}
			debug.Strip("written to "+out, img.Bounds().Dx(), img.Bounds().Dy())
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "strip.jpg", "output JPEG file")
	return cmd
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func writeStrip(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := strip.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
