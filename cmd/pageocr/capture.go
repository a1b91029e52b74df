package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newCaptureCmd(a *app) *cobra.Command {
	var (
		output      string
		segmentsDir string
		thumbWidth  int
	)
	cmd := &cobra.Command{
		Use:   "capture <url|file>",
		Short: "Save a full-page screenshot as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newCapturer()
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := captureTarget(cmd.Context(), c, args[0], a.observer("capture"))
			if err != nil {
				return err
			}
			if err := res.WriteToFile(output, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %dx%d, %d segment(s), %d fixed and %d sticky element(s) neutralized\n",
				output, res.Width, res.Height, res.Segments(), res.Neutralized.Fixed, res.Neutralized.Sticky)

			if segmentsDir != "" {
				if err := writeSegments(cmd.Context(), res.SegmentImages, segmentsDir); err != nil {
					return err
				}
			}
			if thumbWidth > 0 {
				thumb, err := res.Thumbnail(thumbWidth)
				if err != nil {
					return err
				}
				name := thumbnailName(output)
				if err := os.WriteFile(name, thumb, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", name, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "page.png", "output PNG file")
	cmd.Flags().StringVar(&segmentsDir, "segments", "", "also write the individual viewport segments to this directory")
	cmd.Flags().IntVar(&thumbWidth, "thumbnail", 0, "also write a thumbnail of this width next to the output")
	return cmd
}

func writeSegments(ctx context.Context, images func() ([][]byte, error), dir string) error {
	segs, err := images()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for i, data := range segs {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := filepath.Join(dir, fmt.Sprintf("segment-%03d.png", i))
		if err := os.WriteFile(name, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func thumbnailName(output string) string {
	ext := filepath.Ext(output)
	return output[:len(output)-len(ext)] + ".thumb.png"
}
