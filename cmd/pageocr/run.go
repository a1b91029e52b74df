package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		output string
		image  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "run <url|file>",
		Short: "Capture a page and extract its text in one step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Build the OCR engine first so missing credentials fail before
			// a browser is started.
			engine, err := a.newOCR(cmd.Context())
			if err != nil {
				return err
			}
			c, err := a.newCapturer()
			if err != nil {
				return err
			}
			defer c.Close()

			page, err := captureTarget(cmd.Context(), c, args[0], a.observer("capture"))
			if err != nil {
				return err
			}
			if image != "" {
				if err := page.WriteToFile(image, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", image, err)
				}
			}

			res, err := engine.Extract(cmd.Context(), page.Bytes(), a.observer("ocr"))
			if err != nil {
				return err
			}
			return writeText(cmd, output, asJSON, res)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the text to a file instead of stdout")
	cmd.Flags().StringVar(&image, "image", "", "also save the captured PNG to this file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print text, model and warnings as JSON")
	return cmd
}
