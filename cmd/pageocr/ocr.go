package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	pageocr "github.com/porticus-lab/go-page-ocr"
)

func newOCRCmd(a *app) *cobra.Command {
	var (
		output  string
		asJSON  bool
		chunked bool
	)
	cmd := &cobra.Command{
		Use:   "ocr <image>...",
		Short: "Extract text from a page image",
		Long: `Extract text from a page image. With several images and --chunked, the images
are treated as consecutive, already split chunks of one page.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 && !chunked {
				return fmt.Errorf("several images need --chunked")
			}
			images := make([][]byte, 0, len(args))
			for _, name := range args {
				data, err := os.ReadFile(name)
				if err != nil {
					return err
				}
				images = append(images, data)
			}

			engine, err := a.newOCR(cmd.Context())
			if err != nil {
				return err
			}

			var res *pageocr.TextResult
			if chunked {
				res, err = engine.ExtractChunks(cmd.Context(), images, a.observer("ocr"))
			} else {
				res, err = engine.Extract(cmd.Context(), images[0], a.observer("ocr"))
			}
			if err != nil {
				return err
			}
			return writeText(cmd, output, asJSON, res)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the text to a file instead of stdout")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print text, model and warnings as JSON")
	cmd.Flags().BoolVar(&chunked, "chunked", false, "treat the images as pre-split chunks of one page")
	return cmd
}

// writeText prints res to output, or stdout when output is empty. Warnings
// go to stderr unless they are part of the JSON document.
func writeText(cmd *cobra.Command, output string, asJSON bool, res *pageocr.TextResult) error {
	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(res)
	}

	for _, warn := range res.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warn)
	}
	_, err := fmt.Fprintln(w, res.Text)
	return err
}
