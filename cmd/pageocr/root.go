package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	pageocr "github.com/porticus-lab/go-page-ocr"
	"github.com/porticus-lab/go-page-ocr/internal/config"
	"github.com/porticus-lab/go-page-ocr/internal/log"
)

// app carries state shared by the subcommands.
type app struct {
	configFile string
	envFile    string
	logLevel   string
	quiet      bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "pageocr",
		Short: "Capture web pages as full-length images and extract their text",
		Long: `pageocr renders a web page in headless Chrome, stitches viewport screenshots
into one full-length image and transcribes it with a vision model (Gemini,
OpenAI-compatible or Tesseract).`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.load() },
	}

	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "hide progress bars")

	root.AddCommand(
		newCaptureCmd(a),
		newOCRCmd(a),
		newRunCmd(a),
		newServeCmd(a),
	)
	return root
}

// load reads the dotenv file and the configuration. A missing dotenv file
// is ignored.
func (a *app) load() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	log.SetLevel(cfg.Log.Level)
	a.cfg = cfg
	return nil
}

// newOCR builds the OCR engine from the configured vision backend.
func (a *app) newOCR(ctx context.Context) (*pageocr.OCR, error) {
	backend, err := a.cfg.Vision.NewBackend(ctx)
	if err != nil {
		return nil, err
	}
	opts := append(a.cfg.OCROptions(), pageocr.WithOCRLogger(log.Named("ocr")))
	return pageocr.NewOCR(backend, opts...)
}

// newCapturer starts a browser with the configured capture options.
func (a *app) newCapturer() (*pageocr.Capturer, error) {
	opts := append(a.cfg.CaptureOptions(), pageocr.WithLogger(log.Named("capture")))
	return pageocr.NewCapturer(opts...)
}

func (a *app) observer(label string) pageocr.Observer {
	if a.quiet {
		return nil
	}
	return newProgressObserver(os.Stderr, label)
}

// captureTarget captures a URL or, when target has no scheme, a local HTML
// file.
func captureTarget(ctx context.Context, c *pageocr.Capturer, target string, obs pageocr.Observer) (*pageocr.Result, error) {
	if strings.Contains(target, "://") {
		return c.Capture(ctx, target, obs)
	}
	return c.CaptureFile(ctx, target, obs)
}
