package pageocr

import (
	"fmt"

	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"
)

// findBrowser returns an installed Chrome or Chromium, falling back to a
// downloaded Chromium build cached under ~/.cache/rod/browser (Unix) or
// %APPDATA%\rod\browser (Windows).
func findBrowser(logger *zap.Logger) (string, error) {
	if path, ok := launcher.LookPath(); ok {
		logger.Debug("using installed browser", zap.String("path", path))
		return path, nil
	}
	logger.Info("no browser installed, downloading chromium")
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("pageocr: downloading browser: %w", err)
	}
	return path, nil
}
