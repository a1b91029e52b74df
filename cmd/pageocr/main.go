// pageocr captures full-page screenshots of web pages and extracts their
// text with a vision model.
//
// Usage:
//
//	pageocr capture [flags] <url>
//	pageocr ocr [flags] <image>...
//	pageocr run [flags] <url>
//	pageocr serve [flags]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
