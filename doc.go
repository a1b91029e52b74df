// Package pageocr captures dynamically loaded web pages as single seamless
// images and extracts their visible text, including text drawn inside
// images and banners, as clean reading-order plain text.
//
// # Capture
//
// A [Capturer] drives headless Chrome over the DevTools Protocol. It loads
// the page, scrolls once to trigger lazy loading, rewrites fixed and sticky
// elements so they appear only once, then screenshots the page one viewport
// at a time and stitches the segments together with [Composite]:
//
//	c, err := pageocr.NewCapturer(pageocr.WithViewport(1280, 800))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	page, err := c.Capture(ctx, "https://example.com", nil)
//
// The last segment is pinned to the bottom of the page, so pages whose
// height is not a multiple of the viewport are covered without blank
// space. A [Result] gives access to the PNG:
//
//	page.Bytes()                        // []byte
//	page.Base64()                       // base64 string (RFC 4648)
//	page.WriteToFile("page.png", 0o644) // write to disk
//	page.Thumbnail(320)                 // downscaled PNG
//
// Chrome or Chromium must be available in PATH, or use [WithAutoDownload].
//
// # OCR
//
// An [OCR] sends the image to a [vision.Backend] in chunks of at most
// [DefaultChunkHeight] rows, three at a time, retrying rate-limit and
// overload errors with linear backoff. The chunk texts are joined in
// top-to-bottom order, cleaned by [CleanText] and reflowed by the model:
//
//	backend, err := vision.NewGemini(ctx, vision.GeminiConfig{})
//	ocr, err := pageocr.NewOCR(backend)
//	res, err := ocr.Extract(ctx, page.Bytes(), nil)
//	fmt.Println(res.Text, res.Warnings)
//
// Pass an [Observer] to follow progress through capture, extraction and
// cleaning.
package pageocr
