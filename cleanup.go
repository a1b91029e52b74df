package pageocr

import (
	"regexp"
	"strings"
)

// replacement is one entry of the misrecognition table.
type replacement struct {
	re   *regexp.Regexp
	repl string
}

// misrecognitions are fixed OCR confusions, applied in order.
var misrecognitions = []replacement{
	{regexp.MustCompile(`休舌`), "体重"},
	{regexp.MustCompile(`身畏`), "身長"},
	{regexp.MustCompile(`(\d)[Oo](\d)`), "${1}0${2}"},
	{regexp.MustCompile(`(\d)[lI](\d)`), "${1}1${2}"},
}

var (
	// labelBreak joins a label and its value split onto separate lines.
	labelBreak = regexp.MustCompile(`(体重|身長|年齢|価格|金額|税込|合計)\n(\d)`)
	blankRuns  = regexp.MustCompile(`\n{3,}`)
)

// CleanText applies deterministic, order-preserving cleanup to raw OCR
// text: the misrecognition table, per-line trimming, label/value joins and
// collapsing runs of blank lines to one. No content line is dropped.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, r := range misrecognitions {
		// Twice so that adjacent matches such as "1O1O1" are all caught.
		text = r.re.ReplaceAllString(text, r.repl)
		text = r.re.ReplaceAllString(text, r.repl)
	}

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	text = strings.Join(lines, "\n")

	text = labelBreak.ReplaceAllString(text, "$1$2")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// isNoText reports whether a chunk reply is one of the "no text found"
// phrases rather than page content.
func isNoText(reply string) bool {
	n := normalizeBoilerplate(reply)
	if n == "" {
		return false
	}
	for _, p := range noTextPhrases {
		if n == p {
			return true
		}
	}
	return false
}

func normalizeBoilerplate(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".。!！ \t\n")
	s = strings.Trim(s, "\"'「」`")
	return strings.ToLower(strings.TrimSpace(s))
}

// isRefusal reports whether a reflow reply declines the task.
func isRefusal(reply string) bool {
	lower := strings.ToLower(reply)
	for _, p := range refusalPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// stripCodeFence removes a surrounding ``` fence, with or without a
// language tag.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], " \t") {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
