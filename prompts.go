package pageocr

// ExtractionInstruction is sent with every chunk image.
const ExtractionInstruction = `You are an OCR engine. Transcribe every piece of visible text in the image, including text rendered inside pictures, banners, buttons and charts.

Rules:
- Output plain text only. No markdown, no commentary, no explanations.
- Preserve reading order: top to bottom, then left to right within a row.
- Keep the original language. Do not translate.
- Put each visually separate line on its own line and separate blocks with one blank line.
- Do not guess at text you cannot read, and do not invent text.
- If the image contains no text at all, output exactly: NO_TEXT_FOUND`

// ReflowInstruction is sent with the rule-cleaned text.
const ReflowInstruction = `You are proofreading text that was extracted from a web page by OCR.

You may ONLY:
- fix characters that were clearly misrecognized,
- join sentence fragments that were split across lines,
- insert a blank line between topically distinct sections.

You must NOT reorder, summarize, translate, shorten or delete any content, and you must not add anything.

Return only the corrected text, with no preface and no code fences.`

// noTextPhrases are replies that mean the chunk had no text. They are
// compared after normalizeBoilerplate.
var noTextPhrases = []string{
	"no_text_found",
	"no text found",
	"no text",
	"no text detected",
	"no visible text",
	"there is no text in this image",
	"the image does not contain any text",
	"the image contains no text",
	"テキストなし",
	"テキストが見つかりません",
	"テキストは見つかりませんでした",
	"テキストはありません",
	"文字なし",
	"文字が見つかりません",
	"画像にテキストは含まれていません",
}

// refusalPhrases mark a reflow reply that should not replace the input.
var refusalPhrases = []string{
	"i am unable to",
	"i'm unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i can't help with",
	"as a large language model",
	"as an ai language model",
}
