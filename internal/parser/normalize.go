package parser

import (
	"regexp"
	"strings"
)

const tatweel = "\u0640"

var (
	// tashkeel, quranic marks and small high letters
	tashkeelRe = regexp.MustCompile(`[\x{0610}-\x{061A}\x{064B}-\x{065F}\x{06D6}-\x{06ED}]`)
	// yeh followed by superscript alef
	yehSuperscriptAlefRe = regexp.MustCompile("\u064A\u0670+")
	dotSpacingRe         = regexp.MustCompile(`[\s\p{Zs}\x{200E}\x{200F}]*\.[\s\p{Zs}\x{200E}\x{200F}]*`)
	horizontalSpaceRe    = regexp.MustCompile(`[\t\p{Zs}\x{200E}\x{200F}]+`)
	blankLinesRe         = regexp.MustCompile(`\n{3,}`)

	letterReplacer = strings.NewReplacer(
		"ى", "ي",
		"ؤ", "و",
		"ئ", "ي",
		"إ", "ا",
		"أ", "ا",
		"آ", "ا",
		"ٱ", "ا",
	)
	lineEndingReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Normalize canonicalizes Arabic text before chunking. Diacritics are dropped,
// letter variants are folded and whitespace is collapsed. It never fails and is idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	t := lineEndingReplacer.Replace(text)
	t = strings.ReplaceAll(t, tatweel, "")
	t = tashkeelRe.ReplaceAllString(t, "")
	t = letterReplacer.Replace(t)
	t = yehSuperscriptAlefRe.ReplaceAllString(t, "ي")

	t = dotSpacingRe.ReplaceAllString(t, ". ")
	t = horizontalSpaceRe.ReplaceAllString(t, " ")
	t = blankLinesRe.ReplaceAllString(t, "\n\n")

	return strings.TrimSpace(t)
}
