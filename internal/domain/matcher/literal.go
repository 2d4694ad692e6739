package matcher

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

// Границы слова строятся через Unicode-классы, а не \b: в RE2 \b работает только
// с ASCII, а литералы бывают кириллическими.
const (
	wordStart = `(?:^|[^\p{L}\p{N}_])`
	wordEnd   = `(?:[^\p{L}\p{N}_]|$)`
)

// LiteralPattern строит выражение для литерала: экранированный текст, граница
// слова только с той стороны, где литерал начинается или заканчивается
// словесным символом. Регистр учитывается флагом "i" при вызове.
//
//	"foo"   -> (?:^|[^\p{L}\p{N}_])foo(?:[^\p{L}\p{N}_]|$)
//	"C++"   -> (?:^|[^\p{L}\p{N}_])C\+\+
//	"#tag"  -> #tag(?:[^\p{L}\p{N}_]|$)
func LiteralPattern(text string) string {
	p := regexp.QuoteMeta(text)
	if first, _ := utf8.DecodeRuneInString(text); isWordRune(first) {
		p = wordStart + p
	}
	if last, _ := utf8.DecodeLastRuneInString(text); isWordRune(last) {
		p += wordEnd
	}
	return p
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
