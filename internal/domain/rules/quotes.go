package rules

// quotePairs — открывающая кавычка -> закрывающая. Для симметричных пар ключ
// и значение совпадают.
var quotePairs = map[rune]rune{
	'"':  '"',
	'\'': '\'',
	'‘':  '’',
	'‚':  '‛',
	'“':  '”',
	'„':  '‟',
	'⹂':  '⹂',
	'「':  '」',
	'『':  '』',
	'〝':  '〞',
	'﹁':  '﹂',
	'﹃':  '﹄',
	'＂':  '＂',
	'｢':  '｣',
	'«':  '»',
	'‹':  '›',
	'《':  '》',
	'〈':  '〉',
}

// allQuotes — все открывающие и закрывающие кавычки.
var allQuotes = func() map[rune]struct{} {
	m := make(map[rune]struct{}, len(quotePairs)*2)
	for open, closing := range quotePairs {
		m[open] = struct{}{}
		m[closing] = struct{}{}
	}
	return m
}()

// ClosingQuote возвращает парную закрывающую кавычку, если r — открывающая.
func ClosingQuote(r rune) (rune, bool) {
	c, ok := quotePairs[r]
	return c, ok
}

// IsQuote — r открывающая или закрывающая кавычка.
func IsQuote(r rune) bool {
	_, ok := allQuotes[r]
	return ok
}
