package dsl

import "unicode"

// eofRune возвращается peek на конце ввода.
const eofRune rune = -1

// cursor — позиция в тексте правила. Работает по рунам, чтобы позиции в ошибках
// совпадали со столбцами, которые видит пользователь.
type cursor struct {
	src  []rune
	text string
	pos  int
}

func newCursor(text string) *cursor {
	return &cursor{src: []rune(text), text: text}
}

func (c *cursor) eof() bool { return c.pos >= len(c.src) }

func (c *cursor) peek() rune {
	if c.eof() {
		return eofRune
	}
	return c.src[c.pos]
}

func (c *cursor) advance(n int) { c.pos += n }

// consumeLiteral сдвигает курсор за lit, если текст в текущей позиции с него начинается.
func (c *cursor) consumeLiteral(lit string) bool {
	r := []rune(lit)
	if c.pos+len(r) > len(c.src) {
		return false
	}
	for i, ch := range r {
		if c.src[c.pos+i] != ch {
			return false
		}
	}
	c.pos += len(r)
	return true
}

// skipSpace пропускает пробелы и обратные кавычки: последние позволяют
// оборачивать регулярки в `code` при копировании из чата.
func (c *cursor) skipSpace() {
	for !c.eof() && (unicode.IsSpace(c.src[c.pos]) || c.src[c.pos] == '`') {
		c.pos++
	}
}

// word читает слово-аргумент после префикса ключевого слова. Пробелы между
// префиксом и словом допускаются.
func (c *cursor) word() (string, error) {
	for !c.eof() && unicode.IsSpace(c.src[c.pos]) {
		c.pos++
	}
	w, end, err := readQuotedWord(c.src, c.pos)
	c.pos = end
	if err != nil {
		return "", c.fail(err, err.Error(), "")
	}
	return w, nil
}

// fail строит Failure в текущей позиции.
func (c *cursor) fail(kind error, msg, help string) *Failure {
	return c.failAt(c.pos, kind, msg, help)
}

func (c *cursor) failAt(pos int, kind error, msg, help string) *Failure {
	return &Failure{Msg: msg, Help: help, Pos: pos, Text: c.text, Err: kind}
}
