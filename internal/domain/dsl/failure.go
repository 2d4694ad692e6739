package dsl

import (
	"errors"
	"strings"
)

// Категории ошибок разбора. Failure.Unwrap возвращает одну из них, поэтому
// вызывающий может различать их через errors.Is.
var (
	// ErrSyntax — текст правила не соответствует грамматике.
	ErrSyntax = errors.New("syntax error")
	// ErrUnknownEntity — гильдия, канал или пользователь не найдены резолвером.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrInvalidRegex — регулярное выражение не компилируется или совпадает с пустой строкой.
	ErrInvalidRegex = errors.New("invalid regex")

	// Ошибки чтения слова-аргумента (см. ReadWord).
	ErrUnexpectedQuote      = errors.New("unexpected quote inside unquoted word")
	ErrInvalidEndOfQuote    = errors.New("expected EOF or whitespace after quoted word")
	ErrExpectedClosingQuote = errors.New("reached EOF while parsing a quoted word")
	ErrMissingWord          = errors.New("expected a value")
)

// Failure — ошибка разбора с позицией. Pos — смещение в рунах от начала Text.
// Error() возвращает готовый для показа пользователю текст с кареткой.
type Failure struct {
	Msg  string
	Help string
	Pos  int
	Text string
	Err  error
}

func (f *Failure) Error() string { return f.Render() }

func (f *Failure) Unwrap() error { return f.Err }

// Render строит многострочное сообщение:
//
//	error: <msg>
//	  | <строка>
//	  |     ^
//	help: <подсказка>
//
// Каретка ставится под столбцом Pos в той строке, куда он попадает; позиция на
// конце ввода указывает за последний символ последней строки.
func (f *Failure) Render() string {
	var b strings.Builder
	b.WriteString("error: ")
	b.WriteString(f.Msg)
	b.WriteByte('\n')

	lines := strings.Split(f.Text, "\n")
	start := 0
	placed := false
	for i, line := range lines {
		n := len([]rune(line))
		b.WriteString("  | ")
		b.WriteString(line)
		b.WriteByte('\n')
		last := i == len(lines)-1
		if !placed && (f.Pos <= start+n || last) {
			col := max(f.Pos-start, 0)
			b.WriteString("  | ")
			b.WriteString(strings.Repeat(" ", col))
			b.WriteString("^\n")
			placed = true
		}
		start += n + 1
	}

	if f.Help != "" {
		b.WriteString("help: ")
		b.WriteString(f.Help)
	}
	return strings.TrimRight(b.String(), "\n")
}
