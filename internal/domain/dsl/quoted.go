package dsl

import (
	"unicode"

	"highlight-bot/internal/domain/rules"
)

// readQuotedWord читает одно слово-аргумент, начиная с src[i].
//
// Слово либо заключено в парные кавычки (внутри экранируются открывающая и
// закрывающая кавычка и обратный слэш), либо тянется до пробела (внутри экранируется любая
// кавычка, а неэкранированная кавычка — ошибка). После закрывающей кавычки
// обязан идти пробел или конец ввода. Обратный слэш перед прочими символами
// сохраняется как есть.
//
// Возвращает слово и позицию сразу за ним. При ошибке позиция указывает на
// место, где чтение остановилось.
func readQuotedWord(src []rune, i int) (string, int, error) {
	if i >= len(src) || unicode.IsSpace(src[i]) {
		return "", i, ErrMissingWord
	}

	first := src[i]
	closeQ, quoted := rules.ClosingQuote(first)
	escapable := rules.IsQuote
	var word []rune
	if quoted {
		escapable = func(r rune) bool { return r == first || r == closeQ || r == '\\' }
	} else {
		word = append(word, first)
	}

	for {
		i++
		if i >= len(src) {
			if quoted {
				return "", i, ErrExpectedClosingQuote
			}
			return string(word), i, nil
		}

		c := src[i]
		switch {
		case c == '\\':
			if i+1 >= len(src) {
				if quoted {
					return "", i + 1, ErrExpectedClosingQuote
				}
				return string(word), i + 1, nil
			}
			if next := src[i+1]; escapable(next) {
				word = append(word, next)
				i++
			} else {
				word = append(word, c)
			}
		case !quoted && rules.IsQuote(c):
			return "", i, ErrUnexpectedQuote
		case quoted && c == closeQ:
			if i+1 < len(src) && !unicode.IsSpace(src[i+1]) {
				return "", i + 1, ErrInvalidEndOfQuote
			}
			return string(word), i + 1, nil
		case !quoted && unicode.IsSpace(c):
			return string(word), i, nil
		default:
			word = append(word, c)
		}
	}
}

// ReadWord отрезает от s первое слово-аргумент по правилам команд: ведущие
// пробелы пропускаются, слово может быть в кавычках. Возвращает слово и остаток
// строки без изменений (ведущий пробел остатка сохраняется).
func ReadWord(s string) (word, rest string, err error) {
	src := []rune(s)
	i := 0
	for i < len(src) && unicode.IsSpace(src[i]) {
		i++
	}
	word, end, err := readQuotedWord(src, i)
	if err != nil {
		return "", s, err
	}
	return word, string(src[end:]), nil
}
