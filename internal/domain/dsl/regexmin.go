package dsl

import (
	"errors"
	"fmt"
	"regexp"
	"regexp/syntax"
)

// minLenCap ограничивает оценку сверху: важно только отличие от нуля, а вложенные
// повторы иначе могут переполнить int.
const minLenCap = 1 << 20

// MinMatchLength возвращает минимальную длину (в рунах) строки, с которой может
// совпасть pattern. Ноль означает, что выражение совпадает с пустой строкой и
// значит с любым сообщением.
func MinMatchLength(pattern string) (int, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return 0, err
	}
	return minLength(re), nil
}

// minLength обходит AST regexp/syntax. Якоря и границы слов длины не добавляют,
// альтернатива берёт минимум из веток, повтор — нижнюю границу.
func minLength(re *syntax.Regexp) int {
	switch re.Op {
	case syntax.OpLiteral:
		return len(re.Rune)
	case syntax.OpCharClass, syntax.OpAnyChar, syntax.OpAnyCharNotNL, syntax.OpNoMatch:
		return 1
	case syntax.OpCapture, syntax.OpPlus:
		return minLength(re.Sub[0])
	case syntax.OpStar, syntax.OpQuest:
		return 0
	case syntax.OpRepeat:
		return min(re.Min*minLength(re.Sub[0]), minLenCap)
	case syntax.OpConcat:
		n := 0
		for _, sub := range re.Sub {
			n = min(n+minLength(sub), minLenCap)
		}
		return n
	case syntax.OpAlternate:
		n := -1
		for _, sub := range re.Sub {
			if m := minLength(sub); n < 0 || m < n {
				n = m
			}
		}
		return max(n, 0)
	default:
		// OpEmptyMatch, якоря, \b, \B
		return 0
	}
}

// compileFlags собирает префикс флагов Go для выражения: i — без учёта регистра,
// s — точка совпадает с переводом строки.
func compileFlags(flags string) string {
	if flags == "" {
		return ""
	}
	return "(?" + flags + ")"
}

// errEmptyMatch — выражение совпадает с пустой строкой.
var errEmptyMatch = errors.New("regex matches the empty string")

// validateRegex проверяет, что выражение компилируется с данными флагами и не
// совпадает с пустой строкой. Ошибка компиляции возвращается без общего
// префикса "error parsing regexp: ".
func validateRegex(pattern, flags string) error {
	if _, err := regexp.Compile(compileFlags(flags) + pattern); err != nil {
		return trimSyntax(err)
	}
	n, err := MinMatchLength(pattern)
	if err != nil {
		return trimSyntax(err)
	}
	if n == 0 {
		return errEmptyMatch
	}
	return nil
}

func trimSyntax(err error) error {
	var se *syntax.Error
	if errors.As(err, &se) {
		return fmt.Errorf("%s: `%s`", se.Code, se.Expr)
	}
	return err
}
