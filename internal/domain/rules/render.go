package rules

import (
	"strings"
	"unicode"
)

// Raw возвращает каноничный текст правила, который снова разбирается парсером
// в эквивалентный (с точностью до Merge) набор условий. Множества ID
// раскладываются на отдельные токены, noglobal дописывается последним.
func Raw(r Rule) string { return raw(r, false) }

// RawCommand — Raw с именем правила впереди, в виде аргументов команды add.
func RawCommand(r Rule) string { return rawCommand(r, false) }

// RawCommandMarkdown — RawCommand для сообщения в Discord: регулярные выражения
// завёрнуты в ``…``, чтобы разметка не съела * _ ~ внутри шаблона. Парсер
// пропускает обратные кавычки между условиями, так что текст можно скопировать
// в команду как есть.
func RawCommandMarkdown(r Rule) string { return rawCommand(r, true) }

func rawCommand(r Rule, markdown bool) string {
	text := raw(r, markdown)
	if text == "" {
		return QuoteName(r.Name)
	}
	return QuoteName(r.Name) + " " + text
}

func raw(r Rule, markdown bool) string {
	parts := make([]string, 0, len(r.Conditions)+1)
	for _, c := range r.Conditions {
		tokens := RawCondition(c)
		if _, isRegex := c.(Regex); isRegex && markdown {
			for i, t := range tokens {
				tokens[i] = CodeSpan(t)
			}
		}
		parts = append(parts, tokens...)
	}
	if r.NoGlobal {
		parts = append(parts, "noglobal")
	}
	return strings.Join(parts, " ")
}

// CodeSpan заворачивает s в ``…``. Обратная кавычка внутри разбивается
// пробелом нулевой ширины, иначе она закрыла бы блок.
func CodeSpan(s string) string {
	return "``" + strings.ReplaceAll(s, "`", "`\u200b") + "``"
}

// RawCondition рендерит одно условие. Для условий-множеств возвращает по токену на ID.
func RawCondition(c Condition) []string {
	neg := ""
	if c.Negated() {
		neg = "-"
	}
	switch v := c.(type) {
	case Literal:
		return []string{neg + QuoteLiteral(v.Text)}
	case Regex:
		return []string{neg + RenderPattern(v.Pattern, v.Flags)}
	case Reaction:
		return []string{"+" + v.Emoji}
	case Guild:
		return idTokens(neg, "guild", v.IDs)
	case Channel:
		return idTokens(neg, string(v.Kind()), v.IDs)
	case Author:
		return idTokens(neg, "author", v.IDs)
	case Bot:
		return []string{neg + "bot"}
	default:
		return nil
	}
}

// RenderPattern — /pattern/flags.
func RenderPattern(pattern, flags string) string {
	return "/" + pattern + "/" + flags
}

// QuoteLiteral заключает текст в двойные кавычки, экранируя обратный слэш и кавычку:
// это ровно те два символа, которые парсер разрешает экранировать.
func QuoteLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		if r == '\\' || r == '"' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// QuoteName квотирует имя правила, если без кавычек слово прочиталось бы
// иначе: пробелы, любая кавычка из таблицы, обратный слэш или пустое имя.
// Внутри кавычек экранируются \ и ".
func QuoteName(name string) string {
	if name != "" && !strings.ContainsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || IsQuote(r) || r == '\\'
	}) {
		return name
	}
	var b strings.Builder
	b.Grow(len(name) + 2)
	b.WriteByte('"')
	for _, r := range name {
		if r == '\\' || r == '"' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

func idTokens(neg, prefix string, ids []ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, neg+prefix+":"+id.String())
	}
	return out
}
