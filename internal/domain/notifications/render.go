// Package notifications — текст личных сообщений о подсветке и их доставка.
//
// Уведомление состоит из заголовка и дайджеста. Заголовок называет сработавшие
// правила, канал, гильдию и того, кто вызвал подсветку. Дайджест содержит
// несколько сообщений до и после исходного, а исходное выделено жирным.
package notifications

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"highlight-bot/internal/domain/rules"
)

// EnglishList склеивает элементы по-английски: "a", "a and b", "a, b, and c".
func EnglishList(items []string, merger string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " " + merger + " " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", " + merger + " " + items[len(items)-1]
	}
}

// markdownSpecial — символы разметки Discord, которые экранируются обратным слешем.
const markdownSpecial = "\\*_~`|>"

// EscapeMarkdown экранирует разметку Discord, чтобы чужой текст в дайджесте
// не ломал форматирование. Цитата ">" экранируется в любой позиции.
func EscapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(markdownSpecial, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Truncate обрезает s до limit символов и дописывает "...", если было что резать.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

// Repr показывает строку пользователю в кавычках: одинарных, а если в строке
// есть одинарная кавычка и нет двойной, то в двойных.
func Repr(name string) string {
	if strings.ContainsRune(name, '\'') && !strings.ContainsRune(name, '"') {
		return `"` + name + `"`
	}
	return "'" + strings.ReplaceAll(name, "'", `\'`) + "'"
}

// Header — данные заголовка уведомления.
type Header struct {
	Rules      []string
	ChannelID  rules.ID
	GuildName  string
	Provenance rules.ID
	// ProvenanceName — отображаемое имя того, кто вызвал подсветку.
	ProvenanceName string
}

// String рендерит заголовок:
//
//	Highlight 'go' in <#1> (on **Guild**) by <@2> (Name)
func (h Header) String() string {
	quoted := make([]string, len(h.Rules))
	for i, name := range h.Rules {
		quoted[i] = Repr(name)
	}
	noun := "Highlights"
	if len(h.Rules) == 1 {
		noun = "Highlight"
	}
	return fmt.Sprintf("%s %s in %s (on **%s**) by %s (%s)",
		noun, EnglishList(quoted, "and"), ChannelMention(h.ChannelID), h.GuildName,
		UserMention(h.Provenance), h.ProvenanceName)
}

// ChannelMention — упоминание канала в разметке Discord.
func ChannelMention(id rules.ID) string { return "<#" + id.String() + ">" }

// UserMention — упоминание пользователя в разметке Discord.
func UserMention(id rules.ID) string { return "<@" + id.String() + ">" }

// Timestamp — метка времени Discord в коротком формате (только время).
func Timestamp(t time.Time) string { return fmt.Sprintf("<t:%d:t>", t.Unix()) }

// Message — одно сообщение канала для дайджеста.
type Message struct {
	ID         rules.ID
	AuthorName string
	Content    string
	CreatedAt  time.Time
}

// Digest собирает строки дайджеста: before, затем trigger жирным, затем after.
// Содержимое обрезается до limit символов и экранируется.
func Digest(before []Message, trigger Message, after []Message, limit int) string {
	lines := make([]string, 0, len(before)+1+len(after))
	line := func(m Message, bold bool) string {
		head := "[" + Timestamp(m.CreatedAt) + "] " + EscapeMarkdown(m.AuthorName)
		if bold {
			head = "**" + head + "**"
		}
		return head + ": " + EscapeMarkdown(Truncate(m.Content, limit))
	}
	for _, m := range before {
		lines = append(lines, line(m, false))
	}
	lines = append(lines, line(trigger, true))
	for _, m := range after {
		lines = append(lines, line(m, false))
	}
	return strings.Join(lines, "\n")
}
