// Package rules — модель пользовательских правил подсветки (highlights).
//
// Правило — именованная конъюнкция условий (Condition). Каждое условие — один из
// закрытого набора вариантов: текстовый литерал, регулярное выражение, реакция,
// принадлежность гильдии/каналу/автору и признак бота. Набор вариантов закрыт
// неэкспортируемым методом isCondition, поэтому switch по типу в evaluator и
// рендере исчерпывающий.
//
// Инварианты:
//   - Literal/Regex не могут совпасть с пустой строкой (проверяется парсером);
//   - Reaction никогда не бывает отрицательным;
//   - множества ID (Guild/Channel/Author) отсортированы и без дублей.
package rules

import (
	"slices"
	"strconv"
)

// ID — снежинка Discord (guild, channel, user, message).
type ID uint64

// String возвращает десятичное представление ID.
func (id ID) String() string { return strconv.FormatUint(uint64(id), 10) }

// ParseID разбирает десятичную строку в ID. Пустая строка и мусор — ошибка.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

// Kind — тег варианта условия. Совпадает со значением поля "type" в хранилище.
type Kind string

const (
	KindLiteral      Kind = "literal"
	KindRegex        Kind = "regex"
	KindReaction     Kind = "react"
	KindGuild        Kind = "guild"
	KindChannel      Kind = "channel"
	KindExactChannel Kind = "exact_channel"
	KindAuthor       Kind = "author"
	KindBot          Kind = "bot"
)

// Condition — одно условие правила. Реализации перечислены ниже, других нет.
type Condition interface {
	Kind() Kind
	Negated() bool
	isCondition()
}

// Literal — регистронезависимая подстрока с границами слов.
type Literal struct {
	Text   string
	Negate bool
}

// Regex — регулярное выражение. Flags — подмножество "is" в отсортированном виде.
type Regex struct {
	Pattern string
	Flags   string
	Negate  bool
}

// Reaction — эмодзи реакции в отрендеренном виде (<:name:id> или сам символ).
type Reaction struct {
	Emoji string
}

// Guild — сообщение пришло из одной из гильдий IDs.
type Guild struct {
	IDs    []ID
	Negate bool
}

// Channel — сообщение пришло в один из каналов IDs. Без Exact совпадает и родитель
// канала (тред внутри канала, канал внутри категории).
type Channel struct {
	IDs    []ID
	Exact  bool
	Negate bool
}

// Author — автор сообщения входит в IDs.
type Author struct {
	IDs    []ID
	Negate bool
}

// Bot — автор сообщения является ботом.
type Bot struct {
	Negate bool
}

func (Literal) Kind() Kind { return KindLiteral }
func (Regex) Kind() Kind { return KindRegex }
func (Reaction) Kind() Kind { return KindReaction }
func (Guild) Kind() Kind { return KindGuild }
func (Author) Kind() Kind { return KindAuthor }
func (Bot) Kind() Kind { return KindBot }

func (c Channel) Kind() Kind {
	if c.Exact {
		return KindExactChannel
	}
	return KindChannel
}

func (c Literal) Negated() bool { return c.Negate }
func (c Regex) Negated() bool { return c.Negate }
func (Reaction) Negated() bool { return false }
func (c Guild) Negated() bool { return c.Negate }
func (c Channel) Negated() bool { return c.Negate }
func (c Author) Negated() bool { return c.Negate }
func (c Bot) Negated() bool { return c.Negate }

func (Literal) isCondition() {}
func (Regex) isCondition() {}
func (Reaction) isCondition() {}
func (Guild) isCondition() {}
func (Channel) isCondition() {}
func (Author) isCondition() {}
func (Bot) isCondition() {}

// identityIDs возвращает множество ID условия-идентичности и признак того, что
// условие вообще относится к идентичностям (guild/channel/exact_channel/author).
func identityIDs(c Condition) ([]ID, bool) {
	switch v := c.(type) {
	case Guild:
		return v.IDs, true
	case Channel:
		return v.IDs, true
	case Author:
		return v.IDs, true
	default:
		return nil, false
	}
}

// withIDs пересобирает условие-идентичность того же вида с новым множеством.
func withIDs(c Condition, ids []ID, negate bool) Condition {
	switch v := c.(type) {
	case Guild:
		return Guild{IDs: ids, Negate: negate}
	case Channel:
		return Channel{IDs: ids, Exact: v.Exact, Negate: negate}
	case Author:
		return Author{IDs: ids, Negate: negate}
	default:
		return c
	}
}

// NormalizeIDs сортирует и удаляет дубликаты. Возвращает новый срез.
func NormalizeIDs(ids []ID) []ID {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// Negate инвертирует условие. Reaction не инвертируется и возвращается как есть.
func Negate(c Condition) Condition {
	switch v := c.(type) {
	case Literal:
		v.Negate = !v.Negate
		return v
	case Regex:
		v.Negate = !v.Negate
		return v
	case Guild:
		v.Negate = !v.Negate
		return v
	case Channel:
		v.Negate = !v.Negate
		return v
	case Author:
		v.Negate = !v.Negate
		return v
	case Bot:
		v.Negate = !v.Negate
		return v
	default:
		return c
	}
}
