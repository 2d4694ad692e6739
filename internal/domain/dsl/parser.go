// Package dsl — разбор текстового синтаксиса правил подсветки.
//
// Правило — последовательность условий через пробелы:
//
//	"строка"             литерал (любая пара кавычек, см. rules/quotes.go)
//	/regex/is            регулярное выражение с флагами i и s
//	+👍                  реакция (один эмодзи, серверный или Unicode)
//	guild:имя|id         также server:
//	channel:#имя|<#id>   также in:; совпадает и с тредами внутри канала
//	exact_channel:id     только сам канал
//	author:имя|<@id>     также from:, user:
//	bot                  автор — бот
//	noglobal             правило не подчиняется глобальному правилу
//
// Префикс ! или - инвертирует условие (кроме реакций). Пробелы и обратные
// кавычки между условиями игнорируются.
//
// Разбор рекурсивным спуском по рунам; каждая ошибка — *Failure с позицией и
// подсказкой, готовая для показа пользователю.
package dsl

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"highlight-bot/internal/domain/rules"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/runenames"
)

// Result — итог разбора: условия в порядке появления (без свёртки) и флаг noglobal.
type Result struct {
	Conditions []rules.Condition
	NoGlobal   bool
}

// Parse разбирает text. guild — гильдия, в контексте которой пишется правило:
// по ней резолвятся имена каналов и участников.
func Parse(text string, guild rules.ID, res Resolver) (Result, error) {
	if res == nil {
		res = NumericResolver{}
	}
	p := &parser{cur: newCursor(text), guild: guild, res: res}

	var out Result
	p.cur.skipSpace()
	for !p.cur.eof() {
		cond, noglobal, err := p.condition()
		if err != nil {
			return Result{}, err
		}
		if noglobal {
			out.NoGlobal = true
		} else {
			out.Conditions = append(out.Conditions, cond)
		}
		p.cur.skipSpace()
	}
	return out, nil
}

// ParseRule разбирает text и собирает правило name со свёрнутыми условиями.
func ParseRule(name, text string, guild rules.ID, res Resolver) (rules.Rule, error) {
	r, err := Parse(text, guild, res)
	if err != nil {
		return rules.Rule{}, err
	}
	return rules.Rule{Name: name, Conditions: rules.Merge(r.Conditions), NoGlobal: r.NoGlobal}, nil
}

type parser struct {
	cur   *cursor
	guild rules.ID
	res   Resolver
}

const (
	helpEscape     = "you can only escape backslashes and ending quotes"
	helpEmptyText  = "if you want to match any message, you don't need to provide a string condition"
	helpEmptyRegex = "if you want to match any message, you don't need to provide a regex"
	helpFlags      = "only `i` and `s` are supported"
	helpUnknown    = "wrap literal strings in quotes and regular expressions in slashes"
	helpReaction   = "a reaction condition matches messages that have that reaction; it cannot be inverted"
)

// condition разбирает одно условие. Второе значение — встретился noglobal.
func (p *parser) condition() (rules.Condition, bool, error) {
	c := p.cur
	negate := false
	if r := c.peek(); r == '!' || r == '-' {
		c.advance(1)
		c.skipSpace()
		negate = true
	}

	var (
		cond rules.Condition
		err  error
	)
	switch r := c.peek(); {
	case r == eofRune:
		return nil, false, c.fail(ErrSyntax, "reached EOF while parsing a condition", "")
	case isOpenQuote(r):
		cond, err = p.literal()
	case r == '/':
		cond, err = p.regex()
	case r == '+':
		if negate {
			return nil, false, c.fail(ErrSyntax, "reactions cannot be negated", helpReaction)
		}
		cond, err = p.reaction()
	case c.consumeLiteral("guild:") || c.consumeLiteral("server:"):
		cond, err = p.guildCond()
	case c.consumeLiteral("exact_channel:"):
		cond, err = p.channelCond(true)
	case c.consumeLiteral("channel:") || c.consumeLiteral("in:"):
		cond, err = p.channelCond(false)
	case c.consumeLiteral("author:") || c.consumeLiteral("from:") || c.consumeLiteral("user:"):
		cond, err = p.authorCond()
	case c.consumeLiteral("noglobal"):
		return nil, true, nil
	case c.consumeLiteral("bot"):
		cond = rules.Bot{}
	default:
		return nil, false, c.fail(ErrSyntax,
			fmt.Sprintf("unknown start of token '%c' (%s)", r, runeName(r)), helpUnknown)
	}
	if err != nil {
		return nil, false, err
	}
	if negate {
		cond = rules.Negate(cond)
	}
	return cond, false, nil
}

func isOpenQuote(r rune) bool {
	_, ok := rules.ClosingQuote(r)
	return ok
}

// literal: текст между парными кавычками; экранируются только \ и закрывающая кавычка.
func (p *parser) literal() (rules.Condition, error) {
	c := p.cur
	end, _ := rules.ClosingQuote(c.peek())
	c.advance(1)

	var b strings.Builder
	for c.peek() != end {
		if c.eof() {
			return nil, c.fail(ErrSyntax, "reached EOF while parsing quoted string", "")
		}
		r := c.peek()
		if r != '\\' {
			b.WriteRune(r)
			c.advance(1)
			continue
		}
		c.advance(1)
		switch c.peek() {
		case '\\', end:
			b.WriteRune(c.peek())
			c.advance(1)
		default:
			return nil, c.fail(ErrSyntax, "invalid escape", helpEscape)
		}
	}
	c.advance(1)

	if b.Len() == 0 {
		return nil, c.fail(ErrSyntax, "string cannot be empty", helpEmptyText)
	}
	return rules.Literal{Text: b.String()}, nil
}

// regex: /pattern/flags. Экранированный слэш остаётся в шаблоне как \/.
func (p *parser) regex() (rules.Condition, error) {
	c := p.cur
	c.advance(1)

	var b strings.Builder
	escaping := false
	for {
		if c.eof() {
			return nil, c.fail(ErrSyntax, "reached EOF while parsing regular expression", "")
		}
		r := c.peek()
		c.advance(1)
		if r == '/' && !escaping {
			break
		}
		b.WriteRune(r)
		escaping = r == '\\' && !escaping
	}

	var flags []rune
	for !c.eof() && unicode.IsLetter(c.peek()) {
		f := c.peek()
		if f != 'i' && f != 's' {
			return nil, c.fail(ErrSyntax, "invalid flag", helpFlags)
		}
		if slices.Contains(flags, f) {
			return nil, c.fail(ErrSyntax, "flag repeated", "")
		}
		flags = append(flags, f)
		c.advance(1)
	}
	slices.Sort(flags)

	pattern := b.String()
	if err := validateRegex(pattern, string(flags)); err != nil {
		if errors.Is(err, errEmptyMatch) {
			return nil, c.fail(ErrInvalidRegex, "regex should not match the empty string", helpEmptyRegex)
		}
		return nil, c.fail(ErrInvalidRegex, "regex is invalid: "+err.Error(), "")
	}
	return rules.Regex{Pattern: pattern, Flags: string(flags)}, nil
}

// reaction: + и ровно один эмодзи.
func (p *parser) reaction() (rules.Condition, error) {
	c := p.cur
	c.advance(1)
	emoji, end, ok := lexEmoji(c.src, c.pos)
	if !ok {
		return nil, c.fail(ErrSyntax, "expected an emoji after '+'", "")
	}
	c.pos = end
	return rules.Reaction{Emoji: emoji}, nil
}

var (
	channelMention = regexp.MustCompile(`^<#([0-9]+)>$`)
	userMention    = regexp.MustCompile(`^<@!?([0-9]+)>$`)
)

func (p *parser) guildCond() (rules.Condition, error) {
	start := p.cur.pos
	w, err := p.cur.word()
	if err != nil {
		return nil, err
	}
	id, ok := p.res.ResolveGuild(w)
	if !ok {
		return nil, p.cur.failAt(start, ErrUnknownEntity, "unknown guild", "")
	}
	return rules.Guild{IDs: []rules.ID{id}}, nil
}

func (p *parser) channelCond(exact bool) (rules.Condition, error) {
	start := p.cur.pos
	w, err := p.cur.word()
	if err != nil {
		return nil, err
	}
	if m := channelMention.FindStringSubmatch(w); m != nil {
		w = m[1]
	}
	id, ok := p.res.ResolveChannel(p.guild, strings.TrimPrefix(w, "#"))
	if !ok {
		return nil, p.cur.failAt(start, ErrUnknownEntity, "unknown channel", "")
	}
	return rules.Channel{IDs: []rules.ID{id}, Exact: exact}, nil
}

func (p *parser) authorCond() (rules.Condition, error) {
	start := p.cur.pos
	w, err := p.cur.word()
	if err != nil {
		return nil, err
	}
	if m := userMention.FindStringSubmatch(w); m != nil {
		w = m[1]
	}
	id, ok := p.res.ResolveUser(p.guild, w)
	if !ok {
		return nil, p.cur.failAt(start, ErrUnknownEntity, "unknown user", "")
	}
	return rules.Author{IDs: []rules.ID{id}}, nil
}

// runeName — имя символа Unicode в Title Case, как в сообщениях об ошибках.
// Caser хранит состояние, поэтому создаётся на каждый вызов.
func runeName(r rune) string {
	name := runenames.Name(r)
	if name == "" {
		return fmt.Sprintf("U+%04X", r)
	}
	return cases.Title(language.Und).String(name)
}
