// Package matcher — вычисление правил пользователя на событии.
//
// Правило срабатывает, если все его условия (после rules.Merge) выполнены:
// для каждого условия сырой результат проверки должен быть равен !Negate.
// Первое невыполненное условие прекращает проверку правила.
//
// Особое правило "global" само не уведомляет. Если оно не выполнено, из
// результата убираются все правила без флага noglobal.
//
// Для события «поставлена реакция» (relevantReaction != "") проверяются только
// правила без условий-реакций и правила, где есть условие на именно эту реакцию.
// Если условие-реакция есть в глобальном правиле, фильтр по релевантности
// отключается: от реакции мог измениться исход глобального правила.
package matcher

import (
	"slices"

	"highlight-bot/internal/domain/rules"
)

// Evaluator проверяет правила. Безопасен для конкурентного использования.
type Evaluator struct {
	regex *RegexCache
}

// NewEvaluator создаёт вычислитель поверх кэша выражений. nil — новый кэш на RE2.
func NewEvaluator(cache *RegexCache) *Evaluator {
	if cache == nil {
		cache = NewRegexCache(nil)
	}
	return &Evaluator{regex: cache}
}

// Successes возвращает имена сработавших правил профиля в порядке их объявления.
func (ev *Evaluator) Successes(p *rules.Profile, e *Event, relevantReaction string) []string {
	if relevantReaction != "" {
		if g, ok := p.Global(); ok && g.HasReaction() {
			relevantReaction = ""
		}
	}

	globalResult := true
	var matched []rules.Rule
	for _, r := range p.Highlights {
		if r.IsGlobal() {
			if !ev.Matches(r, e) {
				globalResult = false
			}
			continue
		}
		if !isRelevant(r, relevantReaction) {
			continue
		}
		if ev.Matches(r, e) {
			matched = append(matched, r)
		}
	}

	out := make([]string, 0, len(matched))
	for _, r := range matched {
		if globalResult || r.NoGlobal {
			out = append(out, r.Name)
		}
	}
	return out
}

// Matches проверяет одно правило без учёта глобального.
func (ev *Evaluator) Matches(r rules.Rule, e *Event) bool {
	for _, c := range r.Conditions {
		if ev.test(c, e) != !c.Negated() {
			return false
		}
	}
	return true
}

func isRelevant(r rules.Rule, relevantReaction string) bool {
	if relevantReaction == "" || !r.HasReaction() {
		return true
	}
	return slices.ContainsFunc(r.Conditions, func(c rules.Condition) bool {
		re, ok := c.(rules.Reaction)
		return ok && re.Emoji == relevantReaction
	})
}

// test — сырой результат условия без учёта Negate.
func (ev *Evaluator) test(c rules.Condition, e *Event) bool {
	switch v := c.(type) {
	case rules.Literal:
		return ev.regex.Match(LiteralPattern(v.Text), "i", e.Content)
	case rules.Regex:
		return ev.regex.Match(v.Pattern, v.Flags, e.Content)
	case rules.Reaction:
		return e.HasReaction(v.Emoji)
	case rules.Guild:
		return slices.Contains(v.IDs, e.GuildID)
	case rules.Channel:
		if slices.Contains(v.IDs, e.ChannelID) {
			return true
		}
		return !v.Exact && e.ParentID != 0 && slices.Contains(v.IDs, e.ParentID)
	case rules.Author:
		return slices.Contains(v.IDs, e.AuthorID)
	case rules.Bot:
		return e.AuthorBot
	default:
		return false
	}
}
