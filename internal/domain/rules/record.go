package rules

import (
	"encoding/json"
	"fmt"
)

// ConditionRecord — хранимое представление условия. Поле Type совпадает с Kind.
// ID — устаревшая форма одиночной идентичности (записи до свёртки в множества),
// читается, но не пишется.
type ConditionRecord struct {
	Type   Kind   `json:"type"`
	Negate bool   `json:"negate"`
	Text   string `json:"text,omitempty"`
	Regex  string `json:"regex,omitempty"`
	Flags  string `json:"flags,omitempty"`
	Emoji  string `json:"emoji,omitempty"`
	IDs    []ID   `json:"ids,omitempty"`
	ID     ID     `json:"id,omitempty"`
}

// RuleRecord — хранимое представление правила.
type RuleRecord struct {
	Name     string            `json:"name"`
	Filters  []ConditionRecord `json:"filters"`
	NoGlobal bool              `json:"noglobal"`
}

// ToRecord переводит условие в хранимую форму.
func ToRecord(c Condition) ConditionRecord {
	rec := ConditionRecord{Type: c.Kind(), Negate: c.Negated()}
	switch v := c.(type) {
	case Literal:
		rec.Text = v.Text
	case Regex:
		rec.Regex = v.Pattern
		rec.Flags = v.Flags
	case Reaction:
		rec.Emoji = v.Emoji
	case Guild:
		rec.IDs = v.IDs
	case Channel:
		rec.IDs = v.IDs
	case Author:
		rec.IDs = v.IDs
	case Bot:
	}
	return rec
}

// FromRecord восстанавливает условие. Неизвестный тип — ошибка.
func FromRecord(rec ConditionRecord) (Condition, error) {
	ids := rec.IDs
	if len(ids) == 0 && rec.ID != 0 {
		ids = []ID{rec.ID}
	}
	ids = NormalizeIDs(ids)

	switch rec.Type {
	case KindLiteral:
		return Literal{Text: rec.Text, Negate: rec.Negate}, nil
	case KindRegex:
		return Regex{Pattern: rec.Regex, Flags: rec.Flags, Negate: rec.Negate}, nil
	case KindReaction:
		return Reaction{Emoji: rec.Emoji}, nil
	case KindGuild:
		return Guild{IDs: ids, Negate: rec.Negate}, nil
	case KindChannel:
		return Channel{IDs: ids, Negate: rec.Negate}, nil
	case KindExactChannel:
		return Channel{IDs: ids, Exact: true, Negate: rec.Negate}, nil
	case KindAuthor:
		return Author{IDs: ids, Negate: rec.Negate}, nil
	case KindBot:
		return Bot{Negate: rec.Negate}, nil
	default:
		return nil, fmt.Errorf("unknown condition type %q", rec.Type)
	}
}

// MarshalJSON пишет правило в формате RuleRecord.
func (r Rule) MarshalJSON() ([]byte, error) {
	rec := RuleRecord{
		Name:     r.Name,
		Filters:  make([]ConditionRecord, 0, len(r.Conditions)),
		NoGlobal: r.NoGlobal,
	}
	for _, c := range r.Conditions {
		rec.Filters = append(rec.Filters, ToRecord(c))
	}
	return json.Marshal(rec)
}

// UnmarshalJSON читает RuleRecord. Условия прогоняются через Merge, поэтому
// старые несвёрнутые записи сразу приводятся к каноничному виду.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var rec RuleRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	conds := make([]Condition, 0, len(rec.Filters))
	for i, f := range rec.Filters {
		c, err := FromRecord(f)
		if err != nil {
			return fmt.Errorf("rule %q filter %d: %w", rec.Name, i, err)
		}
		conds = append(conds, c)
	}
	*r = Rule{Name: rec.Name, Conditions: Merge(conds), NoGlobal: rec.NoGlobal}
	return nil
}
