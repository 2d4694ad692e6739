package rules

import (
	"slices"
	"time"
)

// GlobalRuleName — имя особого правила, которое само не уведомляет, а служит
// «воротами» для всех остальных правил пользователя.
const GlobalRuleName = "global"

// Rule — именованная конъюнкция условий. NoGlobal освобождает правило от
// проверки глобального правила.
type Rule struct {
	Name       string
	Conditions []Condition
	NoGlobal   bool
}

// IsGlobal сообщает, является ли правило глобальным.
func (r Rule) IsGlobal() bool { return r.Name == GlobalRuleName }

// HasReaction сообщает, есть ли в правиле хотя бы одно условие-реакция.
func (r Rule) HasReaction() bool {
	return slices.ContainsFunc(r.Conditions, func(c Condition) bool {
		_, ok := c.(Reaction)
		return ok
	})
}

// Profile — всё, что хранится про одного пользователя: его правила, флаг
// включённости, блок-лист (авторы и каналы) и персональные настройки.
// Настройки встраиваются, поэтому в JSON лежат на верхнем уровне записи.
type Profile struct {
	Highlights []Rule `json:"highlights"`
	Enabled    *bool  `json:"enabled,omitempty"`
	Blocked    []ID   `json:"blocked,omitempty"`
	Settings
}

// IsEnabled — по умолчанию профиль включён.
func (p *Profile) IsEnabled() bool { return p.Enabled == nil || *p.Enabled }

// SetEnabled выставляет флаг включённости. Возвращает false, если значение не изменилось.
func (p *Profile) SetEnabled(v bool) bool {
	if p.IsEnabled() == v {
		return false
	}
	p.Enabled = &v
	return true
}

// Find возвращает индекс правила с именем name или -1.
func (p *Profile) Find(name string) int {
	return slices.IndexFunc(p.Highlights, func(r Rule) bool { return r.Name == name })
}

// Global возвращает глобальное правило, если оно задано.
func (p *Profile) Global() (Rule, bool) {
	if i := p.Find(GlobalRuleName); i >= 0 {
		return p.Highlights[i], true
	}
	return Rule{}, false
}

// Upsert заменяет правило с тем же именем или добавляет новое в конец.
// Возвращает true, если правило было заменено.
func (p *Profile) Upsert(r Rule) bool {
	if i := p.Find(r.Name); i >= 0 {
		p.Highlights[i] = r
		return true
	}
	p.Highlights = append(p.Highlights, r)
	return false
}

// Remove удаляет правило по имени. Возвращает false, если его не было.
func (p *Profile) Remove(name string) bool {
	i := p.Find(name)
	if i < 0 {
		return false
	}
	p.Highlights = slices.Delete(p.Highlights, i, i+1)
	return true
}

// IsBlocked сообщает, заблокирован ли автор или канал id.
func (p *Profile) IsBlocked(id ID) bool {
	return id != 0 && slices.Contains(p.Blocked, id)
}

// Block добавляет id в блок-лист. Возвращает false, если он уже там.
func (p *Profile) Block(id ID) bool {
	if p.IsBlocked(id) {
		return false
	}
	p.Blocked = append(p.Blocked, id)
	return true
}

// Unblock удаляет id из блок-листа. Возвращает false, если его там не было.
func (p *Profile) Unblock(id ID) bool {
	i := slices.Index(p.Blocked, id)
	if i < 0 {
		return false
	}
	p.Blocked = slices.Delete(p.Blocked, i, i+1)
	return true
}

// Clone делает глубокую копию профиля: снапшоты реестра не должны делить
// срезы с редактируемой версией.
func (p *Profile) Clone() *Profile {
	out := &Profile{
		Highlights: make([]Rule, len(p.Highlights)),
		Blocked:    slices.Clone(p.Blocked),
		Settings:   p.Settings.clone(),
	}
	if p.Enabled != nil {
		v := *p.Enabled
		out.Enabled = &v
	}
	for i, r := range p.Highlights {
		r.Conditions = slices.Clone(r.Conditions)
		out.Highlights[i] = r
	}
	return out
}

// Settings — персональные настройки задержек и дебаунса. nil означает значение
// по умолчанию, так в хранилище попадают только явно изменённые ключи.
type Settings struct {
	BeforeTime      *int  `json:"before_time,omitempty"`
	AfterTime       *int  `json:"after_time,omitempty"`
	DebounceTime    *int  `json:"debounce_time,omitempty"`
	DebounceGlobal  *bool `json:"debounce_global,omitempty"`
	DebounceFixed   *bool `json:"debounce_fixed,omitempty"`
	MentionActivity *bool `json:"mention_activity,omitempty"`
}

const (
	defaultBeforeTime      = 30
	defaultAfterTime       = 10
	defaultDebounceTime    = 10
	defaultDebounceGlobal  = false
	defaultDebounceFixed   = true
	defaultMentionActivity = false
)

// Before — окно активности до события, в течение которого подсветка подавляется.
func (s Settings) Before() time.Duration { return seconds(intOr(s.BeforeTime, defaultBeforeTime)) }

// After — задержка перед повторной проверкой активности.
func (s Settings) After() time.Duration { return seconds(intOr(s.AfterTime, defaultAfterTime)) }

// Debounce — длительность окна дебаунса.
func (s Settings) Debounce() time.Duration {
	return seconds(intOr(s.DebounceTime, defaultDebounceTime))
}

// DebounceAll — один дебаунс на пару (канал, пользователь) для всех правил сразу.
func (s Settings) DebounceAll() bool { return boolOr(s.DebounceGlobal, defaultDebounceGlobal) }

// DebounceFixedWindow — фиксированное окно: подавленное срабатывание не продлевает его.
func (s Settings) DebounceFixedWindow() bool { return boolOr(s.DebounceFixed, defaultDebounceFixed) }

// MentionCountsAsActivity — упоминание пользователя считается его активностью.
func (s Settings) MentionCountsAsActivity() bool {
	return boolOr(s.MentionActivity, defaultMentionActivity)
}

func (s Settings) clone() Settings {
	return Settings{
		BeforeTime:      clonePtr(s.BeforeTime),
		AfterTime:       clonePtr(s.AfterTime),
		DebounceTime:    clonePtr(s.DebounceTime),
		DebounceGlobal:  clonePtr(s.DebounceGlobal),
		DebounceFixed:   clonePtr(s.DebounceFixed),
		MentionActivity: clonePtr(s.MentionActivity),
	}
}

func seconds(v int) time.Duration { return time.Duration(v) * time.Second }

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
