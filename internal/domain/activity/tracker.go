// Package activity — учёт активности пользователей в каналах и дебаунс подсветок.
//
// Две таблицы живут всё время работы процесса и не вычищаются:
//   - lastActive[(канал, пользователь)] — когда пользователь последний раз
//     проявлял активность в канале (писал, печатал, ставил/снимал реакцию,
//     правил сообщение, а при включённой настройке — был упомянут);
//   - lastHighlight[ключ] — когда последний раз пропущена подсветка. Ключ —
//     (канал, пользователь) при общем дебаунсе или (канал, пользователь, правило).
//
// Таблицы защищены одним мьютексом: обработчики событий и отложенные перепроверки
// работают из разных горутин.
package activity

import (
	"sync"
	"time"

	"highlight-bot/internal/domain/rules"
)

type channelUser struct {
	channel rules.ID
	user    rules.ID
}

type debounceKey struct {
	channel rules.ID
	user    rules.ID
	rule    string
	all     bool
}

// Tracker хранит таблицы активности и дебаунса.
type Tracker struct {
	mu            sync.Mutex
	now           func() time.Time
	lastActive    map[channelUser]time.Time
	lastHighlight map[debounceKey]time.Time
}

// NewTracker создаёт пустые таблицы. now — источник времени; nil означает time.Now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		now:           now,
		lastActive:    make(map[channelUser]time.Time),
		lastHighlight: make(map[debounceKey]time.Time),
	}
}

// Now возвращает текущее время по часам трекера.
func (t *Tracker) Now() time.Time { return t.now() }

// MarkActive записывает активность пользователя в канале на момент at.
// Время только растёт: события шлюза приходят не по порядку, а у typing
// метка с точностью до секунды.
func (t *Tracker) MarkActive(channel, user rules.ID, at time.Time) {
	key := channelUser{channel, user}
	t.mu.Lock()
	if at.After(t.lastActive[key]) {
		t.lastActive[key] = at
	}
	t.mu.Unlock()
}

// Touch — MarkActive на текущий момент.
func (t *Tracker) Touch(channel, user rules.ID) { t.MarkActive(channel, user, t.now()) }

// LastActive возвращает время последней активности; нулевое время — активности не было.
func (t *Tracker) LastActive(channel, user rules.ID) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastActive[channelUser{channel, user}]
}

// ActiveWithin сообщает, что между last и now прошло не больше window.
// Нулевой last (активности не было) никогда не считается активным.
func ActiveWithin(last, now time.Time, window time.Duration) bool {
	return !last.IsZero() && now.Sub(last) <= window
}

// AdvancedSince сообщает, была ли активность строго позже start.
func (t *Tracker) AdvancedSince(channel, user rules.ID, start time.Time) bool {
	return t.LastActive(channel, user).After(start)
}

// Debounce отбирает из candidates правила, которые можно подсветить сейчас.
//
// Правило проходит, если с прошлой пропущенной подсветки по его ключу прошло
// больше s.Debounce(). Прошедшее правило обновляет отметку. Подавленное
// обновляет её только при скользящем окне (DebounceFixedWindow() == false).
// При общем дебаунсе проверка делается один раз на (канал, пользователь), и
// результат применяется ко всему списку сразу.
func (t *Tracker) Debounce(channel, user rules.ID, s rules.Settings, candidates []string) []string {
	if len(candidates) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()

	if s.DebounceAll() {
		if t.checkLocked(debounceKey{channel: channel, user: user, all: true}, s, now) {
			return candidates
		}
		return nil
	}

	out := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if t.checkLocked(debounceKey{channel: channel, user: user, rule: name}, s, now) {
			out = append(out, name)
		}
	}
	return out
}

func (t *Tracker) checkLocked(key debounceKey, s rules.Settings, now time.Time) bool {
	if last, ok := t.lastHighlight[key]; ok && now.Sub(last) <= s.Debounce() {
		if !s.DebounceFixedWindow() {
			t.lastHighlight[key] = now
		}
		return false
	}
	t.lastHighlight[key] = now
	return true
}

// Stats — размеры таблиц, для диагностики.
func (t *Tracker) Stats() (active, highlights int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastActive), len(t.lastHighlight)
}
