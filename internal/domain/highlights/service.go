// Package highlights — обработка событий гильдии: учёт активности, проверка
// правил всех пользователей, дебаунс, отложенная перепроверка и отправка.
//
// Для одного пользователя и одного события шаги идут строго по порядку:
// обновление активности, вычисление правил, дебаунс, перепроверка (только для
// свежих событий), отправка. Разные пользователи обрабатываются независимо.
package highlights

import (
	"context"
	"time"

	"go.uber.org/zap"

	"highlight-bot/internal/domain/activity"
	"highlight-bot/internal/domain/matcher"
	"highlight-bot/internal/domain/notifications"
	"highlight-bot/internal/domain/rules"
	"highlight-bot/internal/infra/logger"
)

// DefaultFreshness — события старше этого не подавляются окном активности и не
// перепроверяются.
const DefaultFreshness = 5 * time.Minute

// Presence — сведения платформы о пользователе в гильдии.
type Presence interface {
	IsMember(guildID, userID rules.ID) bool
	CanRead(channelID, userID rules.ID) bool
	// VoiceCategory возвращает категорию голосового канала, где сейчас сидит
	// пользователь. false — пользователь не в голосовом канале.
	VoiceCategory(guildID, userID rules.ID) (rules.ID, bool)
}

// Profiles — источник профилей.
type Profiles interface {
	Users() []rules.ID
	Get(user rules.ID) (*rules.Profile, bool)
}

// Notifier отправляет уведомление. Ошибки только логируются.
type Notifier interface {
	Notify(ctx context.Context, user rules.ID, e *matcher.Event, by notifications.Provenance, ruleNames []string) error
}

// Delayer откладывает продолжение; реализуется activity.Scheduler.
type Delayer interface {
	After(d time.Duration, fn func(ctx context.Context))
}

// Options — параметры сервиса.
type Options struct {
	Freshness time.Duration
}

// Service — конвейер подсветок.
type Service struct {
	profiles  Profiles
	presence  Presence
	eval      *matcher.Evaluator
	tracker   *activity.Tracker
	delayer   Delayer
	notifier  Notifier
	freshness time.Duration
}

// NewService собирает конвейер.
func NewService(profiles Profiles, presence Presence, eval *matcher.Evaluator, tracker *activity.Tracker,
	delayer Delayer, notifier Notifier, opts Options) *Service {
	if opts.Freshness <= 0 {
		opts.Freshness = DefaultFreshness
	}
	return &Service{
		profiles:  profiles,
		presence:  presence,
		eval:      eval,
		tracker:   tracker,
		delayer:   delayer,
		notifier:  notifier,
		freshness: opts.Freshness,
	}
}

// OnMessage — новое сообщение: автор становится активным, затем проверка правил.
// Личные сообщения (GuildID == 0) не проверяются.
func (s *Service) OnMessage(ctx context.Context, e *matcher.Event) {
	s.tracker.Touch(e.ChannelID, e.AuthorID)
	if e.GuildID == 0 {
		return
	}
	s.Check(ctx, e, notifications.Provenance{ID: e.AuthorID, Name: e.AuthorName}, "")
}

// OnReactionAdd — поставлена реакция emoji. Поставивший становится активным.
// Проверка запускается, только если это первая реакция такого вида.
func (s *Service) OnReactionAdd(ctx context.Context, e *matcher.Event, by notifications.Provenance, emoji string) {
	s.tracker.Touch(e.ChannelID, by.ID)
	if e.GuildID == 0 || !e.IsFirstReaction(emoji) {
		return
	}
	s.Check(ctx, e, by, emoji)
}

// OnRepeatedReaction — повтор уже обработанной реакции (переподключение шлюза):
// проверка не запускается, но поставивший всё равно активен.
func (s *Service) OnRepeatedReaction(channelID, userID rules.ID) { s.tracker.Touch(channelID, userID) }

// OnReactionRemove — снята реакция; это только активность.
func (s *Service) OnReactionRemove(channelID, userID rules.ID) { s.tracker.Touch(channelID, userID) }

// OnMessageEdit — автор правил сообщение; это только активность.
func (s *Service) OnMessageEdit(channelID, authorID rules.ID) { s.tracker.Touch(channelID, authorID) }

// OnTyping — пользователь печатает; активность отмечается временем из события.
func (s *Service) OnTyping(channelID, userID rules.ID, at time.Time) {
	s.tracker.MarkActive(channelID, userID, at)
}

// Check прогоняет событие по профилям всех пользователей. relevantReaction не
// пуст для события «поставлена реакция».
func (s *Service) Check(ctx context.Context, e *matcher.Event, by notifications.Provenance, relevantReaction string) {
	now := s.tracker.Now()
	fresh := now.Sub(e.CreatedAt) < s.freshness

	for _, user := range s.profiles.Users() {
		p, ok := s.profiles.Get(user)
		if !ok {
			continue
		}
		s.checkUser(ctx, user, p, e, by, relevantReaction, now, fresh)
	}
}

func (s *Service) checkUser(ctx context.Context, user rules.ID, p *rules.Profile, e *matcher.Event,
	by notifications.Provenance, relevantReaction string, now time.Time, fresh bool) {
	if !s.presence.IsMember(e.GuildID, user) {
		return
	}
	if p.MentionCountsAsActivity() && e.Mentioned(user) {
		s.tracker.MarkActive(e.ChannelID, user, now)
	}
	if !s.presence.CanRead(e.ChannelID, user) || !p.IsEnabled() ||
		p.IsBlocked(e.AuthorID) || p.IsBlocked(e.ChannelID) || p.IsBlocked(e.ParentID) {
		return
	}

	start := s.tracker.LastActive(e.ChannelID, user)
	suppressed := s.activityFailure(user, p, e, start, now, fresh)

	names := s.eval.Successes(p, e, relevantReaction)
	names = s.tracker.Debounce(e.ChannelID, user, p.Settings, names)
	if len(names) == 0 {
		return
	}
	if suppressed {
		logger.Debug("highlight suppressed by activity",
			zap.Stringer("user", user), zap.Stringer("channel", e.ChannelID), zap.Strings("rules", names))
		return
	}

	if !fresh {
		s.dispatch(ctx, user, e, by, names)
		return
	}
	s.delayer.After(p.After(), func(ctx context.Context) {
		if s.tracker.AdvancedSince(e.ChannelID, user, start) {
			logger.Debug("highlight cancelled: user became active",
				zap.Stringer("user", user), zap.Stringer("channel", e.ChannelID))
			return
		}
		s.dispatch(ctx, user, e, by, names)
	})
}

// activityFailure — пользователь и так видит канал. Окно активности действует
// только для свежих чужих событий. Голосовой канал в той же категории действует всегда.
func (s *Service) activityFailure(user rules.ID, p *rules.Profile, e *matcher.Event, start, now time.Time, fresh bool) bool {
	if fresh && e.AuthorID != user && activity.ActiveWithin(start, now, p.Before()) {
		return true
	}
	category, inVoice := s.presence.VoiceCategory(e.GuildID, user)
	return inVoice && category == e.CategoryID
}

func (s *Service) dispatch(ctx context.Context, user rules.ID, e *matcher.Event, by notifications.Provenance, names []string) {
	if err := s.notifier.Notify(ctx, user, e, by, names); err != nil {
		logger.Warn("highlight dropped", zap.Stringer("user", user), zap.Error(err))
	}
}
