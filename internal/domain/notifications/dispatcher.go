package notifications

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"highlight-bot/internal/domain/matcher"
	"highlight-bot/internal/domain/rules"
	"highlight-bot/internal/infra/logger"
)

// DM — готовое личное сообщение: заголовок текстом, дайджест во вложении и
// ссылка на исходное сообщение отдельным полем вложения.
type DM struct {
	User    rules.ID
	Header  string
	Digest  string
	JumpURL string
}

// Source — доступ платформы к контексту исходного сообщения.
type Source interface {
	// Around возвращает до n сообщений перед и после messageID в хронологическом порядке.
	Around(ctx context.Context, channelID, messageID rules.ID, n int) (before, after []Message, err error)
	GuildName(guildID rules.ID) string
	JumpURL(guildID, channelID, messageID rules.ID) string
}

// Sender отправляет личное сообщение.
type Sender interface {
	SendDM(ctx context.Context, dm DM) error
}

// Runner ограничивает скорость отправки; реализуется throttle.Throttler.
type Runner interface {
	Do(ctx context.Context, fn func() error) error
}

// Provenance — тот, кто вызвал подсветку: автор сообщения или поставивший реакцию.
type Provenance struct {
	ID   rules.ID
	Name string
}

// Options — параметры дайджеста.
type Options struct {
	ContextMessages int
	ContentLimit    int
}

// Dispatcher собирает и отправляет уведомления.
type Dispatcher struct {
	source Source
	sender Sender
	runner Runner
	opts   Options
}

// NewDispatcher создаёт диспетчер. runner может быть nil: тогда без ограничения скорости.
func NewDispatcher(source Source, sender Sender, runner Runner, opts Options) *Dispatcher {
	return &Dispatcher{source: source, sender: sender, runner: runner, opts: opts}
}

// Build собирает DM без отправки. Ошибка загрузки контекста не фатальна:
// дайджест тогда состоит из одного исходного сообщения.
func (d *Dispatcher) Build(ctx context.Context, user rules.ID, e *matcher.Event, by Provenance, ruleNames []string) DM {
	var before, after []Message
	if d.opts.ContextMessages > 0 {
		var err error
		before, after, err = d.source.Around(ctx, e.ChannelID, e.MessageID, d.opts.ContextMessages)
		if err != nil {
			logger.Warn("notify: context messages unavailable",
				zap.Stringer("channel", e.ChannelID), zap.Stringer("message", e.MessageID), zap.Error(err))
			before, after = nil, nil
		}
	}
	trigger := Message{ID: e.MessageID, AuthorName: e.AuthorName, Content: e.Content, CreatedAt: e.CreatedAt}

	header := Header{
		Rules:          ruleNames,
		ChannelID:      e.ChannelID,
		GuildName:      d.source.GuildName(e.GuildID),
		Provenance:     by.ID,
		ProvenanceName: by.Name,
	}
	return DM{
		User:    user,
		Header:  header.String(),
		Digest:  Digest(before, trigger, after, d.opts.ContentLimit),
		JumpURL: d.source.JumpURL(e.GuildID, e.ChannelID, e.MessageID),
	}
}

// Notify собирает и отправляет уведомление.
func (d *Dispatcher) Notify(ctx context.Context, user rules.ID, e *matcher.Event, by Provenance, ruleNames []string) error {
	dm := d.Build(ctx, user, e, by, ruleNames)
	send := func() error { return d.sender.SendDM(ctx, dm) }

	var err error
	if d.runner != nil {
		err = d.runner.Do(ctx, send)
	} else {
		err = send()
	}
	if err != nil {
		return errors.Wrapf(err, "send highlight to %s", user)
	}
	logger.Info("highlight sent",
		zap.Stringer("user", user), zap.Stringer("message", e.MessageID), zap.Strings("rules", ruleNames))
	return nil
}
