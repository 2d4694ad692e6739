package discord

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"highlight-bot/internal/domain/commands"
	"highlight-bot/internal/domain/highlights"
	"highlight-bot/internal/domain/matcher"
	"highlight-bot/internal/domain/notifications"
	"highlight-bot/internal/infra/concurrency"
	"highlight-bot/internal/infra/logger"
)

// Intents — события шлюза, которые нужны боту. Участники и содержимое сообщений —
// привилегированные интенты, их надо включить в панели разработчика.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsGuildMessageTyping |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsDirectMessageReactions |
	discordgo.IntentsDirectMessageTyping |
	discordgo.IntentsMessageContent

// NewSession создаёт сессию бота. Повторы при 429 выключены: ими занимается
// throttle.Throttler через RetryAfterExtractor.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, errors.Wrap(err, "create discord session")
	}
	s.Identify.Intents = Intents
	s.ShouldRetryOnRateLimit = false
	s.StateEnabled = true
	s.State.TrackVoice = true
	s.State.TrackMembers = true
	s.State.MaxMessageCount = 0
	return s, nil
}

// Dispatcher — вход команд; реализуется commands.Router.
type Dispatcher interface {
	Execute(ctx context.Context, c commands.Caller, line string, subject *matcher.Event) (commands.Reply, error)
}

// Gateway подписывается на события шлюза и раздаёт их конвейеру подсветок и командам.
type Gateway struct {
	session *discordgo.Session
	msgs    *Messages
	svc     *highlights.Service
	cmds    Dispatcher
	dedup   *concurrency.Deduplicator

	runMu    sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	removers []func()
	wg       sync.WaitGroup
}

// NewGateway связывает сессию с обработчиками.
func NewGateway(session *discordgo.Session, msgs *Messages, svc *highlights.Service, cmds Dispatcher,
	dedup *concurrency.Deduplicator) *Gateway {
	return &Gateway{session: session, msgs: msgs, svc: svc, cmds: cmds, dedup: dedup}
}

// Start регистрирует обработчики и открывает соединение со шлюзом.
func (g *Gateway) Start(ctx context.Context) error {
	g.runMu.Lock()
	defer g.runMu.Unlock()
	if g.cancel != nil {
		return nil
	}

	g.ctx, g.cancel = context.WithCancel(ctx)
	g.removers = []func(){
		g.session.AddHandler(g.onReady),
		g.session.AddHandler(g.onGuildCreate),
		g.session.AddHandler(g.onMessageCreate),
		g.session.AddHandler(g.onMessageUpdate),
		g.session.AddHandler(g.onReactionAdd),
		g.session.AddHandler(g.onReactionRemove),
		g.session.AddHandler(g.onTyping),
	}
	if err := g.session.Open(); err != nil {
		g.detachLocked()
		return errors.Wrap(err, "open discord gateway")
	}
	return nil
}

// Stop снимает обработчики, дожидается уже запущенных и закрывает соединение.
func (g *Gateway) Stop() {
	g.runMu.Lock()
	defer g.runMu.Unlock()
	if g.cancel == nil {
		return
	}
	g.detachLocked()
	g.wg.Wait()
	if err := g.session.Close(); err != nil {
		logger.Warn("discord: close session", zap.Error(err))
	}
}

func (g *Gateway) detachLocked() {
	for _, remove := range g.removers {
		remove()
	}
	g.removers = nil
	g.cancel()
	g.cancel = nil
}

// track оборачивает обработчик, чтобы Stop мог дождаться его завершения.
func (g *Gateway) track() (context.Context, func(), bool) {
	g.runMu.Lock()
	defer g.runMu.Unlock()
	if g.cancel == nil {
		return nil, nil, false
	}
	g.wg.Add(1)
	return g.ctx, g.wg.Done, true
}

func (g *Gateway) selfID() string {
	if u := g.session.State.User; u != nil {
		return u.ID
	}
	return ""
}

func (g *Gateway) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	logger.Info("discord: ready", zap.String("user", r.User.String()), zap.Int("guilds", len(r.Guilds)))
}

// onGuildCreate запрашивает полный список участников: без него проверка
// членства и прав работает только по тем, кто уже писал.
func (g *Gateway) onGuildCreate(s *discordgo.Session, gc *discordgo.GuildCreate) {
	if err := s.RequestGuildMembers(gc.ID, "", 0, "", false); err != nil {
		logger.Warn("discord: request guild members", zap.String("guild", gc.ID), zap.Error(err))
	}
}

func (g *Gateway) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	ctx, done, ok := g.track()
	if !ok {
		return
	}
	defer done()
	if m.Author == nil {
		return
	}
	if g.dedup.Seen("message:" + m.ID) {
		return
	}

	e := g.msgs.Event(m.Message)
	g.svc.OnMessage(ctx, e)

	if m.Author.Bot || m.Author.ID == g.selfID() {
		return
	}
	prefix, line, ok := commandLine(m.Content, g.selfID())
	if !ok {
		return
	}

	subject := e
	if m.ReferencedMessage != nil {
		subject = g.msgs.Event(m.ReferencedMessage)
	}
	caller := commands.Caller{
		User:    e.AuthorID,
		Name:    e.AuthorName,
		GuildID: e.GuildID,
		Prefix:  prefix,
	}
	reply, err := g.cmds.Execute(ctx, caller, line, subject)
	if err != nil {
		logger.Error("command failed", zap.String("line", line), zap.Error(err))
		reply = commands.Reply{Text: "Something went wrong, try again later."}
	}
	if err := g.msgs.Reply(ctx, m.ChannelID, m.ID, reply); err != nil {
		logger.Warn("discord: reply to command", zap.String("channel", m.ChannelID), zap.Error(err))
	}
}

// commandLine отрезает упоминание бота в начале сообщения.
func commandLine(content, selfID string) (prefix, line string, ok bool) {
	if selfID == "" {
		return "", "", false
	}
	for _, p := range []string{"<@" + selfID + ">", "<@!" + selfID + ">"} {
		if rest, found := strings.CutPrefix(content, p); found {
			return "<@" + selfID + ">", strings.TrimSpace(rest), true
		}
	}
	return "", "", false
}

func (g *Gateway) onMessageUpdate(_ *discordgo.Session, m *discordgo.MessageUpdate) {
	if m.Author == nil {
		return
	}
	g.svc.OnMessageEdit(toID(m.ChannelID), toID(m.Author.ID))
}

func (g *Gateway) onReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	ctx, done, ok := g.track()
	if !ok {
		return
	}
	defer done()

	emoji := r.Emoji.MessageFormat()
	if g.dedup.Seen("reaction:" + r.MessageID + ":" + r.UserID + ":" + emoji) {
		g.svc.OnRepeatedReaction(toID(r.ChannelID), toID(r.UserID))
		return
	}
	by := notifications.Provenance{ID: toID(r.UserID)}
	if r.Member != nil {
		by.Name = displayName(r.Member.User, r.Member)
	}
	// Событие без гильдии только отмечает активность.
	activityOnly := &matcher.Event{ChannelID: toID(r.ChannelID)}
	if r.GuildID == "" {
		g.svc.OnReactionAdd(ctx, activityOnly, by, emoji)
		return
	}

	msg, err := g.msgs.Fetch(ctx, r.ChannelID, r.MessageID)
	if err != nil {
		logger.Warn("discord: reaction target unavailable", zap.String("message", r.MessageID), zap.Error(err))
		g.svc.OnReactionAdd(ctx, activityOnly, by, emoji)
		return
	}
	if msg.GuildID == "" {
		msg.GuildID = r.GuildID
	}
	g.svc.OnReactionAdd(ctx, g.msgs.Event(msg), by, emoji)
}

func (g *Gateway) onReactionRemove(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
	g.svc.OnReactionRemove(toID(r.ChannelID), toID(r.UserID))
}

func (g *Gateway) onTyping(_ *discordgo.Session, t *discordgo.TypingStart) {
	g.svc.OnTyping(toID(t.ChannelID), toID(t.UserID), time.Unix(int64(t.Timestamp), 0))
}
