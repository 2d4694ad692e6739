package discord

import (
	"context"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"
	"github.com/go-faster/errors"

	"highlight-bot/internal/domain/commands"
	"highlight-bot/internal/domain/matcher"
	"highlight-bot/internal/domain/notifications"
	"highlight-bot/internal/domain/rules"
)

// REST — вызовы Discord API, которые нужны адаптеру; реализуется *discordgo.Session.
type REST interface {
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string,
		options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend,
		options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Messages загружает и отправляет сообщения.
type Messages struct {
	dir  *Directory
	rest REST
}

var (
	_ notifications.Source = (*Messages)(nil)
	_ notifications.Sender = (*Messages)(nil)
)

// NewMessages создаёт обёртку над REST API.
func NewMessages(dir *Directory, rest REST) *Messages {
	return &Messages{dir: dir, rest: rest}
}

// Event переводит сообщение Discord в событие для вычисления правил.
func (m *Messages) Event(msg *discordgo.Message) *matcher.Event {
	parent, category := m.dir.lineage(msg.ChannelID)
	e := &matcher.Event{
		MessageID:  toID(msg.ID),
		GuildID:    toID(msg.GuildID),
		ChannelID:  toID(msg.ChannelID),
		ParentID:   parent,
		CategoryID: category,
		AuthorName: displayName(msg.Author, msg.Member),
		Content:    msg.Content,
		CreatedAt:  msg.Timestamp,
	}
	if msg.Author != nil {
		e.AuthorID = toID(msg.Author.ID)
		e.AuthorBot = msg.Author.Bot
	}
	for _, r := range msg.Reactions {
		if r.Emoji == nil {
			continue
		}
		e.Reactions = append(e.Reactions, matcher.Reaction{Emoji: r.Emoji.MessageFormat(), Count: r.Count})
	}
	for _, u := range msg.Mentions {
		e.Mentions = append(e.Mentions, toID(u.ID))
	}
	return e
}

// Fetch достаёт сообщение из кэша шлюза, а если его там нет — через API.
func (m *Messages) Fetch(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	if msg, err := m.dir.state.Message(channelID, messageID); err == nil {
		return msg, nil
	}
	msg, err := m.rest.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "fetch message %s/%s", channelID, messageID)
	}
	return msg, nil
}

// Around загружает до n сообщений до и после messageID.
func (m *Messages) Around(ctx context.Context, channelID, messageID rules.ID, n int) (before, after []notifications.Message, err error) {
	ch, id := channelID.String(), messageID.String()

	older, err := m.rest.ChannelMessages(ch, n, id, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, nil, errors.Wrap(err, "messages before")
	}
	newer, err := m.rest.ChannelMessages(ch, n, "", id, "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, nil, errors.Wrap(err, "messages after")
	}
	return chronological(older), chronological(newer), nil
}

// chronological сортирует сообщения по возрастанию ID: API отдаёт их от новых к старым.
func chronological(list []*discordgo.Message) []notifications.Message {
	out := make([]notifications.Message, 0, len(list))
	for _, msg := range list {
		out = append(out, notifications.Message{
			ID:         toID(msg.ID),
			AuthorName: displayName(msg.Author, msg.Member),
			Content:    msg.Content,
			CreatedAt:  msg.Timestamp,
		})
	}
	slices.SortFunc(out, func(a, b notifications.Message) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return out
}

// GuildName — имя гильдии для заголовка уведомления.
func (m *Messages) GuildName(guildID rules.ID) string {
	if name, ok := m.dir.GuildName(guildID); ok {
		return name
	}
	return "unknown server"
}

// JumpURL — ссылка на сообщение.
func (m *Messages) JumpURL(guildID, channelID, messageID rules.ID) string {
	guild := "@me"
	if guildID != 0 {
		guild = guildID.String()
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guild, channelID, messageID)
}

// SendDM отправляет уведомление в личные сообщения. Отказы 4xx (закрытые ЛС,
// нет доступа) помечаются как неповторяемые.
func (m *Messages) SendDM(ctx context.Context, dm notifications.DM) error {
	ch, err := m.rest.UserChannelCreate(dm.User.String(), discordgo.WithContext(ctx))
	if err != nil {
		return classify(errors.Wrap(err, "open dm channel"))
	}
	_, err = m.rest.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
		Content: dm.Header,
		Embeds: []*discordgo.MessageEmbed{{
			Description: dm.Digest,
			Fields:      []*discordgo.MessageEmbedField{{Name: "​", Value: dm.JumpURL}},
		}},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return classify(errors.Wrap(err, "send dm"))
	}
	return nil
}

// Reply отвечает на сообщение с командой.
func (m *Messages) Reply(ctx context.Context, channelID, messageID string, r commands.Reply) error {
	send := toMessageSend(r)
	send.Reference = &discordgo.MessageReference{ChannelID: channelID, MessageID: messageID}
	if _, err := m.rest.ChannelMessageSendComplex(channelID, send, discordgo.WithContext(ctx)); err != nil {
		return errors.Wrap(err, "reply")
	}
	return nil
}

func toMessageSend(r commands.Reply) *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		Content: r.Text,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}
	if r.Embed == nil {
		return send
	}
	embed := &discordgo.MessageEmbed{Title: r.Embed.Title, Description: r.Embed.Description}
	if r.Embed.Author != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{Name: r.Embed.Author}
	}
	if r.Embed.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: r.Embed.Footer}
	}
	for _, f := range r.Embed.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value})
	}
	send.Embeds = []*discordgo.MessageEmbed{embed}
	return send
}
