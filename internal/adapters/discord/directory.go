// Package discord — адаптер платформы поверх discordgo: кэш гильдий, каналов и
// участников (discordgo.State), отображение событий шлюза в matcher.Event,
// загрузка контекста сообщений, отправка личных сообщений и ответы на команды.
package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"highlight-bot/internal/domain/commands"
	"highlight-bot/internal/domain/dsl"
	"highlight-bot/internal/domain/highlights"
	"highlight-bot/internal/domain/rules"
)

// Directory отвечает на вопросы о гильдиях, каналах и участниках по кэшу шлюза.
type Directory struct {
	state *discordgo.State
}

var (
	_ dsl.Resolver        = (*Directory)(nil)
	_ commands.Namer      = (*Directory)(nil)
	_ highlights.Presence = (*Directory)(nil)
)

// NewDirectory оборачивает кэш сессии.
func NewDirectory(state *discordgo.State) *Directory {
	return &Directory{state: state}
}

func toID(s string) rules.ID {
	id, err := rules.ParseID(s)
	if err != nil {
		return 0
	}
	return id
}

// ResolveGuild ищет гильдию по имени без учёта регистра, затем по ID.
func (d *Directory) ResolveGuild(query string) (rules.ID, bool) {
	d.state.RLock()
	for _, g := range d.state.Guilds {
		if strings.EqualFold(g.Name, query) {
			d.state.RUnlock()
			return toID(g.ID), true
		}
	}
	d.state.RUnlock()
	return dsl.NumericResolver{}.ResolveGuild(query)
}

// ResolveChannel ищет канал или тред гильдии по имени, затем по ID.
func (d *Directory) ResolveChannel(guild rules.ID, query string) (rules.ID, bool) {
	if g, err := d.state.Guild(guild.String()); err == nil {
		d.state.RLock()
		for _, list := range [][]*discordgo.Channel{g.Channels, g.Threads} {
			for _, ch := range list {
				if strings.EqualFold(ch.Name, query) {
					d.state.RUnlock()
					return toID(ch.ID), true
				}
			}
		}
		d.state.RUnlock()
	}
	return dsl.NumericResolver{}.ResolveChannel(guild, query)
}

// ResolveUser ищет участника гильдии по нику, глобальному имени, имени
// пользователя или тегу, затем по ID.
func (d *Directory) ResolveUser(guild rules.ID, query string) (rules.ID, bool) {
	if g, err := d.state.Guild(guild.String()); err == nil {
		d.state.RLock()
		for _, m := range g.Members {
			if m.User == nil {
				continue
			}
			for _, name := range []string{m.Nick, m.User.GlobalName, m.User.Username, userTag(m.User)} {
				if name != "" && strings.EqualFold(name, query) {
					d.state.RUnlock()
					return toID(m.User.ID), true
				}
			}
		}
		d.state.RUnlock()
	}
	return dsl.NumericResolver{}.ResolveUser(guild, query)
}

// GuildName — имя гильдии из кэша.
func (d *Directory) GuildName(id rules.ID) (string, bool) {
	g, err := d.state.Guild(id.String())
	if err != nil {
		return "", false
	}
	return g.Name, true
}

// UserTag — тег пользователя, найденного среди участников любой известной гильдии.
func (d *Directory) UserTag(id rules.ID) (string, bool) {
	d.state.RLock()
	guilds := d.state.Guilds
	d.state.RUnlock()
	for _, g := range guilds {
		if m, err := d.state.Member(g.ID, id.String()); err == nil && m.User != nil {
			return userTag(m.User), true
		}
	}
	return "", false
}

// IsMember — пользователь состоит в гильдии.
func (d *Directory) IsMember(guildID, userID rules.ID) bool {
	_, err := d.state.Member(guildID.String(), userID.String())
	return err == nil
}

// CanRead — пользователь видит канал. Права треда берутся у его родителя.
func (d *Directory) CanRead(channelID, userID rules.ID) bool {
	id := channelID.String()
	if ch, err := d.state.Channel(id); err == nil && ch.IsThread() {
		id = ch.ParentID
	}
	perms, err := d.state.UserChannelPermissions(userID.String(), id)
	if err != nil {
		return false
	}
	return perms&discordgo.PermissionViewChannel != 0
}

// VoiceCategory — категория голосового канала, где сидит пользователь.
func (d *Directory) VoiceCategory(guildID, userID rules.ID) (rules.ID, bool) {
	vs, err := d.state.VoiceState(guildID.String(), userID.String())
	if err != nil || vs.ChannelID == "" {
		return 0, false
	}
	ch, err := d.state.Channel(vs.ChannelID)
	if err != nil {
		return 0, true
	}
	return toID(ch.ParentID), true
}

// lineage возвращает родителя канала и его категорию. Для треда родитель — канал,
// категория — родитель канала.
func (d *Directory) lineage(channelID string) (parent, category rules.ID) {
	ch, err := d.state.Channel(channelID)
	if err != nil {
		return 0, 0
	}
	if !ch.IsThread() {
		return toID(ch.ParentID), toID(ch.ParentID)
	}
	parent = toID(ch.ParentID)
	if p, err := d.state.Channel(ch.ParentID); err == nil {
		category = toID(p.ParentID)
	}
	return parent, category
}

// displayName — ник в гильдии, иначе глобальное имя, иначе имя пользователя.
func displayName(u *discordgo.User, m *discordgo.Member) string {
	if m != nil && m.Nick != "" {
		return m.Nick
	}
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// userTag — name#discriminator для старых аккаунтов и просто имя для новых.
func userTag(u *discordgo.User) string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}
