package commands

import (
	"fmt"

	"highlight-bot/internal/domain/notifications"
	"highlight-bot/internal/domain/rules"
)

// Describe пересказывает условия правила по-английски для команды show.
func (x *CommandExecutor) Describe(r rules.Rule) string {
	parts := make([]string, 0, len(r.Conditions))
	for _, c := range r.Conditions {
		parts = append(parts, x.describeCondition(c))
	}
	return notifications.EnglishList(parts, "and")
}

func (x *CommandExecutor) describeCondition(c rules.Condition) string {
	does, is := "**does**", "**is**"
	if c.Negated() {
		does, is = "**does not**", "**is not**"
	}

	switch v := c.(type) {
	case rules.Literal:
		return fmt.Sprintf("%s contain %s", does, notifications.EscapeMarkdown(notifications.Repr(v.Text)))
	case rules.Regex:
		return fmt.Sprintf("%s match %s", does, notifications.EscapeMarkdown(rules.RenderPattern(v.Pattern, v.Flags)))
	case rules.Reaction:
		return fmt.Sprintf("%s have a %s reaction", does, v.Emoji)
	case rules.Guild:
		names := make([]string, 0, len(v.IDs))
		for _, id := range v.IDs {
			names = append(names, x.guildName(id))
		}
		return fmt.Sprintf("%s in %s", is, notifications.EnglishList(names, "or"))
	case rules.Channel:
		mentions := make([]string, 0, len(v.IDs))
		for _, id := range v.IDs {
			mentions = append(mentions, notifications.ChannelMention(id))
		}
		out := fmt.Sprintf("%s in %s", is, notifications.EnglishList(mentions, "or"))
		if v.Exact {
			out += " (excluding threads)"
		}
		return out
	case rules.Author:
		users := make([]string, 0, len(v.IDs))
		for _, id := range v.IDs {
			users = append(users, x.userLabel(id))
		}
		return fmt.Sprintf("%s from %s", is, notifications.EnglishList(users, "or"))
	case rules.Bot:
		return is + " from a bot"
	default:
		return string(c.Kind())
	}
}

func (x *CommandExecutor) guildName(id rules.ID) string {
	if x.names != nil {
		if name, ok := x.names.GuildName(id); ok {
			return "server " + notifications.EscapeMarkdown(name)
		}
	}
	return "<unknown server " + id.String() + ">"
}

func (x *CommandExecutor) userLabel(id rules.ID) string {
	mention := notifications.UserMention(id)
	if x.names != nil {
		if tag, ok := x.names.UserTag(id); ok {
			return mention + " (" + notifications.EscapeMarkdown(tag) + ")"
		}
	}
	return mention
}
