package commands

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"highlight-bot/internal/domain/dsl"
	"highlight-bot/internal/domain/matcher"
	"highlight-bot/internal/domain/notifications"
	"highlight-bot/internal/domain/profiles"
	"highlight-bot/internal/domain/rules"
	"highlight-bot/internal/infra/logger"
)

// Namer подсказывает имена для описаний правил. Неизвестные сущности — false.
type Namer interface {
	GuildName(id rules.ID) (string, bool)
	UserTag(id rules.ID) (string, bool)
}

// Previewer собирает уведомление без отправки; реализуется notifications.Dispatcher.
type Previewer interface {
	Build(ctx context.Context, user rules.ID, e *matcher.Event, by notifications.Provenance, ruleNames []string) notifications.DM
}

// CommandExecutor — реализация Executor поверх реестра профилей.
type CommandExecutor struct {
	profiles *profiles.Registry
	resolver dsl.Resolver
	names    Namer
	eval     *matcher.Evaluator
	preview  Previewer
}

// NewExecutor создаёт исполнитель команд.
func NewExecutor(reg *profiles.Registry, resolver dsl.Resolver, names Namer, eval *matcher.Evaluator,
	preview Previewer) *CommandExecutor {
	return &CommandExecutor{
		profiles: reg,
		resolver: resolver,
		names:    names,
		eval:     eval,
		preview:  preview,
	}
}

var _ Executor = (*CommandExecutor)(nil)

// Add — upsert правила.
func (x *CommandExecutor) Add(ctx context.Context, c Caller, name, ruleText string) (Reply, error) {
	if name == "" {
		return text("Empty strings as names aren't cool."), nil
	}

	parsed, err := dsl.Parse(ruleText, c.GuildID, x.resolver)
	if err != nil {
		return text("Error while parsing input.\n```" + err.Error() + "```"), nil
	}

	// Имя, которое само разбирается как правило, почти наверняка ошибка в порядке аргументов.
	if _, err := dsl.Parse(name, c.GuildID, x.resolver); err == nil {
		invoked := c.Invoked
		if invoked == "" {
			invoked = "add"
		}
		return text(fmt.Sprintf("Refusing to create trigger with confusing name `%s`.\nI think you meant to write `%s \"%s\" %s`.",
			name, invoked, strings.Trim(name, "/+'"), name)), nil
	}

	conds := parsed.Conditions
	if len(conds) == 0 {
		conds = []rules.Condition{rules.Literal{Text: name}}
		if c.GuildID != 0 {
			conds = append(conds, rules.Guild{IDs: []rules.ID{c.GuildID}})
		}
	}
	rule := rules.Rule{Name: name, Conditions: rules.Merge(conds), NoGlobal: parsed.NoGlobal}

	_, err = x.profiles.Update(ctx, c.User, func(p *rules.Profile) error {
		p.Upsert(rule)
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	logger.Info("rule saved", zap.Stringer("user", c.User), zap.String("rule", name), zap.String("raw", rules.Raw(rule)))
	return text(Ack), nil
}

// Remove удаляет правила с указанными именами.
func (x *CommandExecutor) Remove(ctx context.Context, c Caller, names []string) (Reply, error) {
	_, err := x.profiles.Update(ctx, c.User, func(p *rules.Profile) error {
		removed := false
		for _, name := range names {
			for p.Remove(name) {
				removed = true
			}
		}
		if !removed {
			return profiles.ErrUnchanged
		}
		return nil
	})
	if err != nil && !errors.Is(err, profiles.ErrUnchanged) {
		return Reply{}, err
	}
	return text(Ack), nil
}

// Clear удаляет все правила. Чтобы временно выключить подсветки, есть disable.
func (x *CommandExecutor) Clear(ctx context.Context, c Caller) (Reply, error) {
	_, err := x.profiles.Update(ctx, c.User, func(p *rules.Profile) error {
		p.Highlights = nil
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	return text(Ack), nil
}

// SetEnabled — enable/disable.
func (x *CommandExecutor) SetEnabled(ctx context.Context, c Caller, enabled bool) (Reply, error) {
	_, err := x.profiles.Update(ctx, c.User, func(p *rules.Profile) error {
		if !p.SetEnabled(enabled) {
			return profiles.ErrUnchanged
		}
		return nil
	})
	if err != nil && !errors.Is(err, profiles.ErrUnchanged) {
		return Reply{}, err
	}
	return text(Ack), nil
}

// Show — список правил с описаниями.
func (x *CommandExecutor) Show(_ context.Context, c Caller) (Reply, error) {
	p, ok := x.profiles.Get(c.User)
	if !ok {
		p = &rules.Profile{}
	}

	embed := &Embed{Title: "Your highlight triggers", Author: c.Name}
	if !p.IsEnabled() {
		embed.Title += " are disabled"
	}

	var b strings.Builder
	for _, r := range p.Highlights {
		b.WriteString(notifications.EscapeMarkdown(r.Name))
		if r.NoGlobal {
			b.WriteString(" (noglobal)")
		}
		b.WriteString(": ")
		b.WriteString(x.Describe(r))
		b.WriteString("\n")
	}
	embed.Description = b.String()

	switch n := len(p.Highlights); n {
	case 0:
		embed.Footer = "You don't have any!"
	case 1:
		embed.Footer = "Sometimes just one is all you need"
	default:
		embed.Footer = fmt.Sprintf("Listed %d triggers", n)
	}
	return Reply{Embed: embed}, nil
}

// Raw — правило в виде команды edit.
func (x *CommandExecutor) Raw(_ context.Context, c Caller, name string) (Reply, error) {
	p, ok := x.profiles.Get(c.User)
	if !ok || p.Find(name) < 0 {
		return text("You don't have a trigger with that name."), nil
	}
	r := p.Highlights[p.Find(name)]

	parts := make([]string, 0, 3)
	if c.Prefix != "" {
		parts = append(parts, c.Prefix)
	}
	parts = append(parts, "edit", rules.RawCommandMarkdown(r))
	return text(strings.Join(parts, " ")), nil
}

// Block добавляет автора или канал в блок-лист.
func (x *CommandExecutor) Block(ctx context.Context, c Caller, target string) (Reply, error) {
	return x.editBlocked(ctx, c, target, (*rules.Profile).Block)
}

// Unblock убирает автора или канал из блок-листа.
func (x *CommandExecutor) Unblock(ctx context.Context, c Caller, target string) (Reply, error) {
	return x.editBlocked(ctx, c, target, (*rules.Profile).Unblock)
}

func (x *CommandExecutor) editBlocked(ctx context.Context, c Caller, target string, edit func(*rules.Profile, rules.ID) bool) (Reply, error) {
	id, ok := x.resolveTarget(c.GuildID, target)
	if !ok {
		return text(fmt.Sprintf("I couldn't find a user or channel called `%s`.", target)), nil
	}
	_, err := x.profiles.Update(ctx, c.User, func(p *rules.Profile) error {
		if !edit(p, id) {
			return profiles.ErrUnchanged
		}
		return nil
	})
	switch {
	case errors.Is(err, profiles.ErrUnchanged):
		return text(AlreadyDone), nil
	case err != nil:
		return Reply{}, err
	}
	return text(Ack), nil
}

var (
	channelMention = regexp.MustCompile(`^<#(\d+)>$`)
	userMention    = regexp.MustCompile(`^<@!?(\d+)>$`)
)

// resolveTarget понимает упоминания, числовые ID, имена каналов и участников.
func (x *CommandExecutor) resolveTarget(guild rules.ID, target string) (rules.ID, bool) {
	target = strings.TrimSpace(target)
	for _, re := range []*regexp.Regexp{channelMention, userMention} {
		if m := re.FindStringSubmatch(target); m != nil {
			id, err := rules.ParseID(m[1])
			return id, err == nil
		}
	}
	if id, err := rules.ParseID(target); err == nil && id != 0 {
		return id, true
	}
	if x.resolver == nil || target == "" {
		return 0, false
	}
	if id, ok := x.resolver.ResolveChannel(guild, strings.TrimPrefix(target, "#")); ok {
		return id, true
	}
	return x.resolver.ResolveUser(guild, target)
}

// Settings показывает все настройки или меняет одну: settings <команда> <значение>.
func (x *CommandExecutor) Settings(ctx context.Context, c Caller, args []string) (Reply, error) {
	if len(args) == 0 {
		var s rules.Settings
		if p, ok := x.profiles.Get(c.User); ok {
			s = p.Settings
		}
		embed := &Embed{}
		for _, def := range rules.SettingDefs {
			v := def.Value(s)
			embed.Fields = append(embed.Fields, Field{
				Name:  fmt.Sprintf("%s (`cfg %s %s`)", def.Name, def.Command, v),
				Value: fmt.Sprintf("Set to %s.\n%s", v, def.Description),
			})
		}
		return Reply{Embed: embed}, nil
	}

	def, err := rules.LookupSetting(args[0])
	if err != nil {
		return text(fmt.Sprintf("There's no setting called `%s`.", args[0])), nil
	}
	if len(args) != 2 {
		return text(fmt.Sprintf("Usage: `settings %s <value>`\n%s", def.Command, def.Description)), nil
	}

	var setErr error
	_, err = x.profiles.Update(ctx, c.User, func(p *rules.Profile) error {
		setErr = def.Set(&p.Settings, args[1])
		return setErr
	})
	if setErr != nil {
		return text(fmt.Sprintf("Invalid value for `%s`: %v", def.Command, setErr)), nil
	}
	if err != nil {
		return Reply{}, err
	}
	return text(Ack), nil
}

// Test показывает, что пришло бы пользователю за это сообщение, без задержек и дебаунса.
func (x *CommandExecutor) Test(ctx context.Context, c Caller, e *matcher.Event) (Reply, error) {
	p, ok := x.profiles.Get(c.User)
	if !ok {
		p = &rules.Profile{}
	}
	names := x.eval.Successes(p, e, "")
	if len(names) == 0 {
		return text("No highlight matched."), nil
	}
	dm := x.preview.Build(ctx, c.User, e, notifications.Provenance{ID: c.User, Name: c.Name}, names)
	return Reply{
		Text: dm.Header,
		Embed: &Embed{
			Description: dm.Digest,
			Fields:      []Field{{Name: "​", Value: dm.JumpURL}},
		},
	}, nil
}
