package commands

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"highlight-bot/internal/domain/dsl"
	"highlight-bot/internal/domain/matcher"
	"highlight-bot/internal/infra/logger"
)

const helpText = "**Highlight commands**\n" +
	"`add <name> [conditions...]` create or replace a trigger (aliases: update, set, edit, put)\n" +
	"`remove <names...>` delete triggers\n" +
	"`clear` delete every trigger\n" +
	"`show` list your triggers (alias: list)\n" +
	"`raw <name>` print a trigger as a command you can edit\n" +
	"`enable` / `disable` turn all highlights on or off\n" +
	"`block <user or channel>` / `unblock <user or channel>` ignore a user or channel\n" +
	"`settings [name value]` view or change settings (aliases: opt, cfg, config)\n" +
	"`test` check which triggers a message would fire (reply to the message)\n\n" +
	"Conditions: `\"text\"`, `/regex/flags`, `+emoji`, `guild:`, `channel:`, `exact_channel:`, " +
	"`author:`, `bot`, `noglobal`. Prefix a condition with `-` to negate it. " +
	"A trigger named `global` applies to all others."

// canonical сводит синонимы команды к основному имени.
func canonical(word string) (string, bool) {
	switch strings.ToLower(word) {
	case "add", "update", "set", "edit", "put":
		return "add", true
	case "remove", "delete", "rm":
		return "remove", true
	case "show", "list":
		return "show", true
	case "settings", "opt", "cfg", "config":
		return "settings", true
	case "clear", "raw", "enable", "disable", "block", "unblock", "test", "help":
		return strings.ToLower(word), true
	default:
		return "", false
	}
}

// Router разбирает строку команды и вызывает Executor.
type Router struct {
	exec Executor
}

// NewRouter создаёт маршрутизатор команд.
func NewRouter(exec Executor) *Router {
	return &Router{exec: exec}
}

// Execute выполняет line от имени c. subject — сообщение для команды test
// (то, на которое ответили, либо само сообщение с командой); может быть nil.
func (r *Router) Execute(ctx context.Context, c Caller, line string, subject *matcher.Event) (Reply, error) {
	word, rest, err := dsl.ReadWord(line)
	if err != nil {
		return text("Error while parsing input.\n```" + err.Error() + "```"), nil
	}
	cmd, ok := canonical(word)
	if !ok {
		if word == "" {
			return text(helpText), nil
		}
		return text(fmt.Sprintf("Unknown command `%s`. Try `help`.", word)), nil
	}
	c.Invoked = word
	logger.Debug("command", zap.Stringer("user", c.User), zap.String("cmd", cmd), zap.String("args", rest))

	switch cmd {
	case "add":
		name, ruleText, err := dsl.ReadWord(rest)
		if err != nil {
			return text("Error while parsing input.\n```" + err.Error() + "```"), nil
		}
		return r.exec.Add(ctx, c, name, ruleText)
	case "remove":
		names, err := words(rest)
		if err != nil {
			return text("Error while parsing input.\n```" + err.Error() + "```"), nil
		}
		return r.exec.Remove(ctx, c, names)
	case "clear":
		return r.exec.Clear(ctx, c)
	case "show":
		return r.exec.Show(ctx, c)
	case "raw":
		name, _, err := dsl.ReadWord(rest)
		if err != nil {
			return text("Error while parsing input.\n```" + err.Error() + "```"), nil
		}
		return r.exec.Raw(ctx, c, name)
	case "enable":
		return r.exec.SetEnabled(ctx, c, true)
	case "disable":
		return r.exec.SetEnabled(ctx, c, false)
	case "block":
		return r.exec.Block(ctx, c, strings.TrimSpace(rest))
	case "unblock":
		return r.exec.Unblock(ctx, c, strings.TrimSpace(rest))
	case "settings":
		args, err := words(rest)
		if err != nil {
			return text("Error while parsing input.\n```" + err.Error() + "```"), nil
		}
		return r.exec.Settings(ctx, c, args)
	case "test":
		if subject == nil {
			return text("Reply to a message to test it."), nil
		}
		return r.exec.Test(ctx, c, subject)
	default:
		return text(helpText), nil
	}
}

// words делит строку на слова с учётом кавычек.
func words(s string) ([]string, error) {
	var out []string
	for strings.TrimSpace(s) != "" {
		w, rest, err := dsl.ReadWord(s)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
		s = rest
	}
	return out, nil
}
