// Package cli — локальная консоль оператора. Читает команды через readline,
// разбирает правила без обращения к Discord, выполняет команды бота от имени
// любого пользователя и показывает состояние конвейера.
package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"highlight-bot/internal/domain/activity"
	"highlight-bot/internal/domain/commands"
	"highlight-bot/internal/domain/dsl"
	"highlight-bot/internal/domain/matcher"
	"highlight-bot/internal/domain/profiles"
	"highlight-bot/internal/domain/rules"
	"highlight-bot/internal/infra/logger"
	"highlight-bot/internal/infra/pr"
)

type commandDescriptor struct {
	name        string
	usage       string
	description string
}

// Имена должны совпадать с кейсами в handleCommand.
var commandDescriptors = []commandDescriptor{
	{name: "help", description: "Show available commands"},
	{name: "parse", usage: "<rule text>", description: "Parse rule text and print merged conditions"},
	{name: "as", usage: "<user id> <command>", description: "Run a bot command as the given user"},
	{name: "show", usage: "<user id>", description: "List the user's triggers in raw form"},
	{name: "test", usage: "<user id> <text>", description: "Evaluate text against the user's triggers"},
	{name: "stats", description: "Profiles, activity tables, pending rechecks"},
	{name: "reload", description: "Reload profiles from the store"},
	{name: "exit", description: "Stop the bot"},
}

// Deps — подсистемы, к которым обращается консоль.
type Deps struct {
	Profiles  *profiles.Registry
	Router    *commands.Router
	Evaluator *matcher.Evaluator
	Tracker   *activity.Tracker
	Scheduler *activity.Scheduler
	Regexes   *matcher.RegexCache
	// Resolver для parse; nil — только числовые ID.
	Resolver dsl.Resolver
}

// Service — консоль с жизненным циклом Start/Stop.
type Service struct {
	deps    Deps
	stopApp context.CancelFunc

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService создаёт консоль. stopApp вызывается командой exit и Ctrl-C на пустой строке.
func NewService(deps Deps, stopApp context.CancelFunc) *Service {
	return &Service{deps: deps, stopApp: stopApp}
}

// Start запускает цикл чтения команд. Повторный вызов игнорируется.
func (s *Service) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(runCtx)
	}()
}

// Stop прерывает ожидание ввода и дожидается выхода из цикла.
func (s *Service) Stop() {
	s.runMu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	pr.Interrupt()
	s.wg.Wait()
}

func (s *Service) run(ctx context.Context) {
	pr.Println("Console ready. Commands:", joinCommandNames())
	pr.Println("Press '?' or type 'help' for details.")
	s.installKeyHandlers()

	for ctx.Err() == nil {
		line, err := pr.Readline()
		if err != nil {
			logger.Debug("cli: input closed")
			return
		}
		if s.handleCommand(ctx, strings.TrimSpace(line)) {
			return
		}
	}
}

// installKeyHandlers: '?' печатает справку, Ctrl-C на пустой строке
// останавливает бота, на непустой очищает строку.
func (s *Service) installKeyHandlers() {
	pr.OnKey(func(line []rune, pos int, key rune) ([]rune, int, bool) {
		switch key {
		case '?':
			printHelp()
			if pos > 0 && pos <= len(line) {
				trimmed := append([]rune{}, line[:pos-1]...)
				trimmed = append(trimmed, line[pos:]...)
				return trimmed, pos - 1, true
			}
			return line, pos, true
		case 3: //nolint: mnd // Ctrl-C (ETX)
			if strings.TrimSpace(string(line)) == "" {
				if s.stopApp != nil {
					s.stopApp()
				}
				pr.Interrupt()
				return line, pos, true
			}
			return []rune{}, 0, true
		}
		return nil, 0, false
	})
}

// handleCommand выполняет одну строку. true — консоль надо закрыть.
func (s *Service) handleCommand(ctx context.Context, line string) bool {
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "":
	case "help":
		printHelp()
	case "parse":
		s.handleParse(rest)
	case "as":
		s.handleAs(ctx, rest)
	case "show":
		s.handleShow(rest)
	case "test":
		s.handleTest(rest)
	case "stats":
		s.handleStats()
	case "reload":
		if err := s.deps.Profiles.Reload(ctx); err != nil {
			pr.ErrPrintln("reload error:", err)
		} else {
			pr.Printf("profiles reloaded: %d\n", s.deps.Profiles.Len())
		}
	case "exit":
		if s.stopApp != nil {
			s.stopApp()
		}
		return true
	default:
		pr.Println("unknown command:", name)
	}
	return false
}

func (s *Service) handleParse(text string) {
	res, err := dsl.Parse(text, 0, s.deps.Resolver)
	if err != nil {
		pr.ErrPrintln(err.Error())
		return
	}
	merged := rules.Merge(res.Conditions)
	pr.Dump(merged)
	pr.Println("raw:", rules.Raw(rules.Rule{Conditions: merged, NoGlobal: res.NoGlobal}))
}

func (s *Service) handleAs(ctx context.Context, args string) {
	user, line, ok := userAndRest(args)
	if !ok {
		pr.ErrPrintln("usage: as <user id> <command>")
		return
	}
	reply, err := s.deps.Router.Execute(ctx, commands.Caller{User: user, Name: "console"}, line, nil)
	if err != nil {
		pr.ErrPrintln("command error:", err)
		return
	}
	printReply(reply)
}

func (s *Service) handleShow(args string) {
	user, _, ok := userAndRest(args)
	if !ok {
		pr.ErrPrintln("usage: show <user id>")
		return
	}
	p, found := s.deps.Profiles.Get(user)
	if !found {
		pr.Println("no profile")
		return
	}
	pr.Printf("enabled=%t blocked=%v\n", p.IsEnabled(), p.Blocked)
	for _, r := range p.Highlights {
		pr.Println(" ", rules.RawCommand(r))
	}
}

func (s *Service) handleTest(args string) {
	user, text, ok := userAndRest(args)
	if !ok || text == "" {
		pr.ErrPrintln("usage: test <user id> <text>")
		return
	}
	p, found := s.deps.Profiles.Get(user)
	if !found {
		pr.Println("no profile")
		return
	}
	e := &matcher.Event{Content: text, CreatedAt: time.Now()}
	names := s.deps.Evaluator.Successes(p, e, "")
	if len(names) == 0 {
		pr.Println("No highlight matched.")
		return
	}
	pr.Println("matched:", strings.Join(names, ", "))
}

func (s *Service) handleStats() {
	active, highlights := s.deps.Tracker.Stats()
	pr.Printf("profiles: %d\n", s.deps.Profiles.Len())
	pr.Printf("activity entries: %d, debounce entries: %d\n", active, highlights)
	pr.Printf("pending rechecks: %d\n", s.deps.Scheduler.Pending())
	if s.deps.Regexes != nil {
		pr.Printf("compiled regexes: %d\n", s.deps.Regexes.Len())
	}
}

func userAndRest(args string) (rules.ID, string, bool) {
	word, rest, _ := strings.Cut(args, " ")
	id, err := rules.ParseID(word)
	if err != nil || id == 0 {
		return 0, "", false
	}
	return id, strings.TrimSpace(rest), true
}

func printReply(r commands.Reply) {
	if r.Text != "" {
		pr.Println(r.Text)
	}
	if r.Embed == nil {
		return
	}
	if r.Embed.Title != "" {
		pr.Println("#", r.Embed.Title)
	}
	if r.Embed.Description != "" {
		pr.Println(strings.TrimRight(r.Embed.Description, "\n"))
	}
	for _, f := range r.Embed.Fields {
		pr.Printf("- %s\n  %s\n", f.Name, strings.ReplaceAll(f.Value, "\n", "\n  "))
	}
	if r.Embed.Footer != "" {
		pr.Println("--", r.Embed.Footer)
	}
}

func printHelp() {
	pr.Println("Available commands:")
	for _, d := range commandDescriptors {
		pr.Println(" ", fmt.Sprintf("%-28s %s", strings.TrimSpace(d.name+" "+d.usage), d.description))
	}
}

func joinCommandNames() string {
	names := make([]string, 0, len(commandDescriptors))
	for _, d := range commandDescriptors {
		names = append(names, d.name)
	}
	return strings.Join(names, ", ")
}
