// Package commands — команды управления правилами подсветки. Их вызывает
// Discord-адаптер (сообщение, начинающееся с упоминания бота) и локальная консоль.
//
// Ответ команды — Reply: текст и/или вложение. Ошибки пользователя (неверный
// синтаксис, нет такого правила) — это обычный ответ. error возвращается только
// при сбое хранилища.
package commands

import (
	"context"

	"highlight-bot/internal/domain/matcher"
	"highlight-bot/internal/domain/rules"
)

// Executor — набор команд.
type Executor interface {
	// Add создаёт или заменяет правило name. Пустой text — литерал name в текущей гильдии.
	Add(ctx context.Context, c Caller, name, text string) (Reply, error)
	// Remove удаляет правила по именам; несуществующие имена пропускаются.
	Remove(ctx context.Context, c Caller, names []string) (Reply, error)
	// Clear удаляет все правила.
	Clear(ctx context.Context, c Caller) (Reply, error)
	// SetEnabled включает или выключает все подсветки пользователя.
	SetEnabled(ctx context.Context, c Caller, enabled bool) (Reply, error)
	// Show описывает все правила человеческим языком.
	Show(ctx context.Context, c Caller) (Reply, error)
	// Raw выводит правило в виде команды edit для удобной правки.
	Raw(ctx context.Context, c Caller, name string) (Reply, error)
	// Block и Unblock меняют блок-лист авторов и каналов.
	Block(ctx context.Context, c Caller, target string) (Reply, error)
	Unblock(ctx context.Context, c Caller, target string) (Reply, error)
	// Settings без аргументов показывает настройки, с двумя — меняет одну.
	Settings(ctx context.Context, c Caller, args []string) (Reply, error)
	// Test прогоняет сообщение через правила без задержек и дебаунса.
	Test(ctx context.Context, c Caller, e *matcher.Event) (Reply, error)
}

// Caller — кто и откуда вызвал команду.
type Caller struct {
	User rules.ID
	Name string
	// GuildID — гильдия, где написана команда; 0 в личных сообщениях и в консоли.
	GuildID rules.ID
	// Invoked — имя команды так, как его набрали (add, edit, put...).
	Invoked string
	// Prefix — как обратились к боту (его упоминание); raw выводит команду с ним.
	Prefix string
}

// Reply — ответ на команду.
type Reply struct {
	Text  string
	Embed *Embed
}

// Embed — вложение с заголовком, описанием, полями и подписью.
type Embed struct {
	Title       string
	Author      string
	Description string
	Fields      []Field
	Footer      string
}

// Field — поле вложения.
type Field struct {
	Name  string
	Value string
}

// Ack — стандартный ответ «готово».
const Ack = "👍"

// AlreadyDone — ответ на блокировку, которая ничего не меняет.
const AlreadyDone = "Already done."

func text(s string) Reply { return Reply{Text: s} }
