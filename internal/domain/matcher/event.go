package matcher

import (
	"slices"
	"time"

	"highlight-bot/internal/domain/rules"
)

// Event — снимок сообщения, по которому считаются правила. Адаптер платформы
// заполняет его из входящего события или из загруженного сообщения.
type Event struct {
	MessageID rules.ID
	GuildID   rules.ID
	ChannelID rules.ID
	// ParentID — родитель канала: канал для треда, категория для обычного канала.
	ParentID rules.ID
	// CategoryID — категория канала (для треда — категория его родителя).
	CategoryID rules.ID
	AuthorID   rules.ID
	AuthorBot  bool
	// AuthorName — отображаемое имя автора, нужно только для текста уведомления.
	AuthorName string
	Content    string
	Reactions  []Reaction
	Mentions   []rules.ID
	CreatedAt  time.Time
}

// Reaction — одна реакция под сообщением: эмодзи в отрендеренном виде и счётчик.
type Reaction struct {
	Emoji string
	Count int
}

// HasReaction сообщает, есть ли под сообщением реакция emoji.
func (e *Event) HasReaction(emoji string) bool {
	return slices.ContainsFunc(e.Reactions, func(r Reaction) bool { return r.Emoji == emoji })
}

// IsFirstReaction — реакция emoji под сообщением ровно одна, то есть только что
// поставленная реакция первая такого вида.
func (e *Event) IsFirstReaction(emoji string) bool {
	return slices.ContainsFunc(e.Reactions, func(r Reaction) bool { return r.Emoji == emoji && r.Count == 1 })
}

// Mentioned сообщает, упомянут ли пользователь в сообщении.
func (e *Event) Mentioned(user rules.ID) bool {
	return slices.Contains(e.Mentions, user)
}
