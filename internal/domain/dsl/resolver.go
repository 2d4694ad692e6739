package dsl

import (
	"highlight-bot/internal/domain/rules"
)

// Resolver превращает имя или ID из текста правила в ID сущности. Реализации
// сначала ищут по имени, затем пробуют разобрать query как числовой ID.
// Формы упоминаний (<#id>, <@id>, <@!id>) и ведущий # парсер снимает сам.
type Resolver interface {
	ResolveGuild(query string) (rules.ID, bool)
	ResolveChannel(guild rules.ID, query string) (rules.ID, bool)
	ResolveUser(guild rules.ID, query string) (rules.ID, bool)
}

// NumericResolver принимает только числовые ID и ничего не проверяет. Годится
// для локальной консоли и тестов, где нет доступа к платформе.
type NumericResolver struct{}

func (NumericResolver) ResolveGuild(query string) (rules.ID, bool) { return numericID(query) }

func (NumericResolver) ResolveChannel(_ rules.ID, query string) (rules.ID, bool) {
	return numericID(query)
}

func (NumericResolver) ResolveUser(_ rules.ID, query string) (rules.ID, bool) {
	return numericID(query)
}

func numericID(query string) (rules.ID, bool) {
	id, err := rules.ParseID(query)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
