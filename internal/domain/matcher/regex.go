package matcher

import (
	"regexp"
	"sync"

	"highlight-bot/internal/infra/logger"

	"go.uber.org/zap"
)

// RegexEngine компилирует выражения. Выделен в интерфейс, чтобы движок можно
// было подменить (например, на движок с другим диалектом).
type RegexEngine interface {
	Compile(pattern string, caseInsensitive, dotAll bool) (Pattern, error)
}

// Pattern — скомпилированное выражение. Search ищет совпадение в любом месте текста.
type Pattern interface {
	Search(text string) bool
}

// RE2 — движок на пакете regexp (синтаксис RE2, линейное время).
type RE2 struct{}

// Compile добавляет к выражению встроенные флаги (?i) и (?s).
func (RE2) Compile(pattern string, caseInsensitive, dotAll bool) (Pattern, error) {
	flags := ""
	if caseInsensitive {
		flags += "i"
	}
	if dotAll {
		flags += "s"
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return re2Pattern{re}, nil
}

type re2Pattern struct{ re *regexp.Regexp }

func (p re2Pattern) Search(text string) bool { return p.re.MatchString(text) }

type cacheKey struct {
	pattern string
	flags   string
}

// RegexCache кэширует скомпилированные выражения по (pattern, flags) на всё
// время жизни процесса. Ошибка компиляции тоже кэшируется (как nil): такое
// выражение никогда не совпадает и логируется один раз.
type RegexCache struct {
	engine RegexEngine
	mu     sync.RWMutex
	items  map[cacheKey]Pattern
}

// NewRegexCache создаёт кэш поверх engine. nil означает RE2.
func NewRegexCache(engine RegexEngine) *RegexCache {
	if engine == nil {
		engine = RE2{}
	}
	return &RegexCache{engine: engine, items: make(map[cacheKey]Pattern)}
}

// Match сообщает, совпадает ли pattern с флагами flags ("i", "s") где-либо в text.
func (c *RegexCache) Match(pattern, flags, text string) bool {
	p := c.get(pattern, flags)
	return p != nil && p.Search(text)
}

// Len — число закэшированных выражений (включая некомпилируемые).
func (c *RegexCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *RegexCache) get(pattern, flags string) Pattern {
	key := cacheKey{pattern: pattern, flags: flags}

	c.mu.RLock()
	p, ok := c.items[key]
	c.mu.RUnlock()
	if ok {
		return p
	}

	compiled, err := c.engine.Compile(pattern, containsFlag(flags, 'i'), containsFlag(flags, 's'))
	if err != nil {
		logger.Warn("regex compile failed; treating as non-match",
			zap.String("pattern", pattern), zap.String("flags", flags), zap.Error(err))
		compiled = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.items[key]; ok {
		return existing
	}
	c.items[key] = compiled
	return compiled
}

func containsFlag(flags string, f rune) bool {
	for _, r := range flags {
		if r == f {
			return true
		}
	}
	return false
}
