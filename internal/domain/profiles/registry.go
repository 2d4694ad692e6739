// Package profiles — реестр профилей подсветки в памяти поверх Store.
//
// Читатели (обработчики событий) получают неизменяемые снимки через Get и
// Snapshot. Команды редактируют профиль через Update: функция получает копию,
// результат сохраняется в Store и только после успешной записи публикуется.
package profiles

import (
	"context"
	"sort"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"highlight-bot/internal/domain/rules"
	"highlight-bot/internal/infra/logger"
)

// Store — то, что реестру нужно от хранилища.
type Store interface {
	Load(ctx context.Context) (map[rules.ID]*rules.Profile, error)
	Save(ctx context.Context, user rules.ID, p *rules.Profile) error
}

// ErrUnchanged возвращает функция Update, если менять и сохранять нечего.
var ErrUnchanged = errors.New("profile unchanged")

// Registry хранит профили всех пользователей.
type Registry struct {
	store Store

	mu       sync.RWMutex
	profiles map[rules.ID]*rules.Profile
	writeMu  sync.Mutex // сериализует Update, чтобы запись в Store шла в порядке правок.
}

// NewRegistry создаёт пустой реестр. Данные подтягиваются через Reload.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store, profiles: make(map[rules.ID]*rules.Profile)}
}

// Reload перечитывает все профили из хранилища и атомарно подменяет набор.
func (r *Registry) Reload(ctx context.Context) error {
	loaded, err := r.store.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "reload profiles")
	}
	if loaded == nil {
		loaded = make(map[rules.ID]*rules.Profile)
	}
	r.mu.Lock()
	r.profiles = loaded
	r.mu.Unlock()
	logger.Info("profiles loaded", zap.Int("count", len(loaded)))
	return nil
}

// Get возвращает снимок профиля user. Второй результат false — профиля нет.
// Снимок нельзя менять: он общий для всех читателей.
func (r *Registry) Get(user rules.ID) (*rules.Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[user]
	return p, ok
}

// Users возвращает ID пользователей с непустыми профилями в порядке возрастания.
func (r *Registry) Users() []rules.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]rules.ID, 0, len(r.profiles))
	for id, p := range r.profiles {
		if len(p.Highlights) > 0 {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len — число профилей.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}

// Update применяет fn к копии профиля user (пустой, если профиля нет),
// сохраняет результат и публикует его. Ошибка fn (включая ErrUnchanged)
// отменяет правку. Возвращает опубликованный снимок.
func (r *Registry) Update(ctx context.Context, user rules.ID, fn func(p *rules.Profile) error) (*rules.Profile, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	var draft *rules.Profile
	if cur, ok := r.Get(user); ok {
		draft = cur.Clone()
	} else {
		draft = &rules.Profile{}
	}
	if err := fn(draft); err != nil {
		return nil, err
	}
	if err := r.store.Save(ctx, user, draft); err != nil {
		return nil, errors.Wrapf(err, "save profile %s", user)
	}

	r.mu.Lock()
	r.profiles[user] = draft
	r.mu.Unlock()
	logger.Debug("profile updated", zap.Stringer("user", user), zap.Int("rules", len(draft.Highlights)))
	return draft, nil
}
