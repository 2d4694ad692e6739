package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-faster/errors"

	"highlight-bot/internal/domain/rules"
	"highlight-bot/internal/infra/logger"
)

// JSONStore держит все профили в одном JSON-файле, по записи на пользователя
// на верхнем уровне (формат config.json исходного бота):
//
//	{"<user id>": {"highlights": [...], "enabled": true, ...}}
//
// Save перечитывает файл, подменяет один профиль и пишет файл атомарно, так
// правки, сделанные руками между вызовами, не теряются.
type JSONStore struct {
	path string
	mu   sync.Mutex
}

type jsonDocument map[rules.ID]*rules.Profile

// OpenJSON готовит хранилище. Отсутствующий файл создаётся пустым.
func OpenJSON(path string) (*JSONStore, error) {
	if path == "" {
		return nil, errors.New("storage: json path is empty")
	}
	s := &JSONStore{path: filepath.Clean(path)}
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		if err := s.write(jsonDocument{}); err != nil {
			return nil, errors.Wrap(err, "init profiles file")
		}
		logger.Debugf("JSONStore: created initial file %s", s.path)
	} else if err != nil {
		return nil, errors.Wrapf(err, "stat %s", s.path)
	}
	return s, nil
}

// Path — путь к файлу; нужен Watcher.
func (s *JSONStore) Path() string { return s.path }

// Load читает файл. Битый JSON — ошибка, файл не перезаписывается.
func (s *JSONStore) Load(ctx context.Context) (map[rules.ID]*rules.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Save подменяет профиль user и записывает файл.
func (s *JSONStore) Save(ctx context.Context, user rules.ID, p *rules.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc[user] = p
	return s.write(doc)
}

// Close ничего не держит открытым.
func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) read() (jsonDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(err, "read %s", s.path)
	}
	var doc jsonDocument
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrapf(err, "decode %s", s.path)
		}
	}
	if doc == nil {
		doc = make(jsonDocument)
	}
	return doc, nil
}

func (s *JSONStore) write(doc jsonDocument) error {
	// Исходный бот ждёт "highlights": [], а не null. Профили — опубликованные
	// снимки реестра, поэтому правим копию.
	for user, p := range doc {
		if p != nil && p.Highlights == nil {
			cp := *p
			cp.Highlights = []rules.Rule{}
			doc[user] = &cp
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode profiles")
	}
	return AtomicWriteFile(s.path, data)
}
