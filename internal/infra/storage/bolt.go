package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"go.etcd.io/bbolt"

	"highlight-bot/internal/domain/rules"
)

const (
	profilesBucketName = "profiles"
	dbFileMode         = 0o600
	dbOpenTimeout      = time.Second
)

var profilesBucket = []byte(profilesBucketName)

// BoltStore хранит профили в bbolt: бакет "profiles", ключ — десятичный ID
// пользователя, значение — JSON профиля.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt открывает (или создаёт) базу по пути path.
func OpenBolt(path string) (*BoltStore, error) {
	if path == "" {
		return nil, errors.New("storage: db path is empty")
	}
	if err := EnsureDir(path); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, dbFileMode, &bbolt.Options{Timeout: dbOpenTimeout})
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt %s", path)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(profilesBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create profiles bucket")
	}
	return &BoltStore{db: db}, nil
}

// Load читает все профили. Запись с битым ключом или JSON прерывает загрузку:
// молча потерять чужие правила хуже, чем не стартовать.
func (s *BoltStore) Load(ctx context.Context) (map[rules.ID]*rules.Profile, error) {
	out := make(map[rules.ID]*rules.Profile)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(profilesBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, err := rules.ParseID(string(k))
			if err != nil {
				return errors.Wrapf(err, "profile key %q", k)
			}
			var p rules.Profile
			if err := json.Unmarshal(v, &p); err != nil {
				return errors.Wrapf(err, "decode profile %s", id)
			}
			out[id] = &p
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "load profiles")
	}
	return out, nil
}

// Save перезаписывает профиль пользователя.
func (s *BoltStore) Save(ctx context.Context, user rules.ID, p *rules.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrapf(err, "encode profile %s", user)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(profilesBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(user.String()), data)
	})
}

// Close закрывает базу.
func (s *BoltStore) Close() error { return s.db.Close() }
