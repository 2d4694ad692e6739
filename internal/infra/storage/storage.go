// Package storage — персистентное хранение профилей подсветки.
//
// Две реализации Store: bbolt (по умолчанию, одна запись на пользователя) и
// JSON-файл (весь набор профилей в одном документе, удобно править руками).
// Файл JSON можно отслеживать через Watcher и перечитывать при внешних правках.
//
// Здесь же утилиты безопасной записи: EnsureDir и AtomicWriteFile.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"highlight-bot/internal/domain/rules"
	"highlight-bot/internal/infra/logger"
)

// Store — хранилище профилей. Реализации потокобезопасны.
type Store interface {
	// Load читает все профили.
	Load(ctx context.Context) (map[rules.ID]*rules.Profile, error)
	// Save сохраняет профиль пользователя целиком.
	Save(ctx context.Context, user rules.ID, p *rules.Profile) error
	Close() error
}

const defaultFilePerm = 0o600

// EnsureDir создаёт каталог для файла path (0o700). Путь без каталога пропускается.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	return nil
}

// AtomicWriteFile атомарно заменяет содержимое path:
// temp в том же каталоге, write, fsync, chmod 0o600, close, rename, fsync каталога.
// Либо остаётся старый файл, либо новый записан целиком. rename атомарен только
// в пределах одного тома, поэтому temp создаётся рядом с целевым файлом.
func AtomicWriteFile(path string, data []byte) error {
	clean := filepath.Clean(path)
	if err := EnsureDir(clean); err != nil {
		return err
	}
	dir := filepath.Dir(clean)

	tmp, err := os.CreateTemp(dir, "atomic-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := tmp.Chmod(defaultFilePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, clean); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	// fsync каталога best-effort: некоторые ОС и ФС его не поддерживают.
	if dirFile, err := os.Open(dir); err == nil {
		if errSync := dirFile.Sync(); errSync != nil {
			logger.Warn("AtomicWriteFile: dir sync failed", zap.String("dir", dir), zap.Error(errSync))
		}
		_ = dirFile.Close()
	}
	return nil
}
