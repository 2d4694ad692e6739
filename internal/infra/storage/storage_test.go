package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"highlight-bot/internal/domain/rules"
	"highlight-bot/internal/infra/storage"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func sampleProfile() *rules.Profile {
	before := 60
	return &rules.Profile{
		Highlights: []rules.Rule{
			{Name: "global", Conditions: []rules.Condition{rules.Bot{Negate: true}}},
			{Name: "go", Conditions: []rules.Condition{
				rules.Literal{Text: "golang"},
				rules.Channel{IDs: []rules.ID{10, 20}},
			}, NoGlobal: true},
		},
		Blocked:  []rules.ID{42},
		Settings: rules.Settings{BeforeTime: &before},
	}
}

func TestStores(t *testing.T) {
	t.Parallel()

	open := map[string]func(t *testing.T, dir string) storage.Store{
		"bolt": func(t *testing.T, dir string) storage.Store {
			s, err := storage.OpenBolt(filepath.Join(dir, "nested", "profiles.bbolt"))
			require.NoError(t, err)
			return s
		},
		"json": func(t *testing.T, dir string) storage.Store {
			s, err := storage.OpenJSON(filepath.Join(dir, "nested", "profiles.json"))
			require.NoError(t, err)
			return s
		},
	}

	for name, openFn := range open {
		name, openFn := name, openFn
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			s := openFn(t, t.TempDir())
			defer func() { require.NoError(t, s.Close()) }()

			loaded, err := s.Load(ctx)
			require.NoError(t, err)
			require.Empty(t, loaded)

			require.NoError(t, s.Save(ctx, 1, sampleProfile()))
			require.NoError(t, s.Save(ctx, 2, &rules.Profile{}))
			updated := sampleProfile()
			updated.SetEnabled(false)
			require.NoError(t, s.Save(ctx, 1, updated))

			loaded, err = s.Load(ctx)
			require.NoError(t, err)
			require.Len(t, loaded, 2)
			if diff := cmp.Diff(updated, loaded[1]); diff != "" {
				t.Fatalf("profile 1 (-want +got):\n%s", diff)
			}
			require.False(t, loaded[1].IsEnabled())
		})
	}
}

func TestJSONStoreKeepsBrokenFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "profiles.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := storage.OpenJSON(path)
	require.NoError(t, err)
	_, err = s.Load(context.Background())
	require.Error(t, err)
	require.Error(t, s.Save(context.Background(), 1, &rules.Profile{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{not json", string(data))
}

func TestJSONStoreKeepsForeignUsers(t *testing.T) {
	t.Parallel()

	// Файл в формате config.json исходного бота: записи пользователей на верхнем уровне.
	const legacy = `{
  "111": {"highlights": [{"name": "go", "filters": [{"type": "literal", "text": "go", "negate": false}], "noglobal": false}]},
  "222": {"highlights": [{"name": "ch", "filters": [{"type": "channel", "id": 5, "negate": true}], "noglobal": true}],
          "enabled": false, "blocked": [9], "before_time": 60}
}`
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	ctx := context.Background()
	s, err := storage.OpenJSON(path)
	require.NoError(t, err)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, []rules.Condition{rules.Literal{Text: "go"}}, loaded[111].Highlights[0].Conditions)
	require.False(t, loaded[222].IsEnabled())

	require.NoError(t, s.Save(ctx, 333, &rules.Profile{}))

	after, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, after, 3)
	if diff := cmp.Diff(loaded[111], after[111]); diff != "" {
		t.Fatalf("user 111 changed (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(loaded[222], after[222]); diff != "" {
		t.Fatalf("user 222 changed (-before +after):\n%s", diff)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), `"profiles"`)
	require.NotContains(t, string(data), "null")
	require.Contains(t, string(data), `"highlights": []`)
}

func TestAtomicWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a", "b", "file.txt")
	require.NoError(t, storage.AtomicWriteFile(path, []byte("one")))
	require.NoError(t, storage.AtomicWriteFile(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "two", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestWatcherReportsExternalEdit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

	changed := make(chan struct{}, 8)
	w := storage.NewWatcher(path, func() { changed <- struct{}{} })
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	// Изменения соседних файлов не интересуют.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("x"), 0o600))
	require.NoError(t, storage.AtomicWriteFile(path, []byte(`{"1":{"highlights":[]}}`)))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the change")
	}
}
