package learned

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-expenses/internal/config"
)

func openStores(t *testing.T) map[string]func(path string) (Store, error) {
	t.Helper()
	return map[string]func(string) (Store, error){
		"file": func(p string) (Store, error) {
			return Open(config.LearnedConfig{Driver: config.DriverFile, Path: filepath.Join(p, "learned.json")})
		},
		"sqlite": func(p string) (Store, error) {
			return Open(config.LearnedConfig{Driver: config.DriverSQLite, Path: filepath.Join(p, "learned.db")})
		},
	}
}

func TestStore_RecordAndLookup(t *testing.T) {
	ctx := context.Background()
	for name, open := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			s, err := open(dir)
			require.NoError(t, err)

			_, ok, err := s.Lookup(ctx, "WHOLE FOODS MARKET")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Record(ctx, "WHOLE FOODS MARKET", "Groceries"))
			require.NoError(t, s.Record(ctx, "WHOLE FOODS MARKET", "Meals & Entertainment"))
			require.NoError(t, s.Record(ctx, "UBER TRIP", "Travel"))

			cat, ok, err := s.Lookup(ctx, "WHOLE FOODS MARKET")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "Meals & Entertainment", cat)

			all, err := s.All(ctx)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{
				"WHOLE FOODS MARKET": "Meals & Entertainment",
				"UBER TRIP":          "Travel",
			}, all)
			require.NoError(t, s.Close())

			// reopened store sees persisted rules
			s, err = open(dir)
			require.NoError(t, err)
			defer s.Close()
			cat, ok, err = s.Lookup(ctx, "UBER TRIP")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "Travel", cat)
		})
	}
}

func TestStore_ConcurrentRecord(t *testing.T) {
	ctx := context.Background()
	for name, open := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			s, err := open(t.TempDir())
			require.NoError(t, err)
			defer s.Close()

			descs := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
			var wg sync.WaitGroup
			for _, d := range descs {
				wg.Add(1)
				go func(d string) {
					defer wg.Done()
					assert.NoError(t, s.Record(ctx, d, "Rent"))
				}(d)
			}
			wg.Wait()

			all, err := s.All(ctx)
			require.NoError(t, err)
			assert.Len(t, all, len(descs))
		})
	}
}

func TestFileStore_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "learned.json")
	s, err := OpenFile(path)
	require.NoError(t, err)

	require.NoError(t, s.Record(context.Background(), "STAPLES", "Office Supplies"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"STAPLES": "Office Supplies"}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestOpenFile_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learned.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := OpenFile(path)
	assert.Error(t, err)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.LearnedConfig{Driver: "redis", Path: "x"})
	assert.ErrorIs(t, err, config.ErrMalformedConfiguration)
}
