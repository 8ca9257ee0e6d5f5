package repository

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debemdeboas/archive-studio/internal/db"
	"github.com/debemdeboas/archive-studio/internal/draft"
	"github.com/debemdeboas/archive-studio/internal/model"
)

var (
	_ draft.Backup     = (*DBBackupRepository)(nil)
	_ draft.Backup     = (*MemoryRepository)(nil)
	_ BackupRepository = (*DBBackupRepository)(nil)
	_ BackupRepository = (*MemoryRepository)(nil)
	_ Preferences      = (*DBPreferences)(nil)
	_ Preferences      = (*MemoryRepository)(nil)
)

func newTestDB(t *testing.T) db.DB {
	t.Helper()
	d := db.NewSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, d.InitDB())
	t.Cleanup(func() { d.Close() })
	return d
}

type backupCase struct {
	name string
	repo func(t *testing.T) BackupRepository
}

func backupRepos() []backupCase {
	return []backupCase{
		{"db", func(t *testing.T) BackupRepository { return NewDBBackupRepository(newTestDB(t), "s1") }},
		{"memory", func(t *testing.T) BackupRepository { return NewMemoryRepository() }},
	}
}

func TestBackupRepository(t *testing.T) {
	long := strings.Repeat("All work and no play makes Jack a dull boy. ", 200)

	for _, tc := range backupRepos() {
		t.Run(tc.name, func(t *testing.T) {
			repo := tc.repo(t)

			_, err := repo.Get("p1")
			assert.ErrorIs(t, err, ErrNotFound)

			first := model.PostPayload{Title: "First", Content: long, Tags: []string{"go"}}
			require.NoError(t, repo.Put("p1", first))

			got, err := repo.Get("p1")
			require.NoError(t, err)
			assert.Equal(t, first, got.Payload)
			assert.Equal(t, model.PostID("p1"), got.PostID)
			assert.NotEmpty(t, got.Fingerprint)

			second := model.PostPayload{Title: "Second", Content: "short"}
			require.NoError(t, repo.Put("p1", second))
			got, err = repo.Get("p1")
			require.NoError(t, err)
			assert.Equal(t, second, got.Payload)

			newKey := BackupKey("")
			require.True(t, strings.HasPrefix(newKey, "new:"))
			require.NoError(t, repo.Put(newKey, first))

			list, err := repo.List()
			require.NoError(t, err)
			assert.Len(t, list, 2)

			created, err := repo.Get(newKey)
			require.NoError(t, err)
			assert.Empty(t, created.PostID)

			require.NoError(t, repo.Delete("p1"))
			_, err = repo.Get("p1")
			assert.ErrorIs(t, err, ErrNotFound)
			require.NoError(t, repo.Delete("p1"))
		})
	}
}

func TestDBBackupOrder(t *testing.T) {
	repo := NewDBBackupRepository(newTestDB(t), "s1")
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, key := range []string{"a", "b", "c"} {
		repo.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		require.NoError(t, repo.Put(key, model.PostPayload{Title: key}))
	}

	list, err := repo.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].Key)
	assert.Equal(t, "a", list[2].Key)
	assert.Equal(t, model.SiteID("s1"), list[0].SiteID)
	assert.True(t, list[0].UpdatedAt.Equal(base.Add(2*time.Minute)))
}

func TestPreferences(t *testing.T) {
	cases := []struct {
		name  string
		prefs func(t *testing.T) Preferences
	}{
		{"db", func(t *testing.T) Preferences { return NewDBPreferences(newTestDB(t)) }},
		{"memory", func(t *testing.T) Preferences { return NewMemoryRepository() }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prefs := tc.prefs(t)

			_, err := prefs.LastSite()
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, prefs.SetLastSite("s1"))
			require.NoError(t, prefs.SetLastSite("s2"))

			site, err := prefs.LastSite()
			require.NoError(t, err)
			assert.Equal(t, model.SiteID("s2"), site)

			_, err = prefs.Tokens()
			assert.ErrorIs(t, err, ErrNotFound)

			want := Tokens{Seed: "r0", Access: "a1", Refresh: "r1"}
			require.NoError(t, prefs.SetTokens(want))
			got, err := prefs.Tokens()
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestBackupKey(t *testing.T) {
	assert.Equal(t, "p9", BackupKey("p9"))
	assert.NotEqual(t, BackupKey(""), BackupKey(""))
	assert.Equal(t, "", postIDFromKey(BackupKey("")))
}
