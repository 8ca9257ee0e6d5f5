package repository

import (
	"cmp"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/debemdeboas/archive-studio/internal/model"
	"github.com/debemdeboas/archive-studio/internal/util"
)

// MemoryRepository keeps backups and preferences for the life of the process.
type MemoryRepository struct {
	backups sync.Map
	prefs   sync.Map
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now}
}

func (m *MemoryRepository) Put(key string, p model.PostPayload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	m.backups.Store(key, &DraftBackup{
		Key:         key,
		PostID:      model.PostID(postIDFromKey(key)),
		Payload:     p,
		Fingerprint: util.ContentHash(raw),
		UpdatedAt:   m.now(),
	})
	return nil
}

func (m *MemoryRepository) Delete(key string) error {
	m.backups.Delete(key)
	return nil
}

func (m *MemoryRepository) Get(key string) (*DraftBackup, error) {
	if b, ok := m.backups.Load(key); ok {
		copied := *b.(*DraftBackup)
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) List() ([]DraftBackup, error) {
	var out []DraftBackup
	m.backups.Range(func(_, v any) bool {
		out = append(out, *v.(*DraftBackup))
		return true
	})
	slices.SortStableFunc(out, func(a, b DraftBackup) int {
		return cmp.Compare(b.UpdatedAt.UnixNano(), a.UpdatedAt.UnixNano())
	})
	return out, nil
}

func (m *MemoryRepository) LastSite() (model.SiteID, error) {
	if v, ok := m.prefs.Load(prefLastSite); ok {
		return v.(model.SiteID), nil
	}
	return "", ErrNotFound
}

func (m *MemoryRepository) SetLastSite(site model.SiteID) error {
	m.prefs.Store(prefLastSite, site)
	return nil
}

func (m *MemoryRepository) Tokens() (Tokens, error) {
	if v, ok := m.prefs.Load(prefTokens); ok {
		return v.(Tokens), nil
	}
	return Tokens{}, ErrNotFound
}

func (m *MemoryRepository) SetTokens(t Tokens) error {
	m.prefs.Store(prefTokens, t)
	return nil
}
