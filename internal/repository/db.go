package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/debemdeboas/archive-studio/internal/db"
	"github.com/debemdeboas/archive-studio/internal/model"
	"github.com/debemdeboas/archive-studio/internal/util"
	"github.com/debemdeboas/archive-studio/internal/util/compression"
)

// DBBackupRepository keeps zstd compressed backups in the local state db.
type DBBackupRepository struct {
	db         db.DB
	compressor compression.Compressor

	site model.SiteID
	now  func() time.Time
}

func NewDBBackupRepository(db db.DB, site model.SiteID) *DBBackupRepository {
	return &DBBackupRepository{
		db:         db,
		compressor: compression.ZstdCompressor{},
		site:       site,
		now:        time.Now,
	}
}

func (r *DBBackupRepository) Put(key string, p model.PostPayload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding backup: %w", err)
	}

	packed, err := r.compressor.Compress(raw)
	if err != nil {
		return fmt.Errorf("compressing backup: %w", err)
	}

	_, err = r.db.Exec(`
INSERT INTO draft_backups (key, post_id, site_id, payload, fingerprint, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    payload = excluded.payload,
    fingerprint = excluded.fingerprint,
    updated_at = excluded.updated_at`,
		key, postIDFromKey(key), string(r.site), packed, util.ContentHash(raw), r.now().UTC())
	if err != nil {
		return fmt.Errorf("saving backup: %w", err)
	}

	repoLogger.Debug().Str("key", key).Int("size", len(raw)).Int("stored", len(packed)).Msg("Draft backed up")
	return nil
}

func (r *DBBackupRepository) Delete(key string) error {
	if _, err := r.db.Exec(`DELETE FROM draft_backups WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting backup: %w", err)
	}
	return nil
}

func (r *DBBackupRepository) Get(key string) (*DraftBackup, error) {
	row := r.db.QueryRow(`
SELECT key, post_id, site_id, payload, fingerprint, updated_at
FROM draft_backups WHERE key = ?`, key)

	b, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// List returns every backup, newest first.
func (r *DBBackupRepository) List() ([]DraftBackup, error) {
	rows, err := r.db.Query(`
SELECT key, post_id, site_id, payload, fingerprint, updated_at
FROM draft_backups ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying backups: %w", err)
	}
	defer rows.Close()

	var backups []DraftBackup
	for rows.Next() {
		b, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		backups = append(backups, *b)
	}
	return backups, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *DBBackupRepository) scan(s scanner) (*DraftBackup, error) {
	var b DraftBackup
	var postID, siteID sql.NullString
	var packed []byte

	if err := s.Scan(&b.Key, &postID, &siteID, &packed, &b.Fingerprint, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.PostID = model.PostID(postID.String)
	b.SiteID = model.SiteID(siteID.String)

	raw, err := compression.DecompressAny(packed)
	if err != nil {
		return nil, fmt.Errorf("decompressing backup %s: %w", b.Key, err)
	}
	if err := json.Unmarshal(raw, &b.Payload); err != nil {
		return nil, fmt.Errorf("decoding backup %s: %w", b.Key, err)
	}
	return &b, nil
}

// DBPreferences keeps preferences in the local state db.
type DBPreferences struct {
	db db.DB
}

func NewDBPreferences(db db.DB) *DBPreferences {
	return &DBPreferences{db: db}
}

const (
	prefLastSite = "last_site"
	prefTokens   = "tokens"
)

func (p *DBPreferences) get(key string) (string, error) {
	var value string
	err := p.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

func (p *DBPreferences) set(key, value string) error {
	_, err := p.db.Exec(`
INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, key, value)
	return err
}

func (p *DBPreferences) LastSite() (model.SiteID, error) {
	v, err := p.get(prefLastSite)
	return model.SiteID(v), err
}

func (p *DBPreferences) SetLastSite(site model.SiteID) error {
	return p.set(prefLastSite, string(site))
}

func (p *DBPreferences) Tokens() (Tokens, error) {
	var t Tokens
	v, err := p.get(prefTokens)
	if err != nil {
		return t, err
	}
	if err := json.Unmarshal([]byte(v), &t); err != nil {
		return t, fmt.Errorf("decoding stored tokens: %w", err)
	}
	return t, nil
}

func (p *DBPreferences) SetTokens(t Tokens) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return p.set(prefTokens, string(b))
}
