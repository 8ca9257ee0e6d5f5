// Package repository stores the studio's local state.
package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-studio/internal/model"
)

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

var ErrNotFound = errors.New("not found")

// DraftBackup is the last unsaved payload of a post being edited.
type DraftBackup struct {
	Key         string
	PostID      model.PostID
	SiteID      model.SiteID
	Payload     model.PostPayload
	Fingerprint string
	UpdatedAt   time.Time
}

// BackupRepository keeps draft backups. Put and Delete make it a draft.Backup.
type BackupRepository interface {
	Put(key string, p model.PostPayload) error
	Delete(key string) error
	Get(key string) (*DraftBackup, error)
	List() ([]DraftBackup, error)
}

// Preferences are small values remembered between runs.
type Preferences interface {
	LastSite() (model.SiteID, error)
	SetLastSite(site model.SiteID) error

	Tokens() (Tokens, error)
	SetTokens(t Tokens) error
}

// Tokens is the latest rotated credential pair. Seed is the configured
// refresh token the pair descends from; a different configured token makes
// the stored pair stale.
type Tokens struct {
	Seed    string `json:"seed"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Backups of posts that exist on the server are keyed by the post id. Local
// keys of posts not created yet carry the "new:" prefix.
const newDraftPrefix = "new:"

// BackupKey is the backup key for a post, or a fresh local key when the post
// has no id yet.
func BackupKey(id model.PostID) string {
	if id != "" {
		return string(id)
	}
	return newDraftPrefix + uuid.New().String()
}

func postIDFromKey(key string) string {
	if strings.HasPrefix(key, newDraftPrefix) {
		return ""
	}
	return key
}
