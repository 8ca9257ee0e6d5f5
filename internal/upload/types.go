// Package upload moves a single local file to object storage through a
// presigned URL and registers it with the backend.
//
// A Session walks idle → presigning → uploading → completing → completed and
// can fall into error from any of those states. Both completed and error are
// terminal; a new upload gets a new Session.
package upload

import (
	"context"

	"github.com/rs/zerolog"
)

var uploadLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	uploadLogger = l
}

type Status string

const (
	StatusIdle       Status = "idle"
	StatusPresigning Status = "presigning"
	StatusUploading  Status = "uploading"
	StatusCompleting Status = "completing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Purpose tells the backend what the object is for; it picks bucket prefixes
// and the record the object gets attached to.
type Purpose string

const (
	PurposePostImage Purpose = "post_image"
	PurposeCover     Purpose = "cover"
	PurposeBanner    Purpose = "banner"
	PurposeBranding  Purpose = "branding"
)

type PresignInput struct {
	Filename    string  `json:"filename"`
	Size        int64   `json:"size"`
	ContentType string  `json:"content_type"`
	Purpose     Purpose `json:"purpose"`
	TargetID    string  `json:"target_id,omitempty"`
}

// Target is where the bytes go.
type Target struct {
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
	// PreviewURL is a temporary public URL some flows (branding) get before commit.
	PreviewURL string `json:"preview_url,omitempty"`
	// Headers must be sent with the PUT for the signature to match.
	Headers map[string]string `json:"headers,omitempty"`
}

type CompleteInput struct {
	Key      string  `json:"key"`
	TargetID string  `json:"target_id,omitempty"`
	Purpose  Purpose `json:"purpose"`
}

// Backend reserves, commits and releases storage objects.
type Backend interface {
	Presign(ctx context.Context, in PresignInput) (*Target, error)
	// Complete registers the object and returns its permanent public URL.
	Complete(ctx context.Context, in CompleteInput) (string, error)
	// Abort releases a reserved object. Callers treat it as best effort.
	Abort(ctx context.Context, key string) error
}
