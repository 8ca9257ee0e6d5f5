package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/debemdeboas/archive-studio/internal/config"
)

var (
	ErrCanceled   = errors.New(config.ErrUploadCanceled)
	ErrSuperseded = errors.New(config.ErrUploadSuperseded)
	ErrNoURL      = errors.New(config.ErrUploadNoPublicURL)
)

// Options are the caller's limits and routing for one upload.
type Options struct {
	MaxSize      int64
	AllowedTypes []string
	MaxWidth     int

	Purpose  Purpose
	TargetID string

	// OnChange receives every state or progress change.
	OnChange func(Snapshot)
}

type Uploader struct {
	backend      Backend
	httpClient   *http.Client
	abortTimeout time.Duration
}

type UploaderOption func(*Uploader)

// WithStorageClient sets the client used for the direct PUT. It must not add
// credentials: the presigned URL is the authorization.
func WithStorageClient(c *http.Client) UploaderOption {
	return func(u *Uploader) { u.httpClient = c }
}

func WithAbortTimeout(d time.Duration) UploaderOption {
	return func(u *Uploader) { u.abortTimeout = d }
}

func NewUploader(backend Backend, opts ...UploaderOption) *Uploader {
	u := &Uploader{
		backend:      backend,
		httpClient:   &http.Client{},
		abortTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload runs the whole sequence and returns the terminal session.
func (u *Uploader) Upload(ctx context.Context, f File, opts Options) *Session {
	s := newSession(f.Size, opts.OnChange)
	u.run(ctx, s, f, opts)
	return s
}

// Start runs the sequence in the background. Cancelling ctx aborts the
// in-flight call and releases the reserved object.
func (u *Uploader) Start(ctx context.Context, f File, opts Options) *Session {
	s := newSession(f.Size, opts.OnChange)
	go u.run(ctx, s, f, opts)
	return s
}

func (u *Uploader) run(ctx context.Context, s *Session, f File, opts Options) {
	l := uploadLogger.With().Str("file", f.Name).Int64("size", f.Size).Logger()

	if err := Validate(f, opts); err != nil {
		l.Info().Err(err).Msg("Upload rejected")
		s.fail(err)
		return
	}

	s.update(StatusPresigning, nil)
	target, err := u.backend.Presign(ctx, PresignInput{
		Filename:    f.Name,
		Size:        f.Size,
		ContentType: f.ContentType,
		Purpose:     opts.Purpose,
		TargetID:    opts.TargetID,
	})
	if err != nil {
		l.Error().Err(err).Msg("Presign failed")
		s.fail(u.stepError(ctx, config.ErrUploadPresignFmt, err))
		return
	}

	s.update(StatusUploading, func(snap *Snapshot) {
		snap.Key = target.Key
		snap.PreviewURL = target.PreviewURL
	})

	if err := u.put(ctx, target, f, s.progress); err != nil {
		l.Error().Err(err).Str("key", target.Key).Msg("Direct upload failed")
		u.abort(ctx, target.Key)
		s.fail(u.stepError(ctx, config.ErrUploadStorageFmt, err))
		return
	}

	s.update(StatusCompleting, nil)
	publicURL, err := u.backend.Complete(ctx, CompleteInput{
		Key:      target.Key,
		TargetID: opts.TargetID,
		Purpose:  opts.Purpose,
	})
	if err == nil && publicURL == "" {
		err = ErrNoURL
	}
	if err != nil {
		l.Error().Err(err).Str("key", target.Key).Msg("Completing upload failed")
		u.abort(ctx, target.Key)
		s.fail(u.stepError(ctx, config.ErrUploadCompleteFmt, err))
		return
	}

	l.Info().Str("key", target.Key).Str("url", publicURL).Msg("Upload completed")
	s.complete(publicURL)
}

// stepError turns a step failure into the message shown to the user. A
// cancelled context wins over whatever the step reported.
func (u *Uploader) stepError(ctx context.Context, format string, err error) error {
	if ctx.Err() != nil {
		if cause := context.Cause(ctx); errors.Is(cause, ErrSuperseded) {
			return ErrSuperseded
		}
		return ErrCanceled
	}
	if errors.Is(err, ErrNoURL) {
		return ErrNoURL
	}
	return fmt.Errorf(format, err)
}

// abort is best effort: failures are logged and never surfaced. It outlives
// a cancelled ctx so the reservation is still released.
func (u *Uploader) abort(ctx context.Context, key string) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.abortTimeout)
	defer cancel()

	if err := u.backend.Abort(actx, key); err != nil {
		uploadLogger.Warn().Err(err).Str("key", key).Msg("Abort failed")
	}
}

func (u *Uploader) put(ctx context.Context, target *Target, f File, onProgress func(int64)) error {
	// A non-nil body with a zero length goes out chunked, which presigned
	// PUTs reject.
	var body io.Reader = http.NoBody
	if f.Size > 0 {
		body = &progressReader{r: f.reader(), onRead: onProgress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.UploadURL, body)
	if err != nil {
		return err
	}
	req.ContentLength = f.Size
	req.Header.Set(config.HCType, f.ContentType)
	for k, v := range target.Headers {
		req.Header.Set(k, v)
	}

	res, err := u.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("storage responded with status %d", res.StatusCode)
	}
	return nil
}

type progressReader struct {
	r      io.Reader
	read   atomic.Int64
	onRead func(int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		total := p.read.Add(int64(n))
		if p.onRead != nil {
			p.onRead(total)
		}
	}
	return n, err
}
