// Package draft keeps the edits of one post in sync with the platform.
//
// A Coordinator holds the latest payload, compares it with the last one saved
// and saves on demand or on a timer. At most one save runs at a time: a
// trigger that arrives while a save is in flight is dropped, and the pending
// payload goes out with the next one.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-studio/internal/config"
	"github.com/debemdeboas/archive-studio/internal/model"
	"github.com/debemdeboas/archive-studio/internal/util"
)

var draftLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	draftLogger = l
}

const DefaultInterval = 5 * time.Minute

var (
	ErrNothingToSave  = errors.New("nothing to save")
	ErrAlreadyCreated = errors.New("post already created")
	ErrSaveInFlight   = errors.New("a save is already in flight")
)

// Store persists posts.
type Store interface {
	Create(ctx context.Context, p model.PostPayload) (model.PostID, error)
	Update(ctx context.Context, id model.PostID, p model.PostPayload) error
}

// Backup keeps a local copy of unsaved payloads.
type Backup interface {
	Put(key string, p model.PostPayload) error
	Delete(key string) error
}

type Options struct {
	// Interval between timer-driven saves. Zero means DefaultInterval.
	Interval time.Duration

	// PostID is the post being edited. Empty for a post not created yet.
	PostID model.PostID

	// AutoCreate lets the timer create a post that has no id yet. Without
	// it only Create does.
	AutoCreate bool

	Backup    Backup
	BackupKey string

	OnSaved func(id model.PostID, at time.Time)
	OnError func(err error)
	// OnDirtyChange receives every change of the dirty state, in order. It
	// must not call back into the Coordinator.
	OnDirtyChange func(dirty bool)

	Now func() time.Time
}

type Coordinator struct {
	store Store
	opts  Options

	mu          sync.Mutex
	postID      model.PostID
	current     *model.PostPayload
	currentFP   string
	version     uint64
	savedFP     string
	lastSavedAt time.Time
	dirty       bool

	saving atomic.Bool

	// notifyMu orders OnDirtyChange calls; notified is the last state delivered.
	notifyMu sync.Mutex
	notified bool

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(store Store, opts Options) *Coordinator {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BackupKey == "" {
		opts.BackupKey = string(opts.PostID)
	}
	return &Coordinator{
		store:  store,
		opts:   opts,
		postID: opts.PostID,
		stop:   make(chan struct{}),
	}
}

// Fingerprint identifies a payload by the hash of its JSON form.
func Fingerprint(p model.PostPayload) string {
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return util.ContentHash(b)
}

// Baseline records p as already saved, typically the post as loaded.
func (c *Coordinator) Baseline(p model.PostPayload) {
	fp := Fingerprint(p)

	c.mu.Lock()
	c.savedFP = fp
	c.current = &p
	c.currentFP = fp
	c.setDirty(false)
	c.mu.Unlock()

	c.notifyDirty()
}

// MarkAsChanged records the latest payload. The coordinator is dirty while it
// differs from the last saved one.
func (c *Coordinator) MarkAsChanged(p model.PostPayload) {
	fp := Fingerprint(p)

	c.mu.Lock()
	if c.current != nil && fp == c.currentFP {
		c.mu.Unlock()
		return
	}
	c.current = &p
	c.currentFP = fp
	c.version++
	dirty := fp != c.savedFP
	c.setDirty(dirty)
	c.mu.Unlock()

	c.notifyDirty()
}

// setDirty must be called with mu held.
func (c *Coordinator) setDirty(dirty bool) {
	c.dirty = dirty
}

// notifyDirty delivers the dirty state as it is now, not as it was when the
// caller changed it, so a late notification never overrides a newer one.
func (c *Coordinator) notifyDirty() {
	if c.opts.OnDirtyChange == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	dirty := c.dirty
	c.mu.Unlock()

	if dirty == c.notified {
		return
	}
	c.notified = dirty
	c.opts.OnDirtyChange(dirty)
}

// SaveNow updates the post with the pending payload. It does nothing when a
// save is in flight, nothing is pending or the post has no id yet.
func (c *Coordinator) SaveNow(ctx context.Context) error {
	if !c.saving.CompareAndSwap(false, true) {
		draftLogger.Debug().Msg("Save already in flight, dropping trigger")
		return nil
	}
	defer c.saving.Store(false)

	c.mu.Lock()
	if !c.dirty || c.current == nil || c.postID == "" {
		c.mu.Unlock()
		return nil
	}
	id, payload, fp, version := c.postID, *c.current, c.currentFP, c.version
	c.mu.Unlock()

	return c.save(ctx, id, payload, fp, version)
}

// Create creates the post from the current payload and remembers its id for
// every later save. It returns ErrSaveInFlight when another save holds the
// claim; that save may be the one creating the post.
func (c *Coordinator) Create(ctx context.Context) (model.PostID, error) {
	if !c.saving.CompareAndSwap(false, true) {
		return "", ErrSaveInFlight
	}
	defer c.saving.Store(false)

	c.mu.Lock()
	if c.postID != "" {
		id := c.postID
		c.mu.Unlock()
		return id, ErrAlreadyCreated
	}
	if c.current == nil {
		c.mu.Unlock()
		return "", ErrNothingToSave
	}
	payload, fp, version := *c.current, c.currentFP, c.version
	c.mu.Unlock()

	if err := c.save(ctx, "", payload, fp, version); err != nil {
		return "", err
	}
	return c.PostID(), nil
}

// Tick is one timer-driven save attempt.
func (c *Coordinator) Tick(ctx context.Context) {
	if c.saving.Load() || !c.Dirty() {
		return
	}

	if c.PostID() != "" {
		c.SaveNow(ctx)
		return
	}
	if c.opts.AutoCreate {
		c.Create(ctx)
	}
}

// Start saves every Interval in the background until ctx is done or Close
// is called.
func (c *Coordinator) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
}

func (c *Coordinator) run(ctx context.Context) {
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Close stops the timer. A dirty payload is left in the local backup.
func (c *Coordinator) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	c.wg.Wait()

	c.mu.Lock()
	dirty, current := c.dirty, c.current
	c.mu.Unlock()

	if dirty && current != nil {
		c.backup(*current)
	}
}

// save runs with the saving claim held. An empty id creates the post.
func (c *Coordinator) save(ctx context.Context, id model.PostID, p model.PostPayload, fp string, version uint64) error {
	l := draftLogger.With().Str("post", string(id)).Logger()
	c.backup(p)

	var err error
	if id == "" {
		id, err = c.store.Create(ctx, p)
		if err == nil && id == "" {
			err = errors.New("server did not return an id")
		}
	} else {
		err = c.store.Update(ctx, id, p)
	}

	if err != nil {
		l.Warn().Err(err).Msg("Save failed")
		err = fmt.Errorf(config.ErrSaveFailedFmt, err)
		if c.opts.OnError != nil {
			c.opts.OnError(err)
		}
		return err
	}

	now := c.opts.Now()

	c.mu.Lock()
	c.postID = id
	c.savedFP = fp
	c.lastSavedAt = now
	// A newer edit that arrived during the save keeps the draft dirty.
	dirty := c.version != version && c.currentFP != fp
	c.setDirty(dirty)
	c.mu.Unlock()

	l.Info().Str("post", string(id)).Msg("Draft saved")

	if !dirty {
		c.dropBackup()
	}
	c.notifyDirty()
	if c.opts.OnSaved != nil {
		c.opts.OnSaved(id, now)
	}
	return nil
}

func (c *Coordinator) backup(p model.PostPayload) {
	if c.opts.Backup == nil || c.opts.BackupKey == "" {
		return
	}
	if err := c.opts.Backup.Put(c.opts.BackupKey, p); err != nil {
		draftLogger.Warn().Err(err).Str("key", c.opts.BackupKey).Msg("Could not write draft backup")
	}
}

func (c *Coordinator) dropBackup() {
	if c.opts.Backup == nil || c.opts.BackupKey == "" {
		return
	}
	if err := c.opts.Backup.Delete(c.opts.BackupKey); err != nil {
		draftLogger.Warn().Err(err).Str("key", c.opts.BackupKey).Msg("Could not remove draft backup")
	}
}

func (c *Coordinator) PostID() model.PostID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.postID
}

func (c *Coordinator) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

func (c *Coordinator) Saving() bool {
	return c.saving.Load()
}

func (c *Coordinator) LastSavedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSavedAt
}

// Pending returns the payload waiting to be saved.
func (c *Coordinator) Pending() (model.PostPayload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty || c.current == nil {
		return model.PostPayload{}, false
	}
	return *c.current, true
}
