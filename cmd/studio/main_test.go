package main

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-studio/internal/api"
	"github.com/debemdeboas/archive-studio/internal/config"
	"github.com/debemdeboas/archive-studio/internal/draft"
	"github.com/debemdeboas/archive-studio/internal/form"
	"github.com/debemdeboas/archive-studio/internal/model"
	"github.com/debemdeboas/archive-studio/internal/repository"
	"github.com/debemdeboas/archive-studio/internal/upload"
)

type fakePosts struct {
	mu      sync.Mutex
	created []model.PostPayload
	updated []model.PostPayload
	status  map[model.PostID]model.PostStatus
	err     error
}

func (f *fakePosts) CreatePost(_ context.Context, _ model.SiteID, p model.PostPayload) (*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, p)
	return &model.Post{ID: model.PostID("post-" + p.Slug), Status: p.Status}, nil
}

func (f *fakePosts) UpdatePost(_ context.Context, _ model.SiteID, id model.PostID, p model.PostPayload) (*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, p)
	return &model.Post{ID: id}, nil
}

func (f *fakePosts) SetPostStatus(_ context.Context, _ model.SiteID, id model.PostID, status model.PostStatus) (*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == nil {
		f.status = map[model.PostID]model.PostStatus{}
	}
	f.status[id] = status
	return &model.Post{ID: id, Status: status}, nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestProgressBar(t *testing.T) {
	if got := progressBar(0); !strings.HasPrefix(got, "[ ") || !strings.HasSuffix(got, "  0%") {
		t.Errorf("Unexpected empty bar %q", got)
	}
	if got := progressBar(50); strings.Count(got, "=") != progressWidth/2 {
		t.Errorf("Expected half a bar, got %q", got)
	}
	if got := progressBar(150); strings.Count(got, "=") != progressWidth || !strings.HasSuffix(got, "100%") {
		t.Errorf("Expected a full bar, got %q", got)
	}
}

func TestFindSite(t *testing.T) {
	sites := []model.Site{
		{ID: "s1", Subdomain: "alice", Name: "Alice"},
		{ID: "s2", Subdomain: "bob", CustomDomain: "bob.example.com", Name: "Bob"},
	}

	for _, ref := range []string{"s2", "bob", "bob.example.com"} {
		if s := findSite(sites, ref); s == nil || s.ID != "s2" {
			t.Errorf("Expected %q to find s2, got %+v", ref, s)
		}
	}
	if s := findSite(sites, "carol"); s != nil {
		t.Errorf("Expected no site, got %+v", s)
	}
}

func TestSignChallenge(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	challenge := []byte("challenge-123")
	sig, err := signChallenge(priv, base64.StdEncoding.EncodeToString(challenge))
	if err != nil {
		t.Fatalf("Failed to sign: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		t.Fatalf("Signature is not base64: %v", err)
	}
	if !ed25519.Verify(pub, challenge, raw) {
		t.Error("Signature does not verify")
	}

	if _, err := signChallenge(priv, "not base64!"); err == nil {
		t.Error("Expected an error for invalid base64")
	}
}

func TestImportDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b-first.md", "%%%\ntitle = \"First\"\nslug = \"first\"\n%%%\n\nHello")
	writeFile(t, dir, "a-empty.md", "%%%\ntitle = \"Empty\"\nslug = \"empty\"\n%%%\n\n")
	writeFile(t, dir, "notes.txt", "not a post")
	if err := os.Mkdir(filepath.Join(dir, "drafts.md"), 0o755); err != nil {
		t.Fatal(err)
	}

	posts := &fakePosts{}
	results, err := importDir(context.Background(), posts, "s1", dir, true, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].File != "a-empty.md" || results[1].File != "b-first.md" {
		t.Errorf("Expected results sorted by file name, got %s, %s", results[0].File, results[1].File)
	}

	var errs form.Errors
	if !errors.As(results[0].Err, &errs) || !errs.Has(form.FieldContent) {
		t.Errorf("Expected a content error for the empty post, got %v", results[0].Err)
	}
	if results[1].Err != nil || results[1].ID != "post-first" {
		t.Errorf("Unexpected result for first post: %+v", results[1])
	}

	if len(posts.created) != 1 || posts.created[0].Status != model.StatusPublished {
		t.Errorf("Expected one published post to be created, got %+v", posts.created)
	}
}

func TestImportDirStopsWhenSignedOut(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.md", "# One\n\nBody")

	posts := &fakePosts{err: api.ErrSignInRequired}
	if _, err := importDir(context.Background(), posts, "s1", dir, false, 1); !errors.Is(err, api.ErrSignInRequired) {
		t.Errorf("Expected sign-in required, got %v", err)
	}
}

func TestPrintFormErrors(t *testing.T) {
	var out bytes.Buffer
	err := printFormErrors(&out, form.Errors{
		form.FieldContent: "content cannot be empty",
		form.FieldTitle:   "title cannot be empty",
	})

	if err == nil || !strings.Contains(err.Error(), "title") {
		t.Errorf("Expected the focused field in the error, got %v", err)
	}
	text := out.String()
	if strings.Index(text, "title cannot be empty") > strings.Index(text, "content cannot be empty") {
		t.Errorf("Expected title before content, got %q", text)
	}

	plain := errors.New("network down")
	if got := printFormErrors(&out, plain); got != plain {
		t.Errorf("Expected unrelated errors to pass through, got %v", got)
	}
}

func TestValidatingStore(t *testing.T) {
	posts := &fakePosts{}
	store := validatingStore{draft.SiteStore{Client: posts, Site: "s1"}}

	_, err := store.Create(context.Background(), model.PostPayload{Content: "body"})
	var errs form.Errors
	if !errors.As(err, &errs) || !errs.Has(form.FieldTitle) {
		t.Errorf("Expected a title error, got %v", err)
	}
	if err := store.Update(context.Background(), "p1", model.PostPayload{Title: "T", Slug: "Bad Slug", Content: "body"}); err == nil {
		t.Error("Expected the invalid slug to be rejected")
	}
	if len(posts.created)+len(posts.updated) != 0 {
		t.Error("Expected nothing to reach the server")
	}

	if err := store.Update(context.Background(), "p1", model.PostPayload{Title: "T", Content: "body"}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func newTestSession(posts *fakePosts, id model.PostID) (*editSession, *bytes.Buffer) {
	var out bytes.Buffer
	s := newEditSession("s1", posts, draft.SiteStore{Client: posts, Site: "s1"}, draft.Options{PostID: id}, "studio://edit/post.md", &out)
	return s, &out
}

func TestEditSessionQuitAsksWhenDirty(t *testing.T) {
	posts := &fakePosts{}
	s, out := newTestSession(posts, "")
	defer s.guard.Release()
	ctx := context.Background()

	s.coord.MarkAsChanged(model.PostPayload{Title: "Hello", Slug: "hello", Content: "body"})

	if s.handle(ctx, "quit\n") {
		t.Fatal("Expected quit to be held back with unsaved changes")
	}
	if !strings.Contains(out.String(), "unsaved changes") {
		t.Errorf("Expected a warning, got %q", out.String())
	}

	if s.handle(ctx, "save") {
		t.Fatal("save must not end the session")
	}
	if len(posts.created) != 1 || s.coord.PostID() != "post-hello" {
		t.Fatalf("Expected the post to be created, got %+v", posts.created)
	}

	if !s.handle(ctx, "quit") {
		t.Error("Expected quit to end the session once saved")
	}
}

func TestEditSessionDiscard(t *testing.T) {
	s, _ := newTestSession(&fakePosts{}, "p1")
	defer s.guard.Release()

	s.coord.Baseline(model.PostPayload{Title: "Saved", Content: "body"})
	s.coord.MarkAsChanged(model.PostPayload{Title: "Edited", Content: "body"})

	if s.interrupt() {
		t.Fatal("Expected Ctrl-C to be held back with unsaved changes")
	}
	if !s.handle(context.Background(), "discard") {
		t.Fatal("Expected discard to end the session")
	}
	if !s.interrupt() {
		t.Error("Expected Ctrl-C to leave after discard")
	}
}

func TestEditSessionPublish(t *testing.T) {
	posts := &fakePosts{}
	s, out := newTestSession(posts, "p1")
	defer s.guard.Release()

	s.coord.Baseline(model.PostPayload{Title: "Saved", Content: "body"})
	s.coord.MarkAsChanged(model.PostPayload{Title: "Edited", Content: "body"})

	s.handle(context.Background(), "publish")

	if len(posts.updated) != 1 || posts.updated[0].Title != "Edited" {
		t.Errorf("Expected the edit to be saved first, got %+v", posts.updated)
	}
	if posts.status["p1"] != model.StatusPublished {
		t.Errorf("Expected p1 to be published, got %v", posts.status)
	}
	if !strings.Contains(out.String(), "published") {
		t.Errorf("Unexpected output %q", out.String())
	}
}

func TestEditSessionInvalidSave(t *testing.T) {
	posts := &fakePosts{}
	s, out := newTestSession(posts, "")
	defer s.guard.Release()

	s.coord.MarkAsChanged(model.PostPayload{Title: "", Content: "body"})
	s.handle(context.Background(), "save")

	if len(posts.created) != 0 {
		t.Error("Expected the invalid post not to be created")
	}
	if !strings.Contains(out.String(), "title cannot be empty") {
		t.Errorf("Expected the title error, got %q", out.String())
	}
	if !s.coord.Dirty() {
		t.Error("Expected the draft to stay dirty")
	}
}

func TestRestoreBackup(t *testing.T) {
	backups := repository.NewMemoryRepository()
	payload := model.PostPayload{Title: "Lost", Slug: "lost", Content: "Recovered text"}
	if err := backups.Put("p9", payload); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "lost.md")
	if _, err := restoreBackup(backups, "p9", path, false); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got, _, err := repository.NewFileSource(path).Payload()
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Lost" || got.Slug != "lost" || got.Content != "Recovered text" {
		t.Errorf("Unexpected restored payload %+v", got)
	}

	if _, err := restoreBackup(backups, "p9", path, false); err == nil {
		t.Error("Expected restore to refuse overwriting without -f")
	}
	if _, err := restoreBackup(backups, "p9", path, true); err != nil {
		t.Errorf("Expected forced restore to succeed, got %v", err)
	}
	if _, err := restoreBackup(backups, "missing", path, true); err == nil {
		t.Error("Expected an error for a missing backup")
	}
}

func TestTokenCredentialsResumeRotatedPair(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Auth.Token = "configured-access"
	cfg.Auth.RefreshToken = "configured-refresh"

	prefs := repository.NewMemoryRepository()

	creds := tokenCredentials(cfg, prefs, nil, zerolog.Nop())
	if got := creds.AccessToken(); got != "configured-access" {
		t.Fatalf("Expected the configured token without a stored pair, got %q", got)
	}

	creds.OnRotate("rotated-access", "rotated-refresh")
	stored, err := prefs.Tokens()
	if err != nil {
		t.Fatalf("Expected the rotated pair to be stored: %v", err)
	}
	if stored.Seed != "configured-refresh" || stored.Refresh != "rotated-refresh" {
		t.Errorf("Unexpected stored pair %+v", stored)
	}

	if got := tokenCredentials(cfg, prefs, nil, zerolog.Nop()).AccessToken(); got != "rotated-access" {
		t.Errorf("Expected the next run to resume the rotated pair, got %q", got)
	}

	cfg.Auth.RefreshToken = "new-configured-refresh"
	cfg.Auth.Token = "new-configured-access"
	if got := tokenCredentials(cfg, prefs, nil, zerolog.Nop()).AccessToken(); got != "new-configured-access" {
		t.Errorf("Expected a new configured token to win over a stale pair, got %q", got)
	}
}

type gatedStore struct {
	draft.Store
	entered chan struct{}
	gate    chan struct{}
}

func (s gatedStore) Create(ctx context.Context, p model.PostPayload) (model.PostID, error) {
	s.entered <- struct{}{}
	<-s.gate
	return s.Store.Create(ctx, p)
}

func TestEditSessionPublishWhileCreating(t *testing.T) {
	posts := &fakePosts{}
	store := gatedStore{
		Store:   draft.SiteStore{Client: posts, Site: "s1"},
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
	var out bytes.Buffer
	s := newEditSession("s1", posts, store, draft.Options{}, "studio://edit/post.md", &out)
	defer s.guard.Release()
	ctx := context.Background()

	s.coord.MarkAsChanged(model.PostPayload{Title: "Hello", Slug: "hello", Content: "body"})

	done := make(chan struct{})
	go func() {
		s.coord.Create(ctx)
		close(done)
	}()
	<-store.entered

	s.handle(ctx, "publish")
	if strings.Contains(out.String(), "Nothing to publish") {
		t.Errorf("Expected the running creation to be reported, got %q", out.String())
	}
	if !strings.Contains(out.String(), "already running") {
		t.Errorf("Expected a save in flight notice, got %q", out.String())
	}
	if len(posts.status) != 0 {
		t.Errorf("Expected no status change, got %v", posts.status)
	}

	close(store.gate)
	<-done
	if s.coord.PostID() != "post-hello" {
		t.Errorf("Expected the post to be created, got %q", s.coord.PostID())
	}
}

type fakeUploadBackend struct {
	uploadURL string
}

func (b fakeUploadBackend) Presign(_ context.Context, in upload.PresignInput) (*upload.Target, error) {
	return &upload.Target{UploadURL: b.uploadURL, Key: "uploads/" + in.Filename}, nil
}

func (b fakeUploadBackend) Complete(_ context.Context, in upload.CompleteInput) (string, error) {
	return "https://cdn.example.com/" + in.Key, nil
}

func (fakeUploadBackend) Abort(context.Context, string) error { return nil }

func TestUploadFileThroughSlot(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer storage.Close()

	slot := upload.NewSlot(upload.NewUploader(fakeUploadBackend{uploadURL: storage.URL + "/put"}))
	var progress bytes.Buffer
	f := upload.FromBytes("notes.txt", "text/plain", []byte("hello"))

	snap, err := uploadFile(context.Background(), slot, f, upload.Options{AllowedTypes: []string{"text/*"}}, &progress)
	if err != nil {
		t.Fatalf("uploadFile: %v", err)
	}
	if snap.PublicURL != "https://cdn.example.com/uploads/notes.txt" {
		t.Errorf("PublicURL = %q", snap.PublicURL)
	}
	if cur := slot.Current(); cur == nil || cur.Status() != upload.StatusCompleted {
		t.Errorf("slot does not hold the completed session")
	}
	if !strings.Contains(progress.String(), "100%") {
		t.Errorf("progress output %q lacks the final bar", progress.String())
	}
}
