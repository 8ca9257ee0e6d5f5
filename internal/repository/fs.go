package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/debemdeboas/archive-studio/internal/model"
	"github.com/debemdeboas/archive-studio/internal/util"
)

// FileSource is a post kept as a markdown file with front matter.
type FileSource struct {
	path string

	mu   sync.Mutex
	hash string

	// Debounce groups the burst of events an editor save produces.
	Debounce time.Duration
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path, Debounce: 100 * time.Millisecond}
}

func (s *FileSource) Path() string {
	return s.path
}

// Title falls back to the file name without extension.
func (s *FileSource) Title() string {
	return strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
}

func (s *FileSource) Read() ([]byte, error) {
	md, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.hash = util.ContentHash(md)
	s.mu.Unlock()
	return md, nil
}

// Payload reads the file and builds the post fields from it.
func (s *FileSource) Payload() (model.PostPayload, []byte, error) {
	md, err := s.Read()
	if err != nil {
		return model.PostPayload{}, nil, err
	}
	return model.PayloadFromMarkdown(md, s.Title()), md, nil
}

func (s *FileSource) Write(md []byte) error {
	if err := os.WriteFile(s.path, md, 0o644); err != nil {
		return err
	}
	s.mu.Lock()
	s.hash = util.ContentHash(md)
	s.mu.Unlock()
	return nil
}

// Watch calls onChange with the new content every time the file changes,
// until ctx is done. The parent directory is watched so editors that save by
// renaming a temporary file are seen too.
func (s *FileSource) Watch(ctx context.Context, onChange func(md []byte)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return err
	}

	name := filepath.Clean(s.path)
	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(s.Debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			s.reload(onChange)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			repoLogger.Error().Err(err).Str("path", s.path).Msg("Error watching post file")
		}
	}
}

func (s *FileSource) reload(onChange func([]byte)) {
	md, err := os.ReadFile(s.path)
	if err != nil {
		// Mid-rename; the Create that follows reloads it.
		repoLogger.Debug().Err(err).Str("path", s.path).Msg("Post file not readable")
		return
	}

	hash := util.ContentHash(md)
	s.mu.Lock()
	unchanged := hash == s.hash
	s.hash = hash
	s.mu.Unlock()

	if unchanged {
		return
	}
	repoLogger.Info().Str("path", s.path).Msg("Reloading post")
	onChange(md)
}
