package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postSource = `%%%
title = "Watching files"
slug = "watching-files"
tags = ["go"]
%%%

Body text.
`

func TestFileSourcePayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "my-post.md")
	require.NoError(t, os.WriteFile(path, []byte(postSource), 0o644))

	src := NewFileSource(path)
	assert.Equal(t, "my-post", src.Title())

	payload, md, err := src.Payload()
	require.NoError(t, err)
	assert.Equal(t, postSource, string(md))
	assert.Equal(t, "Watching files", payload.Title)
	assert.Equal(t, "watching-files", payload.Slug)
	assert.Equal(t, []string{"go"}, payload.Tags)
	assert.Contains(t, payload.Content, "Body text.")
}

func TestFileSourceWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post.md")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))

	src := NewFileSource(path)
	src.Debounce = 10 * time.Millisecond
	_, err := src.Read()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan string, 10)
	done := make(chan error, 1)
	go func() {
		done <- src.Watch(ctx, func(md []byte) { changes <- string(md) })
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	// Writing our own content does not count as a change.
	require.NoError(t, src.Write([]byte("one")))
	require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))

	select {
	case got := <-changes:
		assert.Equal(t, "two", got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	require.NoError(t, <-done)
}
