// Package sse pushes reload events to preview pages over Server-Sent Events.
package sse

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-studio/internal/config"
)

var sseLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	sseLogger = l
}

// Client is one open event stream. Topic is the draft it follows.
type Client struct {
	Msg   chan string
	Topic string
}

type Hub struct {
	clients map[*Client]struct{}
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
	}
}

func (h *Hub) Subscribe(topic string) *Client {
	c := &Client{Msg: make(chan string, 1), Topic: topic}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	return c
}

func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Msg)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every client of topic. A client that still has an
// unread message skips this one.
func (h *Hub) Broadcast(topic, msg string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.Topic != topic {
			continue
		}
		select {
		case c.Msg <- msg:
		default:
		}
	}
}

// Handler streams the events of the topic named by the "topic" query
// parameter until the request ends.
func (h *Hub) Handler(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		http.Error(w, "topic parameter required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, config.CTypeEventStream)
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := h.Subscribe(topic)
	defer h.Unsubscribe(client)

	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", topic)
	flusher.Flush()
	sseLogger.Debug().Str("topic", topic).Msg("Preview client connected")

	for {
		select {
		case msg, ok := <-client.Msg:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-r.Context().Done():
			sseLogger.Debug().Str("topic", topic).Msg("Preview client disconnected")
			return
		}
	}
}
