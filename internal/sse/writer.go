// Package sse implements the canonical Server-Sent Events framing the
// gateway uses to stream agentic-loop progress to clients.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const keepAliveInterval = 15 * time.Second

// Writer streams SSE events to a single client connection. It is
// single-producer: one request's orchestrator task owns it and calls
// WriteEvent from that task alone. A background goroutine emits keep-alive
// comments when the stream has been otherwise idle.
type Writer struct {
	mu       sync.Mutex
	w        http.ResponseWriter
	flusher  http.Flusher
	lastSent time.Time
	closed   bool
	done     chan struct{}
	cancel   context.CancelFunc
}

// New wraps w as an SSE stream. The caller's request context should be
// derived from the returned cancel-aware context so that a write failure
// (client disconnect) propagates as cancellation to in-flight work.
func New(w http.ResponseWriter, ctx context.Context) (*Writer, context.Context) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, _ := w.(http.Flusher)

	streamCtx, cancel := context.WithCancel(ctx)
	writer := &Writer{
		w:        w,
		flusher:  flusher,
		lastSent: time.Now(),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	go writer.keepAliveLoop(streamCtx)
	return writer, streamCtx
}

// WriteEvent frames and writes one SSE event. JSON encoding of data must not
// produce embedded newlines; json.Marshal already guarantees this. A write
// error (client disconnect) cancels the writer's context and is returned so
// the caller can stop producing further events.
func (s *Writer) WriteEvent(name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("sse: writer closed")
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		s.cancel()
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	s.lastSent = time.Now()
	return nil
}

func (s *Writer) keepAliveLoop(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.maybePing()
		}
	}
}

func (s *Writer) maybePing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || time.Since(s.lastSent) < keepAliveInterval {
		return
	}
	if _, err := fmt.Fprint(s.w, ": ping\n\n"); err != nil {
		s.cancel()
		return
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	s.lastSent = time.Now()
}

// Close stops the keep-alive goroutine. It does not close the underlying
// HTTP connection; the handler returning does that.
func (s *Writer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	s.cancel()
}
