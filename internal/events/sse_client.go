package events

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

// SSEClient streams hub payloads as Server-Sent Events, naming each frame
// after the event type it carries.
type SSEClient struct {
	mu      sync.Mutex
	writer  io.Writer
	flusher http.Flusher
	log     *slog.Logger
	closed  bool
}

// NewSSEClient builds an SSE client instance.
func NewSSEClient(writer io.Writer, flusher http.Flusher, logger *slog.Logger) *SSEClient {
	return &SSEClient{writer: writer, flusher: flusher, log: logger}
}

// Send writes one encoded Event. Payloads without a type go out as bare data frames.
func (c *SSEClient) Send(payload []byte) error {
	var head struct {
		Type Type `json:"type"`
	}
	frame := fmt.Sprintf("data: %s\n\n", payload)
	if json.Unmarshal(payload, &head) == nil && head.Type != "" {
		frame = fmt.Sprintf("event: %s\n%s", head.Type, frame)
	}
	return c.write(frame, "sse send failed")
}

// Heartbeat emits a comment frame to keep the connection alive.
func (c *SSEClient) Heartbeat() error {
	return c.write(": ping\n\n", "sse heartbeat failed")
}

func (c *SSEClient) write(frame, failure string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return io.EOF
	}
	if _, err := io.WriteString(c.writer, frame); err != nil {
		c.closed = true
		c.log.Warn(failure, "error", err)
		return err
	}
	c.flusher.Flush()
	return nil
}

// Close marks the stream as closed.
func (c *SSEClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}
