package session

import (
	"context"
	"net/url"
	"sync"
)

// Client starts sessions against one backend and keeps at most one of them
// in flight. Starting a new session cancels the previous one with
// ErrSuperseded, so its late frames can never touch the new session's state.
type Client struct {
	cfg Config

	mu      sync.Mutex
	current *Session
}

// NewClient returns a Client whose sessions share cfg.
func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg}
}

// JoinURL joins a backend base URL and an endpoint path.
func JoinURL(target, path string) (string, error) {
	return url.JoinPath(target, path)
}

// Start supersedes the current session (if any) and runs a new one for
// prompt on its own goroutine. The returned session is already registered as
// current; wait on Done for the outcome.
func (c *Client) Start(ctx context.Context, prompt string) *Session {
	next := New(c.cfg)

	c.mu.Lock()
	prev := c.current
	c.current = next
	c.mu.Unlock()

	if prev != nil {
		prev.Cancel(ErrSuperseded)
	}

	go func() {
		_ = next.Run(ctx, prompt)
	}()

	return next
}

// Current returns the most recently started session, or nil.
func (c *Client) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Close cancels the current session.
func (c *Client) Close() {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()

	if cur != nil {
		cur.Cancel(context.Canceled)
	}
}
