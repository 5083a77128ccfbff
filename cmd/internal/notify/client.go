package notify

import "sync"

// Client represents one connected subscriber.
//
// Send is never closed by the hub: broadcasters write to it concurrently and
// closing under them would panic. Shutdown is signaled via done instead.
type Client struct {
	ID       string
	Username string
	Send     chan Event

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a client with a bounded send queue.
func NewClient(id, username string, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 64
	}
	return &Client{
		ID:       id,
		Username: username,
		Send:     make(chan Event, sendQueueSize),
		done:     make(chan struct{}),
	}
}

// Done returns a channel closed when the client is shutting down.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close signals the client goroutines to stop. Idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
