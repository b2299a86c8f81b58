package nats

import (
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

// Client wraps the NATS connection used for store change notifications.
// Subscriptions are tracked per subKey so the same logical stream is never
// registered twice.
type Client struct {
	Conn       *nats.Conn
	SubMapping map[string]*nats.Subscription
	mu         sync.Mutex
}

func NewClient(url string) (*Client, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Client{
		Conn:       nc,
		SubMapping: make(map[string]*nats.Subscription),
	}, nil
}

func (c *Client) Publish(subject string, data []byte) error {
	return c.Conn.Publish(subject, data)
}

// Subscribe registers handle for subject under subKey. A second call with the
// same subKey is a no-op; callers unsubscribe before re-subscribing when they
// need a fresh handler.
func (c *Client) Subscribe(subject, subKey string, handle func(data []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.SubMapping[subKey]; exists {
		return nil
	}

	sub, err := c.Conn.Subscribe(subject, func(msg *nats.Msg) {
		handle(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	c.SubMapping[subKey] = sub
	return nil
}

// Unsubscribe removes the subscription tracked under subKey. Unknown keys
// return nil.
func (c *Client) Unsubscribe(subKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sub, exists := c.SubMapping[subKey]; exists {
		if err := sub.Unsubscribe(); err != nil {
			return fmt.Errorf("failed to unsubscribe: %w", err)
		}
		delete(c.SubMapping, subKey)
	}
	return nil
}

// CleanupSubscriptions removes all active subscriptions for this client.
// Ignores unsubscribe errors to ensure complete cleanup.
func (c *Client) CleanupSubscriptions() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, sub := range c.SubMapping {
		_ = sub.Unsubscribe()
		delete(c.SubMapping, key)
	}
}

func (c *Client) Close() {
	c.CleanupSubscriptions()
	c.Conn.Close()
}
