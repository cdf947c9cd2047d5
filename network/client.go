package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"

	"github.com/apathy-ca/yori/cache"
)

// ErrNotConnected is returned by Do before Connect succeeds.
var ErrNotConnected = errors.New("client is not connected")

// Client is a REQ-socket client for CacheService. A REQ socket enforces
// strict send/receive alternation, so Do serializes callers with a mutex;
// use one Client per goroutine for parallel load.
type Client struct {
	ctx    context.Context
	cancel context.CancelFunc
	req    zmq4.Socket

	mu        sync.Mutex
	connected bool
}

// NewClient creates a client. Call Connect before issuing commands.
func NewClient() *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Connect dials the service at addr (for example "tcp://127.0.0.1:5600").
func (c *Client) Connect(addr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return errors.New("client already connected")
	}

	c.req = zmq4.NewReq(c.ctx)
	if err := c.req.Dial(addr); err != nil {
		return fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	c.connected = true
	return nil
}

// Close releases the socket. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return
	}
	c.connected = false

	c.cancel()
	if err := c.req.Close(); err != nil {
		_ = err // best effort during shutdown
	}
}

// Do sends one command and waits for its response.
func (c *Client) Do(cmd Command) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return Response{}, ErrNotConnected
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal command: %w", err)
	}
	if err := c.req.Send(zmq4.NewMsg(data)); err != nil {
		return Response{}, fmt.Errorf("failed to send command: %w", err)
	}

	msg, err := c.req.Recv()
	if err != nil {
		return Response{}, fmt.Errorf("failed to receive response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(msg.Bytes(), &resp); err != nil {
		return Response{}, fmt.Errorf("malformed response: %w", err)
	}
	return resp, nil
}

// Get retrieves a value.
func (c *Client) Get(key string) (string, bool, error) {
	resp, err := c.Do(Command{Op: OpGet, Key: key})
	if err != nil {
		return "", false, err
	}
	if !resp.OK {
		return "", false, errors.New(resp.Error)
	}
	return resp.Value, resp.Found, nil
}

// Set stores a value with the server's default TTL.
func (c *Client) Set(key, value string) error {
	return c.SetWithTTL(key, value, 0)
}

// SetWithTTL stores a value, expiring after ttl. A zero ttl uses the server's
// default.
func (c *Client) SetWithTTL(key, value string, ttl time.Duration) error {
	resp, err := c.Do(Command{Op: OpSet, Key: key, Value: value, TTLMs: ttl.Milliseconds()})
	if err != nil {
		return err
	}
	if !resp.OK {
		return errors.New(resp.Error)
	}
	return nil
}

// Delete removes a key. Reports whether an entry was removed.
func (c *Client) Delete(key string) (bool, error) {
	resp, err := c.Do(Command{Op: OpDelete, Key: key})
	if err != nil {
		return false, err
	}
	if !resp.OK {
		return false, errors.New(resp.Error)
	}
	return resp.Found, nil
}

// Stats fetches the server's cache statistics.
func (c *Client) Stats() (cache.Stats, error) {
	resp, err := c.Do(Command{Op: OpStats})
	if err != nil {
		return cache.Stats{}, err
	}
	if !resp.OK || resp.Stats == nil {
		return cache.Stats{}, errors.New(resp.Error)
	}
	return *resp.Stats, nil
}
