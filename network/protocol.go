package network

import (
	"errors"

	"github.com/apathy-ca/yori/cache"
)

// Operation names accepted by the cache service.
const (
	OpGet      = "get"
	OpSet      = "set"
	OpDelete   = "delete"
	OpClear    = "clear"
	OpSize     = "size"
	OpCleanup  = "cleanup"
	OpStats    = "stats"
	OpContains = "contains"
	OpExpire   = "expire" // re-arm the TTL of a live key
)

// Common errors for command validation
var (
	ErrEmptyKey  = errors.New("key must not be empty")
	ErrUnknownOp = errors.New("unknown operation")
)

// Command is a single cache request on the wire, JSON-encoded in one message
// frame.
type Command struct {
	Op    string `json:"op"`
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
	// TTLMs overrides the cache's default TTL for set, and carries the new
	// TTL for expire. Zero means "use the default" for set.
	TTLMs int64 `json:"ttl_ms,omitempty"`
}

// Validate checks the command before it touches the cache. This is the
// caller-facing validation layer: the cache core accepts any TTL, so negative
// TTLs are rejected here with cache.ErrInvalidTTL.
func (c *Command) Validate() error {
	switch c.Op {
	case OpGet, OpDelete, OpContains:
		if c.Key == "" {
			return ErrEmptyKey
		}
	case OpSet, OpExpire:
		if c.Key == "" {
			return ErrEmptyKey
		}
		if c.TTLMs < 0 {
			return cache.ErrInvalidTTL
		}
	case OpClear, OpSize, OpCleanup, OpStats:
	default:
		return ErrUnknownOp
	}
	return nil
}

// Response is the reply for a Command.
type Response struct {
	OK    bool         `json:"ok"`
	Found bool         `json:"found,omitempty"`
	Value string       `json:"value,omitempty"`
	Count int          `json:"count,omitempty"`
	Stats *cache.Stats `json:"stats,omitempty"`
	Error string       `json:"error,omitempty"`
}

func errorResponse(err error) Response {
	return Response{OK: false, Error: err.Error()}
}
