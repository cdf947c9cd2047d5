package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"

	"github.com/apathy-ca/yori/api"
	"github.com/apathy-ca/yori/cache"
)

// ServiceConfig defines configuration for the cache service.
type ServiceConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// DefaultServiceConfig returns a configuration with sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Host: "127.0.0.1",
		Port: 5600,
	}
}

// Address returns the zmq endpoint for the configuration.
func (c ServiceConfig) Address() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

// CacheService exposes a Cache over a ZeroMQ REP socket. Requests are
// single-frame JSON Commands; every request gets exactly one Response frame.
//
// The service is an access layer only: all semantics live in the cache, and
// clients in other processes share cached values, not cache internals.
type CacheService struct {
	config  ServiceConfig
	cache   *cache.Cache
	metrics *api.Metrics // optional

	ctx    context.Context
	cancel context.CancelFunc
	rep    zmq4.Socket
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// NewCacheService creates a service for c. metrics may be nil.
func NewCacheService(config ServiceConfig, c *cache.Cache, metrics *api.Metrics) *CacheService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheService{
		config:  config,
		cache:   c,
		metrics: metrics,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start binds the REP socket and begins serving requests.
func (s *CacheService) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("cache service already running")
	}

	s.rep = zmq4.NewRep(s.ctx)
	if err := s.rep.Listen(s.config.Address()); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to bind rep socket: %w", err)
	}

	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.serveLoop()

	log.Printf("CacheService listening at %s", s.config.Address())
	return nil
}

// Stop gracefully shuts down the service.
func (s *CacheService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()

	if s.rep != nil {
		if err := s.rep.Close(); err != nil {
			_ = err // best effort during shutdown
		}
	}

	s.wg.Wait()
}

// IsRunning reports whether the service is serving requests.
func (s *CacheService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *CacheService) serveLoop() {
	defer s.wg.Done()

	for {
		msg, err := s.rep.Recv()
		if err != nil {
			// Stop closed the socket, or the socket died; Recv keeps
			// failing either way.
			return
		}

		resp := s.dispatch(msg.Bytes())
		data, err := json.Marshal(resp)
		if err != nil {
			data, _ = json.Marshal(errorResponse(cache.ErrInternal))
		}
		if err := s.rep.Send(zmq4.NewMsg(data)); err != nil {
			// REP sockets must reply before the next Recv; a failed send
			// leaves the socket out of step, so bail out.
			return
		}
	}
}

func (s *CacheService) dispatch(raw []byte) Response {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return errorResponse(fmt.Errorf("malformed command: %w", err))
	}
	return s.Execute(cmd)
}

// Execute runs one command against the cache. It is exported so in-process
// callers and tests can use the command surface without a socket.
func (s *CacheService) Execute(cmd Command) Response {
	start := time.Now()

	if err := cmd.Validate(); err != nil {
		s.record(cmd.Op, "invalid", start)
		return errorResponse(err)
	}

	var resp Response
	switch cmd.Op {
	case OpGet:
		value, found := s.cache.Get(cmd.Key)
		resp = Response{OK: true, Found: found, Value: value}
		if found {
			s.record(cmd.Op, "hit", start)
		} else {
			s.record(cmd.Op, "miss", start)
		}
		return resp

	case OpSet:
		var err error
		if cmd.TTLMs > 0 {
			err = s.cache.SetWithTTL(cmd.Key, cmd.Value, time.Duration(cmd.TTLMs)*time.Millisecond)
		} else {
			err = s.cache.Set(cmd.Key, cmd.Value)
		}
		if err != nil {
			s.record(cmd.Op, "error", start)
			return errorResponse(err)
		}
		resp = Response{OK: true}

	case OpDelete:
		resp = Response{OK: true, Found: s.cache.Delete(cmd.Key)}

	case OpClear:
		s.cache.Clear()
		resp = Response{OK: true}

	case OpSize:
		resp = Response{OK: true, Count: s.cache.Size()}

	case OpCleanup:
		resp = Response{OK: true, Count: s.cache.CleanupExpired()}

	case OpStats:
		stats := s.cache.Stats()
		resp = Response{OK: true, Stats: &stats}

	case OpContains:
		resp = Response{OK: true, Found: s.cache.Contains(cmd.Key)}

	case OpExpire:
		ttl := time.Duration(cmd.TTLMs) * time.Millisecond
		resp = Response{OK: true, Found: s.cache.SetTTL(cmd.Key, ttl)}
	}

	s.record(cmd.Op, "ok", start)
	return resp
}

func (s *CacheService) record(op, status string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordOperation(op, status, time.Since(start))
}
