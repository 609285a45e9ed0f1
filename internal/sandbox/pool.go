package sandbox

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrPoolClosed     = errors.New("sandbox pool is closed")
	ErrAcquireTimeout = errors.New("sandbox acquisition timeout")
)

// Pool manages reusable runtimes. Runtimes are reset to a fresh global
// scope on release, so no state leaks between invocations.
type Pool struct {
	config   Config
	runtimes chan *Runtime
	size     int
	mu       sync.RWMutex
	closed   bool
}

// NewPool creates a pool of size Config.PoolSize (minimum 1).
func NewPool(config Config) (*Pool, error) {
	size := config.PoolSize
	if size <= 0 {
		size = 1
	}

	pool := &Pool{
		config:   config,
		runtimes: make(chan *Runtime, size),
		size:     size,
	}

	for i := 0; i < size; i++ {
		rt, err := New(config)
		if err != nil {
			pool.Close()
			return nil, err
		}
		pool.runtimes <- rt
	}

	return pool, nil
}

// Execute runs code against a pooled runtime.
func (p *Pool) Execute(ctx context.Context, code string, inv *Invocation) (*Result, error) {
	rt, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.release(rt)

	return rt.Execute(ctx, code, inv)
}

func (p *Pool) acquire(ctx context.Context) (*Runtime, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	select {
	case rt := <-p.runtimes:
		return rt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
		return nil, ErrAcquireTimeout
	}
}

func (p *Pool) release(rt *Runtime) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		rt.Close()
		return
	}

	if err := rt.Reset(); err != nil {
		rt.Close()
		if fresh, err := New(p.config); err == nil {
			p.runtimes <- fresh
		}
		return
	}

	select {
	case p.runtimes <- rt:
	default:
		rt.Close()
	}
}

// Close shuts down the pool and all runtimes.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.runtimes)

	for rt := range p.runtimes {
		rt.Close()
	}
	return nil
}
