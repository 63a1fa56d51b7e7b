package pool

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	//Returned by Checkout when no connection frees up within the wait timeout
	ErrPoolExhausted = errors.New("Failed to checkout a connection: pool is exhausted")
	//Returned by Checkout after the pool was closed
	ErrPoolClosed = errors.New("Failed to checkout a connection: pool is closed")
)

/*
Connection managed by the pool. Anything closable qualifies.
*/
type Conn interface {
	Close()
}

/*
Function the pool calls to establish a new connection when none is idle.
*/
type Connector func(ctx context.Context) (Conn, error)

type PoolOptions struct {
	//Maximum number of live connections the pool will hold
	Capacity    int
	//How long Checkout waits for a free slot before failing with ErrPoolExhausted. 0 waits indefinitely.
	WaitTimeout time.Duration
	//Idle connections older than this are closed and redialed on checkout. 0 disables eviction.
	IdleTimeout time.Duration
}

type idleConn struct {
	conn  Conn
	since time.Time
}

/*
Bounded pool of connections handed out for the duration of a single operation.
*/
type Pool struct {
	connector Connector
	opts      PoolOptions
	slots     chan struct{}
	mu        sync.Mutex
	idle      []idleConn
	closed    bool
}

func NewPool(opts PoolOptions, connector Connector) *Pool {
	if opts.Capacity <= 0 {
		opts.Capacity = 1
	}

	return &Pool{
		connector: connector,
		opts:      opts,
		slots:     make(chan struct{}, opts.Capacity),
		idle:      []idleConn{},
	}
}

func (pool *Pool) popIdle() Conn {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	for len(pool.idle) > 0 {
		last := pool.idle[len(pool.idle)-1]
		pool.idle = pool.idle[:len(pool.idle)-1]

		if pool.opts.IdleTimeout > 0 && time.Since(last.since) > pool.opts.IdleTimeout {
			last.conn.Close()
			continue
		}

		return last.conn
	}

	return nil
}

/*
Checkout a connection from the pool, establishing one if none is idle.
The second return value releases the connection back to the pool and should be deferred by the caller.
*/
func (pool *Pool) Checkout(ctx context.Context) (Conn, func(), error) {
	pool.mu.Lock()
	if pool.closed {
		pool.mu.Unlock()
		return nil, nil, ErrPoolClosed
	}
	pool.mu.Unlock()

	if pool.opts.WaitTimeout > 0 {
		select {
		case pool.slots <- struct{}{}:
		case <-time.After(pool.opts.WaitTimeout):
			return nil, nil, ErrPoolExhausted
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	} else {
		select {
		case pool.slots <- struct{}{}:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}

	conn := pool.popIdle()
	if conn == nil {
		newConn, err := pool.connector(ctx)
		if err != nil {
			<-pool.slots
			return nil, nil, err
		}
		conn = newConn
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			pool.mu.Lock()
			if pool.closed {
				pool.mu.Unlock()
				conn.Close()
			} else {
				pool.idle = append(pool.idle, idleConn{conn: conn, since: time.Now()})
				pool.mu.Unlock()
			}
			<-pool.slots
		})
	}

	return conn, release, nil
}

/*
Close the pool, closing all idle connections.
Checked out connections are closed as they get released. Idempotent.
*/
func (pool *Pool) Close() error {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	if pool.closed {
		return nil
	}
	pool.closed = true

	for _, entry := range pool.idle {
		entry.conn.Close()
	}
	pool.idle = nil

	return nil
}
