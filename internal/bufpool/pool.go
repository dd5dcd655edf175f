// Package bufpool provides a bounded pool of fixed-size byte buffers.
//
// All buffers are allocated up front. Checkout hands out exclusive ownership
// of one buffer until it is returned; the free slots are tracked as a stack
// of indices so neither Checkout nor Return allocates.
package bufpool

import (
	"errors"
	"sync"
)

// ErrExhausted is returned by Checkout when every buffer is checked out.
var ErrExhausted = errors.New("buffer pool exhausted")

// Buffer is a pooled byte region. B always has the pool's buffer size.
type Buffer struct {
	B []byte

	idx  int
	out  bool
	pool *Pool
}

// Pool is safe for concurrent use.
type Pool struct {
	mu    sync.Mutex
	slots []Buffer
	free  []int
	size  int
}

// New allocates a pool of n buffers of size bytes each.
func New(n, size int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{
		slots: make([]Buffer, n),
		free:  make([]int, n),
		size:  size,
	}
	backing := make([]byte, n*size)
	for i := range p.slots {
		p.slots[i] = Buffer{
			B:    backing[i*size : (i+1)*size : (i+1)*size],
			idx:  i,
			pool: p,
		}
		p.free[i] = n - 1 - i
	}
	return p
}

// Checkout takes a buffer out of the pool. It does not block.
func (p *Pool) Checkout() (*Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) == 0 {
		return nil, ErrExhausted
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]

	b := &p.slots[idx]
	b.out = true
	return b, nil
}

// Return gives b back to its pool. Returning a nil buffer, a buffer that is
// already returned, or a buffer from another pool is a no-op.
func (p *Pool) Return(b *Buffer) {
	if b == nil || b.pool != p {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !b.out {
		return
	}
	b.out = false
	p.free = append(p.free, b.idx)
}

// InUse reports how many buffers are currently checked out.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots) - len(p.free)
}

// Cap reports the number of buffers owned by the pool.
func (p *Pool) Cap() int {
	return len(p.slots)
}

// BufferSize reports the size in bytes of every buffer.
func (p *Pool) BufferSize() int {
	return p.size
}
