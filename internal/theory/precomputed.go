package theory

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Harshitk-cp/prest/internal/codec"
)

var (
	ErrTooManyAlternatives = errors.New("too many alternatives")
	ErrNotPrecomputed      = errors.New("preorders not precomputed")
)

// Precomputed caches every preorder on n alternatives, for every n up to the
// largest size ever ensured. It never discards a level. Ensure takes the write
// lock; readers share the read lock.
type Precomputed struct {
	mu     sync.RWMutex
	levels [][]Preorder
}

func NewPrecomputed() *Precomputed {
	return &Precomputed{levels: [][]Preorder{{Preorder{}}}}
}

// Size is the largest number of alternatives currently held.
func (p *Precomputed) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.levels) - 1
}

// Ensure makes preorders on up to n alternatives available. It is idempotent.
func (p *Precomputed) Ensure(n int) error {
	if n > MaxPrecomputed {
		return fmt.Errorf("%w: %d exceeds the precomputation limit of %d", ErrTooManyAlternatives, n, MaxPrecomputed)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.levels) <= n {
		prev := p.levels[len(p.levels)-1]
		next := make([]Preorder, 0, len(prev)*4)
		for _, po := range prev {
			po.extend(func(q Preorder) {
				next = append(next, q)
			})
		}
		p.levels = append(p.levels, next)
	}
	return nil
}

// Preorders returns every preorder on n alternatives. The slice is shared and must not be modified.
func (p *Precomputed) Preorders(n int) ([]Preorder, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if n < 0 || n >= len(p.levels) {
		return nil, fmt.Errorf("%w: %d alternatives (held: %d)", ErrNotPrecomputed, n, len(p.levels)-1)
	}
	return p.levels[n], nil
}

// Save writes every level above zero.
func (p *Precomputed) Save(w io.Writer) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	enc := codec.NewEncoder(w)
	enc.Len(len(p.levels) - 1)
	for n := 1; n < len(p.levels); n++ {
		enc.Len(len(p.levels[n]))
		for _, po := range p.levels[n] {
			for i := 0; i < n; i++ {
				enc.Uint8(po.up[i])
			}
		}
	}
	return enc.Err()
}

// Load adopts levels written by Save when they cover more alternatives than
// the cache already holds.
func (p *Precomputed) Load(r io.Reader) error {
	dec := codec.NewDecoder(r)
	size := dec.Len()
	if dec.Err() == nil && size > MaxPrecomputed {
		return fmt.Errorf("%w: file holds %d", ErrTooManyAlternatives, size)
	}

	levels := [][]Preorder{{Preorder{}}}
	for n := 1; n <= size && dec.Err() == nil; n++ {
		count := dec.Len()
		level := make([]Preorder, 0, codec.Prealloc(count))
		for k := 0; k < count && dec.Err() == nil; k++ {
			po := Preorder{n: uint8(n)}
			for i := 0; i < n; i++ {
				po.up[i] = dec.Uint8()
			}
			level = append(level, po)
		}
		levels = append(levels, level)
	}
	if err := dec.Err(); err != nil {
		return fmt.Errorf("load precomputed preorders: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(levels) > len(p.levels) {
		p.levels = levels
	}
	return nil
}
