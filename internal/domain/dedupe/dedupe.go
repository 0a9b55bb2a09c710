// Package dedupe tracks commit hashes that were already accepted for
// ingestion so a resubmitted history is applied at most once.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// Deduper records seen commit hashes.
type Deduper interface {
	// SeenAndRecord atomically checks whether hash was seen and records it if
	// not. It returns true when hash was already present.
	SeenAndRecord(ctx context.Context, hash string) bool

	// Unrecord forgets hash so a later submission is accepted again. Used when
	// a commit was recorded but could not be queued.
	Unrecord(ctx context.Context, hash string)

	// Preload records hashes known to be stored already, e.g. on start.
	Preload(ctx context.Context, hashes []string)

	Size() int64
}

// hashSet implements Deduper with a map plus an insertion-ordered list.
// When maxSize > 0 the oldest hash is evicted once the set is full.
type hashSet struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
}

// NewInMemoryDeduper creates an in-memory Deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &hashSet{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *hashSet) SeenAndRecord(_ context.Context, hash string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[hash]; ok {
		return true
	}
	d.record(hash)
	return false
}

func (d *hashSet) Unrecord(_ context.Context, hash string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[hash]; ok {
		d.order.Remove(el)
		delete(d.seen, hash)
	}
}

func (d *hashSet) Preload(_ context.Context, hashes []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, h := range hashes {
		if _, ok := d.seen[h]; !ok {
			d.record(h)
		}
	}
}

// record must be called with d.mu held.
func (d *hashSet) record(hash string) {
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
	}
	d.seen[hash] = d.order.PushBack(hash)
}

func (d *hashSet) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
