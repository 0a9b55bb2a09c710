// Package ranking keeps contributors ordered by how many features they
// authored.
package ranking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/connecthub/internal/domain/types"
	"github.com/okian/connecthub/pkg/metrics"
)

// Sentinel kinds for leaderboard errors.
var (
	ErrNotFound     = errors.New("contributor not ranked")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
)

// Board is a treap-backed leaderboard. Contributors with equal counts share
// a rank; the next rank skips the tied positions (1, 1, 3).
type Board struct {
	mu   sync.RWMutex
	root *node
	byID map[string]int
}

// NewBoard creates an empty Board.
func NewBoard() *Board {
	return &Board{byID: make(map[string]int)}
}

// Increment adds delta to a contributor's count, inserting it when absent,
// and returns the new count.
func (b *Board) Increment(ctx context.Context, id string, delta int) int {
	b.mu.Lock()
	old, ok := b.byID[id]
	if ok {
		b.root = remove(b.root, id, old)
	}
	next := old + delta
	b.byID[id] = next
	b.root = insert(b.root, id, next)
	n := len(b.byID)
	b.mu.Unlock()

	if !ok {
		metrics.UpdateContributorCount(n)
	}
	return next
}

// Set replaces a contributor's count.
func (b *Board) Set(ctx context.Context, id string, count int) {
	b.mu.Lock()
	if old, ok := b.byID[id]; ok {
		b.root = remove(b.root, id, old)
	}
	b.byID[id] = count
	b.root = insert(b.root, id, count)
	n := len(b.byID)
	b.mu.Unlock()

	metrics.UpdateContributorCount(n)
}

// Reset replaces the whole board with counts.
func (b *Board) Reset(ctx context.Context, counts map[string]int) {
	start := time.Now()
	b.mu.Lock()
	b.root = nil
	b.byID = make(map[string]int, len(counts))
	for id, c := range counts {
		b.byID[id] = c
		b.root = insert(b.root, id, c)
	}
	n := len(b.byID)
	b.mu.Unlock()

	metrics.UpdateContributorCount(n)
	metrics.RecordStoreLatency("ranking", "reset", float64(time.Since(start).Microseconds())/1000)
}

// Rank returns a contributor's entry in O(log n).
func (b *Board) Rank(ctx context.Context, id string) (types.Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count, ok := b.byID[id]
	if !ok {
		return types.Entry{}, ErrNotFound
	}
	return types.Entry{
		Rank:          countAbove(b.root, count) + 1,
		ContributorID: id,
		FeatureCount:  count,
	}, nil
}

// TopN returns the n best contributors.
func (b *Board) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	nodes := make([]*node, 0, min(n, len(b.byID)))
	collect(b.root, n, &nodes)

	out := make([]types.Entry, len(nodes))
	for i, nd := range nodes {
		rank := i + 1
		if i > 0 && nd.count == nodes[i-1].count {
			rank = out[i-1].Rank
		}
		out[i] = types.Entry{Rank: rank, ContributorID: nd.id, FeatureCount: nd.count}
	}
	return out, nil
}

// Count returns the number of ranked contributors.
func (b *Board) Count(ctx context.Context) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byID)
}
