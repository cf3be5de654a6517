// Package loader discards fetch results that were superseded by a newer
// fetch of the same view.
package loader

import (
	"context"
	"sync/atomic"
)

// Ticket identifies one fetch.
type Ticket uint64

// Generation counts fetches. Only the result of the latest ticket is current.
type Generation struct {
	n atomic.Uint64
}

func (g *Generation) Next() Ticket {
	return Ticket(g.n.Add(1))
}

func (g *Generation) Current(t Ticket) bool {
	return g.n.Load() == uint64(t)
}

// Invalidate marks every outstanding ticket stale, e.g. when the view is left.
func (g *Generation) Invalidate() {
	g.n.Add(1)
}

// Load runs fn under a new ticket. current is false when another Load or an
// Invalidate happened while fn ran; callers should then drop the result.
func Load[T any](ctx context.Context, g *Generation, fn func(context.Context) (T, error)) (result T, current bool, err error) {
	t := g.Next()
	result, err = fn(ctx)
	return result, g.Current(t), err
}
