// Package cart is the shopping cart: product snapshots with quantities
// bounded by stock, mirrored to device storage after every change.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/jorgepalis/pymedesk/internal/domain"
	"github.com/jorgepalis/pymedesk/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

type Line struct {
	Product  domain.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.Product.UnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Store holds the cart lines in insertion order, at most one per product.
// The in-memory lines are authoritative; storage is only read once, in New.
type Store struct {
	mu    sync.Mutex
	lines []Line
	open  bool

	store storage.Storage
	log   *zap.Logger
}

// New hydrates the cart from storage. A snapshot that is not a JSON array
// yields an empty cart; entries without a product object or a numeric
// quantity are dropped, quantities are floored to at least 1 and later
// duplicates of a product are ignored. Stock is not checked.
func New(ctx context.Context, s storage.Storage, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Store{store: s, log: log}

	raw, ok, err := storage.Lookup(ctx, s, storage.KeyCart)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if ok {
		c.lines = decodeSnapshot(raw, log)
	}
	return c, nil
}

func decodeSnapshot(raw string, log *zap.Logger) []Line {
	if !gjson.Valid(raw) {
		log.Warn("discarding cart snapshot that is not JSON")
		return nil
	}
	root := gjson.Parse(raw)
	if !root.IsArray() {
		log.Warn("discarding cart snapshot that is not a list")
		return nil
	}

	var lines []Line
	seen := make(map[int64]bool)
	dropped := 0
	root.ForEach(func(_, entry gjson.Result) bool {
		product := entry.Get("product")
		quantity := entry.Get("quantity")
		if !product.IsObject() || quantity.Type != gjson.Number {
			dropped++
			return true
		}

		var p domain.Product
		if err := json.Unmarshal([]byte(product.Raw), &p); err != nil {
			dropped++
			return true
		}
		q := math.Floor(quantity.Num)
		if q > math.MaxInt32 {
			dropped++
			return true
		}
		if seen[p.ID] {
			dropped++
			return true
		}
		seen[p.ID] = true
		line := Line{Product: p, Quantity: 1}
		if q > 1 {
			line.Quantity = int(q)
		}
		lines = append(lines, line)
		return true
	})

	if dropped > 0 {
		log.Warn("dropped malformed cart entries", zap.Int("count", dropped))
	}
	return lines
}

// AddItem puts quantity units of p in the cart, never beyond p's stock. A
// quantity below 1 counts as 1. It fails only when nothing can be added:
// p is out of stock. Adding to a line already at stock succeeds without
// changing it. Success opens the cart.
func (c *Store) AddItem(ctx context.Context, p domain.Product, quantity int) bool {
	if p.Stock <= 0 {
		return false
	}
	quantity = max(1, quantity)
	limit := p.MaxQuantity()

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.index(p.ID); i >= 0 {
		current := c.lines[i].Quantity
		desired := limit
		if current < limit {
			desired = current + min(quantity, limit-current)
		}
		if desired != current {
			c.lines[i] = Line{Product: p, Quantity: desired}
			c.persist(ctx)
		}
		c.open = true
		return true
	}

	initial := min(quantity, limit)
	if initial <= 0 {
		return false
	}
	c.lines = append(c.lines, Line{Product: p, Quantity: initial})
	c.persist(ctx)
	c.open = true
	return true
}

// Increment adds one unit unless the line is at its product's stock.
func (c *Store) Increment(ctx context.Context, productID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(productID)
	if i < 0 || c.lines[i].Quantity >= c.lines[i].Product.MaxQuantity() {
		return false
	}
	c.lines[i].Quantity++
	c.persist(ctx)
	return true
}

// Decrement removes one unit; the last unit removes the line.
func (c *Store) Decrement(ctx context.Context, productID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(productID)
	if i < 0 {
		return false
	}
	if c.lines[i].Quantity <= 1 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	} else {
		c.lines[i].Quantity--
	}
	c.persist(ctx)
	return true
}

func (c *Store) RemoveItem(ctx context.Context, productID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.index(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
		c.persist(ctx)
	}
}

// Clear empties the cart and closes it.
func (c *Store) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = nil
	c.open = false
	c.persist(ctx)
}

func (c *Store) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Store) TotalPrice() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c *Store) Open() {
	c.mu.Lock()
	c.open = true
	c.mu.Unlock()
}

func (c *Store) Close() {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
}

func (c *Store) Toggle() {
	c.mu.Lock()
	c.open = !c.open
	c.mu.Unlock()
}

func (c *Store) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Store) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Store) Line(productID int64) (Line, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.index(productID); i >= 0 {
		return c.lines[i], true
	}
	return Line{}, false
}

func (c *Store) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// OrderPayload lists the cart as an order creation request.
func (c *Store) OrderPayload() domain.CreateOrderPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]domain.CreateOrderItem, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, domain.CreateOrderItem{ProductID: l.Product.ID, Quantity: l.Quantity})
	}
	return domain.CreateOrderPayload{Items: items}
}

func (c *Store) index(productID int64) int {
	for i, l := range c.lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}

// persist writes the full snapshot. Callers hold c.mu. A failed write is
// logged; memory stays authoritative.
func (c *Store) persist(ctx context.Context) {
	lines := c.lines
	if lines == nil {
		lines = []Line{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		c.log.Error("failed to encode cart", zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, storage.KeyCart, string(raw)); err != nil {
		c.log.Error("failed to persist cart", zap.Error(err))
	}
}
