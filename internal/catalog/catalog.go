// Package catalog loads the product listing shown to shoppers.
package catalog

import (
	"context"

	"github.com/jorgepalis/pymedesk/internal/api"
	"github.com/jorgepalis/pymedesk/internal/domain"
	"github.com/jorgepalis/pymedesk/internal/loader"
	"github.com/jorgepalis/pymedesk/internal/notify"
	"go.uber.org/zap"
)

const (
	msgLoadFailed   = "could not load products."
	msgDetailFailed = "could not load the product."
	msgAddedToCart  = "product added to cart."
)

type ProductAPI interface {
	List(ctx context.Context) ([]domain.Product, error)
	Detail(ctx context.Context, id int64) (domain.Product, error)
}

type Cart interface {
	AddItem(ctx context.Context, p domain.Product, quantity int) bool
}

type Notifier interface {
	Notify(message string, opts ...notify.Option) string
}

type Catalog struct {
	products ProductAPI
	notifier Notifier
	log      *zap.Logger
	gen      loader.Generation
}

func New(products ProductAPI, notifier Notifier, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{products: products, notifier: notifier, log: log}
}

// Load fetches the product list. current is false when a later Load or
// Leave superseded this one; the caller should drop the result. Failures
// are always notified.
func (c *Catalog) Load(ctx context.Context) (products []domain.Product, current bool, err error) {
	products, current, err = loader.Load(ctx, &c.gen, c.products.List)
	if err != nil {
		c.log.Warn("failed to load products", zap.Error(err), zap.Bool("current", current))
		c.notifier.Notify(api.APIMessage(err, msgLoadFailed), notify.WithTone(notify.ToneError))
		return nil, current, err
	}
	return products, current, nil
}

// Leave discards any load still in flight.
func (c *Catalog) Leave() {
	c.gen.Invalidate()
}

func (c *Catalog) Find(ctx context.Context, id int64) (domain.Product, error) {
	p, err := c.products.Detail(ctx, id)
	if err != nil {
		c.notifier.Notify(api.APIMessage(err, msgDetailFailed), notify.WithTone(notify.ToneError))
		return domain.Product{}, err
	}
	return p, nil
}

// AddToCart adds quantity units of p, bounded by stock, and confirms it
// to the user.
func (c *Catalog) AddToCart(ctx context.Context, cart Cart, p domain.Product, quantity int) bool {
	if !cart.AddItem(ctx, p, quantity) {
		return false
	}
	c.notifier.Notify(msgAddedToCart, notify.WithTone(notify.ToneSuccess))
	return true
}
