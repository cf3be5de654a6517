// Package admin is the back office: product maintenance and oversight of
// every order, restricted to admin accounts.
package admin

import (
	"context"
	"errors"

	"github.com/jorgepalis/pymedesk/internal/api"
	"github.com/jorgepalis/pymedesk/internal/domain"
	"github.com/jorgepalis/pymedesk/internal/loader"
	"github.com/jorgepalis/pymedesk/internal/notify"
	"github.com/jorgepalis/pymedesk/internal/session"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrLoginRequired  = session.ErrLoginRequired
	ErrSessionInvalid = session.ErrSessionInvalid
	ErrForbidden      = errors.New("admin: account is not an admin")
)

const (
	msgLoginRequired  = "sign in to access the admin console."
	msgForbidden      = "you do not have permission to access the admin console."
	msgSessionInvalid = "could not validate your session. sign in again."

	msgProductsFailed = "could not load products."
	msgOrdersFailed   = "could not load orders."
	msgDetailFailed   = "could not load the product detail."
	msgCreateFailed   = "could not create the product."
	msgUpdateFailed   = "could not update the product."
	msgCreated        = "product created."
	msgUpdated        = "product updated."
)

type Session interface {
	Ensure(ctx context.Context) (domain.UserProfile, error)
}

type ProductAPI interface {
	List(ctx context.Context) ([]domain.Product, error)
	Detail(ctx context.Context, id int64) (domain.Product, error)
	Create(ctx context.Context, payload domain.ProductPayload) (domain.Product, error)
	Update(ctx context.Context, id int64, payload domain.ProductPayload) (domain.Product, error)
}

type OrderAPI interface {
	List(ctx context.Context) ([]domain.Order, error)
}

type Notifier interface {
	Notify(message string, opts ...notify.Option) string
}

type Console struct {
	session  Session
	products ProductAPI
	orders   OrderAPI
	notifier Notifier
	log      *zap.Logger

	productsGen loader.Generation
	ordersGen   loader.Generation
}

func NewConsole(sess Session, products ProductAPI, orders OrderAPI, notifier Notifier, log *zap.Logger) *Console {
	if log == nil {
		log = zap.NewNop()
	}
	return &Console{session: sess, products: products, orders: orders, notifier: notifier, log: log}
}

// VerifyAccess returns the admin profile, or one of ErrLoginRequired,
// ErrSessionInvalid and ErrForbidden after notifying the user.
func (c *Console) VerifyAccess(ctx context.Context) (domain.UserProfile, error) {
	p, err := c.session.Ensure(ctx)
	switch {
	case errors.Is(err, ErrLoginRequired):
		c.fail(msgLoginRequired)
		return domain.UserProfile{}, err
	case err != nil:
		c.log.Warn("admin session check failed", zap.Error(err))
		c.fail(msgSessionInvalid)
		if !errors.Is(err, ErrSessionInvalid) {
			err = errors.Join(ErrSessionInvalid, err)
		}
		return domain.UserProfile{}, err
	case !p.IsAdmin():
		c.fail(msgForbidden)
		return domain.UserProfile{}, ErrForbidden
	}
	return p, nil
}

// Products loads the catalog. current is false when superseded.
func (c *Console) Products(ctx context.Context) ([]domain.Product, bool, error) {
	list, current, err := loader.Load(ctx, &c.productsGen, c.products.List)
	if err != nil {
		c.fail(api.APIMessage(err, msgProductsFailed))
		return nil, current, err
	}
	return list, current, nil
}

// Orders loads every order on the platform. current is false when
// superseded.
func (c *Console) Orders(ctx context.Context) ([]domain.Order, bool, error) {
	list, current, err := loader.Load(ctx, &c.ordersGen, c.orders.List)
	if err != nil {
		c.fail(api.APIMessage(err, msgOrdersFailed))
		return nil, current, err
	}
	return list, current, nil
}

// Leave discards loads still in flight.
func (c *Console) Leave() {
	c.productsGen.Invalidate()
	c.ordersGen.Invalidate()
}

// Overview is the console's landing data. Each half fails on its own.
type Overview struct {
	Products    []domain.Product
	Orders      []domain.Order
	ProductsErr error
	OrdersErr   error
}

// Overview loads products and orders in parallel. A failing half does not
// cancel the other, so the page can still show what did load. The error
// joins both halves' errors and is nil only when both loaded.
func (c *Console) Overview(ctx context.Context) (Overview, error) {
	var (
		out Overview
		g   errgroup.Group
	)
	g.Go(func() error {
		out.Products, _, out.ProductsErr = c.Products(ctx)
		return out.ProductsErr
	})
	g.Go(func() error {
		out.Orders, _, out.OrdersErr = c.Orders(ctx)
		return out.OrdersErr
	})
	if err := g.Wait(); err != nil {
		return out, errors.Join(out.ProductsErr, out.OrdersErr)
	}
	return out, nil
}

// EditForm loads product id into the editor.
func (c *Console) EditForm(ctx context.Context, id int64) (ProductForm, error) {
	p, err := c.products.Detail(ctx, id)
	if err != nil {
		c.fail(api.APIMessage(err, msgDetailFailed))
		return ProductForm{}, err
	}
	return FormFor(p), nil
}

// CreateProduct validates form and creates the product. Validation errors
// are returned without a notification.
func (c *Console) CreateProduct(ctx context.Context, form ProductForm) (domain.Product, error) {
	payload, err := form.Validate()
	if err != nil {
		return domain.Product{}, err
	}
	p, err := c.products.Create(ctx, payload)
	if err != nil {
		c.fail(api.APIMessage(err, msgCreateFailed))
		return domain.Product{}, err
	}
	c.log.Info("product created", zap.Int64("product_id", p.ID))
	c.notifier.Notify(msgCreated, notify.WithTone(notify.ToneSuccess))
	return p, nil
}

// UpdateProduct validates form and replaces product id with it.
func (c *Console) UpdateProduct(ctx context.Context, id int64, form ProductForm) (domain.Product, error) {
	payload, err := form.Validate()
	if err != nil {
		return domain.Product{}, err
	}
	p, err := c.products.Update(ctx, id, payload)
	if err != nil {
		c.fail(api.APIMessage(err, msgUpdateFailed))
		return domain.Product{}, err
	}
	c.log.Info("product updated", zap.Int64("product_id", p.ID))
	c.notifier.Notify(msgUpdated, notify.WithTone(notify.ToneSuccess))
	return p, nil
}

func (c *Console) fail(msg string) {
	c.notifier.Notify(msg, notify.WithTone(notify.ToneError))
}
