// Package app wires the storefront together from configuration.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jorgepalis/pymedesk/internal/admin"
	"github.com/jorgepalis/pymedesk/internal/api"
	"github.com/jorgepalis/pymedesk/internal/cart"
	"github.com/jorgepalis/pymedesk/internal/catalog"
	"github.com/jorgepalis/pymedesk/internal/checkout"
	"github.com/jorgepalis/pymedesk/internal/config"
	"github.com/jorgepalis/pymedesk/internal/endpoints"
	"github.com/jorgepalis/pymedesk/internal/notify"
	"github.com/jorgepalis/pymedesk/internal/orders"
	"github.com/jorgepalis/pymedesk/internal/session"
	"github.com/jorgepalis/pymedesk/internal/storage"
	"go.uber.org/zap"
)

// Container holds every long-lived component of the storefront.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	Storage  storage.Closer
	Client   *api.Client
	Notifier *notify.Center

	// Endpoints
	Auth     *endpoints.Auth
	Users    *endpoints.Users
	Products *endpoints.Products
	Orders   *endpoints.Orders

	// Stores
	Session *session.Store
	Cart    *cart.Store

	// Views
	Catalog  *catalog.Catalog
	History  *orders.History
	Checkout *checkout.Service
	Admin    *admin.Console
}

type options struct {
	log        *zap.Logger
	httpClient *http.Client
	storage    storage.Closer
}

type Option func(*options)

func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithStorage uses s instead of opening the configured driver. The
// container still closes it.
func WithStorage(s storage.Closer) Option {
	return func(o *options) { o.storage = s }
}

// New builds the container. Stores are hydrated from device storage here.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}

	c := &Container{Config: cfg, Logger: o.log}

	c.Storage = o.storage
	if c.Storage == nil {
		s, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		c.Storage = s
	}

	tokens := session.NewTokens(c.Storage)
	clientOpts := []api.Option{api.WithTokenSource(tokens), api.WithLogger(o.log.Named("api"))}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(o.httpClient))
	}
	client, err := api.NewClient(cfg.APIBaseURL, clientOpts...)
	if err != nil {
		c.Storage.Close()
		return nil, err
	}
	c.Client = client
	c.Notifier = notify.NewCenter(o.log.Named("notify"))

	c.Auth = endpoints.NewAuth(client)
	c.Users = endpoints.NewUsers(client)
	c.Products = endpoints.NewProducts(client)
	c.Orders = endpoints.NewOrders(client)

	c.Session, err = session.New(ctx, session.Deps{
		Storage:  c.Storage,
		Tokens:   tokens,
		Auth:     c.Auth,
		Users:    c.Users,
		Notifier: c.Notifier,
		Logger:   o.log.Named("session"),
	})
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Cart, err = cart.New(ctx, c.Storage, o.log.Named("cart"))
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Catalog = catalog.New(c.Products, c.Notifier, o.log.Named("catalog"))
	c.History = orders.NewHistory(c.Orders, c.Session, c.Notifier, o.log.Named("orders"))
	c.Checkout = checkout.NewService(c.Orders, c.Cart, c.Session, c.Notifier, o.log.Named("checkout"))
	c.Admin = admin.NewConsole(c.Session, c.Products, c.Orders, c.Notifier, o.log.Named("admin"))

	return c, nil
}

// Close releases storage and stops pending notifications.
func (c *Container) Close() error {
	if c.Notifier != nil {
		c.Notifier.Close()
	}
	if c.Storage != nil {
		return c.Storage.Close()
	}
	return nil
}
