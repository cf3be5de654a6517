package cli

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/jorgepalis/pymedesk/internal/app"
	"github.com/jorgepalis/pymedesk/internal/apitest"
	"github.com/jorgepalis/pymedesk/internal/config"
	"github.com/jorgepalis/pymedesk/internal/domain"
	"github.com/jorgepalis/pymedesk/internal/session"
	"github.com/jorgepalis/pymedesk/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	srv    *apitest.Server
	app    *app.Container
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	cli    *CLI
}

func setup(t *testing.T) *harness {
	t.Helper()
	srv := apitest.New(t)
	cfg := &config.Config{
		APIBaseURL: srv.URL(),
		Locale:     "en-US",
		Currency:   "USD",
		Storage:    config.StorageConfig{Driver: "memory"},
	}
	c, err := app.New(context.Background(), cfg, app.WithHTTPClient(srv.Client()), app.WithStorage(storage.NewMemory()))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	h := &harness{srv: srv, app: c, stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	h.cli = New(c, h.stdout, h.stderr)
	return h
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	h.stdout.Reset()
	h.stderr.Reset()
	return h.cli.Run(context.Background(), args)
}

func TestRun_Usage(t *testing.T) {
	h := setup(t)

	assert.ErrorIs(t, h.run(t), ErrUsage)
	assert.Contains(t, h.stderr.String(), "usage: storefront")

	assert.ErrorIs(t, h.run(t, "dance"), ErrUsage)
	assert.Contains(t, h.stderr.String(), `unknown command "dance"`)

	require.NoError(t, h.run(t, "help"))
	assert.Contains(t, h.stdout.String(), "commands:")

	assert.ErrorIs(t, h.run(t, "product", "abc"), ErrUsage)
	assert.ErrorIs(t, h.run(t, "login", "-nope"), ErrUsage)
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := setup(t)
	h.srv.AddUser("ana@example.com", "Ana", "secret-123", "customer")

	assert.ErrorIs(t, h.run(t, "login", "-email", "ana@example.com"), ErrMissingCredentials)
	assert.Empty(t, h.srv.Requests())

	require.NoError(t, h.run(t, "login", "-email", " ana@example.com ", "-password", "secret-123"))
	assert.Contains(t, h.stdout.String(), "signed in as Ana (ana@example.com)")
	assert.NotContains(t, h.stdout.String(), "admin console")

	require.NoError(t, h.run(t, "whoami"))
	assert.Contains(t, h.stdout.String(), "Ana <ana@example.com>")
	assert.Contains(t, h.stdout.String(), "access token expires:")

	require.NoError(t, h.run(t, "logout"))
	assert.ErrorIs(t, h.run(t, "whoami"), session.ErrLoginRequired)
}

func TestLogin_FailurePrintsNotification(t *testing.T) {
	h := setup(t)

	require.Error(t, h.run(t, "login", "-email", "ana@example.com", "-password", "wrong"))
	assert.Contains(t, h.stderr.String(), "[error]")
	assert.Empty(t, h.app.Notifier.Active(), "printed notifications are dismissed")
}

func TestRegister(t *testing.T) {
	h := setup(t)

	require.NoError(t, h.run(t, "register", "-email", "new@example.com", "-name", "New", "-password", "secret-123"))
	assert.Contains(t, h.stdout.String(), "signed in as New")
	assert.True(t, h.app.Session.IsAuthenticated(context.Background()))
}

func TestProducts(t *testing.T) {
	h := setup(t)
	h.srv.AddProduct(domain.Product{Name: "Lamp", Description: "Desk lamp", Price: "19.90", Stock: 4})
	mouse := h.srv.AddProduct(domain.Product{Name: "Mouse", Price: "5", Stock: 0})

	require.NoError(t, h.run(t, "products"))
	out := h.stdout.String()
	assert.Contains(t, out, "Lamp")
	assert.Contains(t, out, "19.90")
	assert.Contains(t, out, "sold out")

	require.NoError(t, h.run(t, "product", "1"))
	assert.Contains(t, h.stdout.String(), "Desk lamp")

	assert.ErrorIs(t, h.run(t, "cart", "add", "2"), ErrOutOfStock)
	_, ok := h.app.Cart.Line(mouse.ID)
	assert.False(t, ok)
}

func TestProducts_LoadFailure(t *testing.T) {
	h := setup(t)
	h.srv.Fail(http.MethodGet, "/products/", http.StatusInternalServerError, `{"detail":"catalog offline"}`)

	require.Error(t, h.run(t, "products"))
	assert.Contains(t, h.stderr.String(), "[error] catalog offline")
}

func TestCartAndCheckout(t *testing.T) {
	h := setup(t)
	h.srv.AddUser("ana@example.com", "Ana", "secret-123", "customer")
	lamp := h.srv.AddProduct(domain.Product{Name: "Lamp", Price: "19.90", Stock: 3})

	require.NoError(t, h.run(t, "cart"))
	assert.Contains(t, h.stdout.String(), "your cart is empty")

	require.NoError(t, h.run(t, "cart", "add", "1"))
	assert.Contains(t, h.stderr.String(), "product added to cart.")

	require.NoError(t, h.run(t, "cart", "add", "1", "-qty", "5"))
	assert.Contains(t, h.stderr.String(), "product added to cart.")
	line, ok := h.app.Cart.Line(lamp.ID)
	require.True(t, ok)
	assert.Equal(t, 3, line.Quantity, "clamped to stock")

	require.NoError(t, h.run(t, "cart", "add", "1", "-qty", "9223372036854775807"))
	line, _ = h.app.Cart.Line(lamp.ID)
	assert.Equal(t, 3, line.Quantity)

	require.NoError(t, h.run(t, "cart", "inc", "1"))
	assert.Contains(t, h.stderr.String(), "quantity unchanged")

	require.NoError(t, h.run(t, "cart", "dec", "1"))
	assert.Contains(t, h.stdout.String(), "items: 2")
	assert.Contains(t, h.stdout.String(), "39.80")

	assert.ErrorIs(t, h.run(t, "cart", "shake"), ErrUsage)

	require.Error(t, h.run(t, "checkout"), "signed out")
	assert.Equal(t, 2, h.app.Cart.TotalItems())

	require.NoError(t, h.run(t, "login", "-email", "ana@example.com", "-password", "secret-123"))
	require.NoError(t, h.run(t, "checkout"))
	assert.Contains(t, h.stdout.String(), "order #1 placed: 2 items")
	assert.Contains(t, h.stderr.String(), "order created.")
	assert.Zero(t, h.app.Cart.Len())

	require.NoError(t, h.run(t, "orders"))
	out := h.stdout.String()
	assert.Contains(t, out, "PENDING")
	assert.Contains(t, out, "1 orders, 2 units")
	assert.NotContains(t, out, "CUSTOMER")
}

func TestCartVisibility(t *testing.T) {
	h := setup(t)

	require.NoError(t, h.run(t, "cart", "open"))
	assert.True(t, h.app.Cart.IsOpen())
	require.NoError(t, h.run(t, "cart", "toggle"))
	assert.False(t, h.app.Cart.IsOpen())
	require.NoError(t, h.run(t, "cart", "toggle"))
	require.NoError(t, h.run(t, "cart", "close"))
	assert.False(t, h.app.Cart.IsOpen())
}

func TestAdmin(t *testing.T) {
	h := setup(t)
	h.srv.AddUser("boss@example.com", "Boss", "secret-123", domain.RoleAdmin)
	h.srv.AddUser("ana@example.com", "Ana", "secret-123", "customer")

	require.Error(t, h.run(t, "admin", "products"))
	assert.Contains(t, h.stderr.String(), "sign in to access the admin console.")

	require.NoError(t, h.run(t, "login", "-email", "ana@example.com", "-password", "secret-123"))
	require.Error(t, h.run(t, "admin", "products"))
	assert.Contains(t, h.stderr.String(), "permission")
	require.NoError(t, h.run(t, "logout"))

	require.NoError(t, h.run(t, "login", "-email", "boss@example.com", "-password", "secret-123"))
	assert.Contains(t, h.stdout.String(), "admin console")

	require.NoError(t, h.run(t, "admin", "create", "-name", "Lamp", "-description", "Desk lamp", "-price", "19.90", "-stock", "4"))
	assert.Contains(t, h.stdout.String(), "created product #1 Lamp")

	require.NoError(t, h.run(t, "admin", "update", "1", "-price", "24.00"))
	p, ok := h.srv.Product(1)
	require.True(t, ok)
	assert.Equal(t, "24.00", p.Price)
	assert.Equal(t, "Lamp", p.Name, "fields not named keep their value")
	assert.Equal(t, 4, p.Stock)

	require.Error(t, h.run(t, "admin", "create", "-name", "Empty"))
	_, ok = h.srv.Product(2)
	assert.False(t, ok, "invalid form never reaches the API")

	require.NoError(t, h.run(t, "admin", "products"))
	assert.Contains(t, h.stdout.String(), "24.00")

	require.NoError(t, h.run(t, "admin", "orders"))
	assert.Contains(t, h.stdout.String(), "no orders")

	assert.ErrorIs(t, h.run(t, "admin", "delete"), ErrUsage)
}
