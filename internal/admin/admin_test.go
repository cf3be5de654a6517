package admin

import (
	"context"
	"net/http"
	"testing"

	"github.com/jorgepalis/pymedesk/internal/api"
	"github.com/jorgepalis/pymedesk/internal/apitest"
	"github.com/jorgepalis/pymedesk/internal/domain"
	"github.com/jorgepalis/pymedesk/internal/endpoints"
	"github.com/jorgepalis/pymedesk/internal/notify"
	"github.com/jorgepalis/pymedesk/internal/session"
	"github.com/jorgepalis/pymedesk/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	srv     *apitest.Server
	mem     *storage.Memory
	session *session.Store
	center  *notify.Center
	console *Console
}

func setup(t *testing.T) *env {
	t.Helper()
	srv := apitest.New(t)
	mem := storage.NewMemory()
	tokens := session.NewTokens(mem)
	client, err := api.NewClient(srv.URL(), api.WithHTTPClient(srv.Client()), api.WithTokenSource(tokens))
	require.NoError(t, err)

	center := notify.NewCenter(nil)
	t.Cleanup(center.Close)

	sess, err := session.New(context.Background(), session.Deps{
		Storage:  mem,
		Tokens:   tokens,
		Auth:     endpoints.NewAuth(client),
		Users:    endpoints.NewUsers(client),
		Notifier: center,
	})
	require.NoError(t, err)

	return &env{
		srv:     srv,
		mem:     mem,
		session: sess,
		center:  center,
		console: NewConsole(sess, endpoints.NewProducts(client), endpoints.NewOrders(client), center, nil),
	}
}

func (e *env) loginAs(t *testing.T, role string) {
	t.Helper()
	e.srv.AddUser(role+"@example.com", role, "secret-123", role)
	_, err := e.session.Login(context.Background(), role+"@example.com", "secret-123")
	require.NoError(t, err)
}

func (e *env) messages() []string {
	var out []string
	for _, n := range e.center.Active() {
		out = append(out, n.Message)
	}
	return out
}

func TestVerifyAccess(t *testing.T) {
	t.Run("signed out", func(t *testing.T) {
		e := setup(t)
		_, err := e.console.VerifyAccess(context.Background())
		assert.ErrorIs(t, err, ErrLoginRequired)
		assert.Equal(t, []string{msgLoginRequired}, e.messages())
	})

	t.Run("customer", func(t *testing.T) {
		e := setup(t)
		e.loginAs(t, "customer")
		_, err := e.console.VerifyAccess(context.Background())
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, []string{msgForbidden}, e.messages())
	})

	t.Run("admin", func(t *testing.T) {
		e := setup(t)
		e.loginAs(t, domain.RoleAdmin)
		p, err := e.console.VerifyAccess(context.Background())
		require.NoError(t, err)
		assert.True(t, p.IsAdmin())
		assert.Empty(t, e.messages())
	})

	t.Run("tokens without profile are refreshed", func(t *testing.T) {
		e := setup(t)
		ctx := context.Background()
		e.srv.AddUser("boss@example.com", "Boss", "secret-123", domain.RoleAdmin)
		require.NoError(t, e.session.Tokens().Save(ctx, domain.TokenPair{
			Access:  e.srv.IssueToken("boss@example.com"),
			Refresh: "r",
		}))

		p, err := e.console.VerifyAccess(ctx)
		require.NoError(t, err)
		assert.Equal(t, "boss@example.com", p.Email)
	})

	t.Run("refresh fails", func(t *testing.T) {
		e := setup(t)
		ctx := context.Background()
		require.NoError(t, e.session.Tokens().Save(ctx, domain.TokenPair{Access: "revoked", Refresh: "r"}))

		_, err := e.console.VerifyAccess(ctx)
		assert.ErrorIs(t, err, ErrSessionInvalid)
		assert.True(t, api.IsStatus(err, http.StatusUnauthorized))
		assert.Equal(t, []string{msgSessionInvalid}, e.messages())
	})
}

func TestCreateAndUpdateProduct(t *testing.T) {
	e := setup(t)
	e.loginAs(t, domain.RoleAdmin)
	ctx := context.Background()

	created, err := e.console.CreateProduct(ctx, ProductForm{
		Name:        "  Lamp ",
		Description: "Desk lamp",
		Price:       "19.90",
		Stock:       "1a2",
	})
	require.NoError(t, err)
	assert.Equal(t, "Lamp", created.Name)
	assert.Equal(t, 12, created.Stock)

	form, err := e.console.EditForm(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, ProductForm{Name: "Lamp", Description: "Desk lamp", Price: "19.90", Stock: "12"}, form)

	form.Price = "24.00"
	updated, err := e.console.UpdateProduct(ctx, created.ID, form)
	require.NoError(t, err)
	assert.Equal(t, "24.00", updated.Price)

	stored, ok := e.srv.Product(created.ID)
	require.True(t, ok)
	assert.Equal(t, "24.00", stored.Price)
	assert.Equal(t, []string{msgCreated, msgUpdated}, e.messages())
}

func TestCreateProduct_ValidationSkipsAPI(t *testing.T) {
	e := setup(t)
	e.loginAs(t, domain.RoleAdmin)
	before := len(e.srv.Requests())

	_, err := e.console.CreateProduct(context.Background(), ProductForm{Name: "x", Price: "1", Stock: "1"})
	assert.ErrorIs(t, err, ErrFieldsRequired)
	assert.Len(t, e.srv.Requests(), before)
	assert.Empty(t, e.messages())
}

func TestCreateProduct_ServerErrors(t *testing.T) {
	e := setup(t)
	e.loginAs(t, "customer")
	ctx := context.Background()
	form := ProductForm{Name: "Lamp", Description: "d", Price: "1", Stock: "1"}

	_, err := e.console.CreateProduct(ctx, form)
	assert.True(t, api.IsStatus(err, http.StatusForbidden))

	e2 := setup(t)
	e2.loginAs(t, domain.RoleAdmin)
	form.Price = "cheap"
	_, err = e2.console.CreateProduct(ctx, form)
	assert.True(t, api.IsStatus(err, http.StatusBadRequest))

	assert.Equal(t, []string{"You do not have permission to perform this action."}, e.messages())
	assert.Equal(t, []string{"A valid number is required."}, e2.messages())
}

func TestUpdateProduct_NotFound(t *testing.T) {
	e := setup(t)
	e.loginAs(t, domain.RoleAdmin)

	_, err := e.console.UpdateProduct(context.Background(), 404, ProductForm{Name: "a", Description: "b", Price: "1", Stock: "0"})
	assert.True(t, api.IsStatus(err, http.StatusNotFound))
	assert.Equal(t, []string{"Not found."}, e.messages())
}

func TestEditForm_NotFound(t *testing.T) {
	e := setup(t)
	e.loginAs(t, domain.RoleAdmin)

	_, err := e.console.EditForm(context.Background(), 9)
	require.Error(t, err)
	assert.Equal(t, []string{"Not found."}, e.messages())
}

func TestOverview(t *testing.T) {
	e := setup(t)
	e.loginAs(t, domain.RoleAdmin)
	e.srv.AddProduct(domain.Product{Name: "Lamp", Price: "5", Stock: 3})

	o, err := e.console.Overview(context.Background())
	require.NoError(t, err)
	require.NoError(t, o.ProductsErr)
	require.NoError(t, o.OrdersErr)
	assert.Len(t, o.Products, 1)
	assert.Empty(t, o.Orders)
}

func TestOverview_HalvesFailIndependently(t *testing.T) {
	e := setup(t)
	e.loginAs(t, domain.RoleAdmin)
	e.srv.AddProduct(domain.Product{Name: "Lamp", Price: "5", Stock: 3})
	e.srv.Fail(http.MethodGet, "/orders/", http.StatusInternalServerError, `{"error":{"code":"db","message":"orders offline"}}`)

	o, err := e.console.Overview(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, o.OrdersErr)
	require.NoError(t, o.ProductsErr)
	require.Error(t, o.OrdersErr)
	assert.Len(t, o.Products, 1, "products still load when orders fail")
	assert.Equal(t, []string{"db"}, e.messages())
}

func TestOverview_BothHalvesFail(t *testing.T) {
	e := setup(t)
	e.loginAs(t, domain.RoleAdmin)
	e.srv.Fail(http.MethodGet, "/orders/", http.StatusInternalServerError, `{"detail":"orders offline"}`)
	e.srv.Fail(http.MethodGet, "/products/", http.StatusServiceUnavailable, `{"detail":"products offline"}`)

	o, err := e.console.Overview(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, o.ProductsErr)
	assert.ErrorIs(t, err, o.OrdersErr)
	assert.True(t, api.IsStatus(o.ProductsErr, http.StatusServiceUnavailable))
	assert.True(t, api.IsStatus(o.OrdersErr, http.StatusInternalServerError))
	assert.ElementsMatch(t, []string{"orders offline", "products offline"}, e.messages())
}
