package endpoints

import (
	"context"
	"net/http"

	"github.com/jorgepalis/pymedesk/internal/api"
	"github.com/jorgepalis/pymedesk/internal/domain"
)

const ordersBase = "orders/"

type Orders struct {
	client *api.Client
}

func NewOrders(client *api.Client) *Orders {
	return &Orders{client: client}
}

// List returns the orders visible to the current user; admins see all.
func (o *Orders) List(ctx context.Context) ([]domain.Order, error) {
	return api.Fetch[[]domain.Order](ctx, o.client, ordersBase, api.RequestOptions{Auth: true})
}

func (o *Orders) Create(ctx context.Context, payload domain.CreateOrderPayload) (domain.Order, error) {
	return api.Fetch[domain.Order](ctx, o.client, ordersBase, api.RequestOptions{
		Method: http.MethodPost,
		Body:   payload,
		Auth:   true,
	})
}
