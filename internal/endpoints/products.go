package endpoints

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jorgepalis/pymedesk/internal/api"
	"github.com/jorgepalis/pymedesk/internal/domain"
)

const productsBase = "products/"

type Products struct {
	client *api.Client
}

func NewProducts(client *api.Client) *Products {
	return &Products{client: client}
}

func (p *Products) List(ctx context.Context) ([]domain.Product, error) {
	return api.Fetch[[]domain.Product](ctx, p.client, productsBase, api.RequestOptions{Auth: true})
}

func (p *Products) Detail(ctx context.Context, id int64) (domain.Product, error) {
	return api.Fetch[domain.Product](ctx, p.client, productPath(id), api.RequestOptions{Auth: true})
}

func (p *Products) Create(ctx context.Context, payload domain.ProductPayload) (domain.Product, error) {
	return api.Fetch[domain.Product](ctx, p.client, productsBase, api.RequestOptions{
		Method: http.MethodPost,
		Body:   payload,
		Auth:   true,
	})
}

func (p *Products) Update(ctx context.Context, id int64, payload domain.ProductPayload) (domain.Product, error) {
	return api.Fetch[domain.Product](ctx, p.client, productPath(id), api.RequestOptions{
		Method: http.MethodPut,
		Body:   payload,
		Auth:   true,
	})
}

func productPath(id int64) string {
	return fmt.Sprintf("%s%d/", productsBase, id)
}
