// Package endpoints maps shop operations onto API calls.
package endpoints

import (
	"context"
	"net/http"

	"github.com/jorgepalis/pymedesk/internal/api"
	"github.com/jorgepalis/pymedesk/internal/domain"
)

const authBase = "users/"

type Auth struct {
	client *api.Client
}

func NewAuth(client *api.Client) *Auth {
	return &Auth{client: client}
}

// Login exchanges credentials for a token pair.
func (a *Auth) Login(ctx context.Context, payload domain.LoginPayload) (domain.TokenPair, error) {
	return api.Fetch[domain.TokenPair](ctx, a.client, authBase+"token/", api.RequestOptions{
		Method: http.MethodPost,
		Body:   payload,
	})
}

// Register creates an account and returns its first token pair.
func (a *Auth) Register(ctx context.Context, payload domain.RegisterPayload) (domain.TokenPair, error) {
	return api.Fetch[domain.TokenPair](ctx, a.client, authBase+"register/", api.RequestOptions{
		Method: http.MethodPost,
		Body:   payload,
	})
}
