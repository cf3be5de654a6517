package endpoints

import (
	"context"
	"net/http"

	"github.com/jorgepalis/pymedesk/internal/api"
	"github.com/jorgepalis/pymedesk/internal/domain"
)

type Users struct {
	client *api.Client
}

func NewUsers(client *api.Client) *Users {
	return &Users{client: client}
}

// Me returns the profile of the token's owner.
func (u *Users) Me(ctx context.Context) (domain.UserProfile, error) {
	return api.Fetch[domain.UserProfile](ctx, u.client, "users/me/", api.RequestOptions{
		Method: http.MethodGet,
		Auth:   true,
	})
}
