package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithHTTPClient(srv.Client())}, opts...)
	c, err := NewClient(srv.URL+"/api", opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_BlankBaseURL(t *testing.T) {
	for _, base := range []string{"", "   "} {
		_, err := NewClient(base)
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	got, err := NormalizeBaseURL(" https://api.example.com/v1 ")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/", got)

	got, err = NormalizeBaseURL("https://api.example.com/v1/")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/", got)
}

func TestClient_URL(t *testing.T) {
	c, err := NewClient("https://api.example.com/v1")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/products/3/", c.URL("/products/3/"))
	assert.Equal(t, "https://api.example.com/v1/orders/", c.URL("orders/"))
}

func TestDo_DecodesJSONAndSetsHeaders(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"id": 5, "name": "Keyboard"}`))
	})

	out, err := Fetch[item](context.Background(), c, "/products/5/", RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, item{ID: 5, Name: "Keyboard"}, out)

	require.NotNil(t, got)
	assert.Equal(t, "/api/products/5/", got.URL.Path)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.NotEmpty(t, got.Header.Get(HeaderRequestID))
	assert.Empty(t, got.Header.Get("Authorization"))
}

func TestDo_SkipJSONHeadersAndCallerHeaders(t *testing.T) {
	var header http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.Do(context.Background(), "ping/", RequestOptions{
		SkipJSONHeaders: true,
		Header:          http.Header{"Accept": {"text/plain"}, HeaderRequestID: {"req-1"}},
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, header.Get("Content-Type"))
	assert.Equal(t, "text/plain", header.Get("Accept"))
	assert.Equal(t, "req-1", header.Get(HeaderRequestID))
}

func TestDo_EncodesBody(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 1, "name": "Mouse"}`))
	})

	out, err := Fetch[item](context.Background(), c, "products/", RequestOptions{
		Method: http.MethodPost,
		Body:   map[string]any{"name": "Mouse"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.ID)
	assert.Equal(t, "Mouse", body["name"])
}

func TestDo_BearerToken(t *testing.T) {
	var auth []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}, WithTokenSource(TokenFunc(func(context.Context) (string, error) { return "abc", nil })))

	require.NoError(t, c.Do(context.Background(), "users/me/", RequestOptions{Auth: true}, nil))
	require.NoError(t, c.Do(context.Background(), "users/token/", RequestOptions{}, nil))

	assert.Equal(t, []string{"Bearer abc", ""}, auth)
}

func TestDo_MissingTokenOmitsHeader(t *testing.T) {
	var auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}, WithTokenSource(TokenFunc(func(context.Context) (string, error) { return "", nil })))

	require.NoError(t, c.Do(context.Background(), "orders/", RequestOptions{Auth: true}, nil))
	assert.Empty(t, auth)
}

func TestDo_TokenSourceError(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, WithTokenSource(TokenFunc(func(context.Context) (string, error) { return "", errors.New("storage down") })))

	err := c.Do(context.Background(), "orders/", RequestOptions{Auth: true}, nil)
	require.ErrorContains(t, err, "storage down")
	assert.False(t, called)
}

func TestDo_ErrorResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"email": ["This field is required."]}`))
	})

	err := c.Do(context.Background(), "users/register/", RequestOptions{Method: http.MethodPost}, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "This field is required.", apiErr.Message)
	assert.JSONEq(t, `{"email": ["This field is required."]}`, string(apiErr.Payload))
}

func TestDo_ErrorWithoutJSONUsesStatusText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>upstream</html>")
	})

	err := c.Do(context.Background(), "products/", RequestOptions{}, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
	assert.Nil(t, apiErr.Payload)
}

func TestDo_InvalidJSONOnSuccessIsNullPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, "{not json")
	})

	out, err := Fetch[*item](context.Background(), c, "products/1/", RequestOptions{})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestDo_InvalidJSONOnErrorFallsBack(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "oops")
	})

	err := c.Do(context.Background(), "orders/", RequestOptions{}, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Internal Server Error", apiErr.Message)
	assert.Nil(t, apiErr.Payload)
}

func TestDo_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := NewClient(base)
	require.NoError(t, err)

	err = c.Do(context.Background(), "products/", RequestOptions{}, nil)
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.True(t, strings.HasPrefix(err.Error(), "GET products/"))
}

func TestDo_CancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Do(ctx, "products/", RequestOptions{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
