// Package apitest runs an in-process fake of the shop REST API for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jorgepalis/pymedesk/internal/currency"
	"github.com/jorgepalis/pymedesk/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	// BasePath is the prefix every route is mounted under.
	BasePath = "/api"

	tokenTTL = time.Hour
)

var signingKey = []byte("apitest-signing-key")

// Request is a recorded inbound call.
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

type account struct {
	profile  domain.UserProfile
	password string
}

type failure struct {
	status int
	body   string
}

type Server struct {
	srv *httptest.Server

	mu        sync.Mutex
	accounts  map[string]*account // by email
	tokens    map[string]string   // access token -> email
	products  map[int64]domain.Product
	orders    []domain.Order
	failures  map[string]failure
	requests  []Request
	nextUser  int64
	nextProd  int64
	nextOrder int64
	nextItem  int64
	nextToken int64
}

// New starts a fake API; it is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		products: make(map[int64]domain.Product),
		failures: make(map[string]failure),
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.injectFailures)
	r.Route(BasePath, func(r chi.Router) {
		r.Post("/users/token/", s.login)
		r.Post("/users/register/", s.register)
		r.Get("/users/me/", s.me)

		r.Get("/products/", s.listProducts)
		r.Post("/products/", s.createProduct)
		r.Get("/products/{id}/", s.productDetail)
		r.Put("/products/{id}/", s.updateProduct)

		r.Get("/orders/", s.listOrders)
		r.Post("/orders/", s.createOrder)
	})

	s.srv = httptest.NewServer(r)
	t.Cleanup(s.srv.Close)
	return s
}

// URL is the API base URL clients should be configured with.
func (s *Server) URL() string {
	return s.srv.URL + BasePath + "/"
}

func (s *Server) Client() *http.Client {
	return s.srv.Client()
}

// AddUser registers an account directly and returns its profile.
func (s *Server) AddUser(email, name, password, role string) domain.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, name, password, role)
}

func (s *Server) addUserLocked(email, name, password, role string) domain.UserProfile {
	s.nextUser++
	p := domain.UserProfile{ID: s.nextUser, Email: email, Name: name, RoleName: role}
	s.accounts[email] = &account{profile: p, password: password}
	return p
}

// AddProduct stores p with a fresh id.
func (s *Server) AddProduct(p domain.Product) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProd++
	p.ID = s.nextProd
	s.products[p.ID] = p
	return p
}

func (s *Server) Product(id int64) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

func (s *Server) Orders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Order(nil), s.orders...)
}

// Fail makes the next call to method+path (path relative to BasePath,
// e.g. "/users/me/") answer with status and a JSON body.
func (s *Server) Fail(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+BasePath+path] = failure{status: status, body: body}
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// IssueToken signs an access token for email without going through login.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(email).Access
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		f, ok := s.failures[key]
		delete(s.failures, key)
		s.mu.Unlock()
		if ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) issueLocked(email string) domain.TokenPair {
	s.nextToken++
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": email,
		"jti": strconv.FormatInt(s.nextToken, 10),
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	}
	access, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	s.tokens[access] = email
	return domain.TokenPair{Access: access, Refresh: "refresh-" + strconv.FormatInt(s.nextToken, 10)}
}

// caller resolves the bearer token; ok is false when the request is not
// authenticated.
func (s *Server) caller(r *http.Request) (domain.UserProfile, bool) {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found {
		return domain.UserProfile{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.tokens[token]
	if !ok {
		return domain.UserProfile{}, false
	}
	acc, ok := s.accounts[email]
	if !ok {
		return domain.UserProfile{}, false
	}
	return acc.profile, true
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error."})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[req.Email]
	if !ok || acc.password != req.Password {
		respondJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "No active account found with the given credentials",
		})
		return
	}
	respondJSON(w, http.StatusOK, s.issueLocked(req.Email))
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error."})
		return
	}
	fieldErrs := map[string][]string{}
	if req.Email == "" {
		fieldErrs["email"] = []string{"This field is required."}
	}
	if req.Name == "" {
		fieldErrs["name"] = []string{"This field is required."}
	}
	if len(req.Password) < 8 {
		fieldErrs["password"] = []string{"Ensure this field has at least 8 characters."}
	}
	if len(fieldErrs) > 0 {
		respondJSON(w, http.StatusBadRequest, fieldErrs)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[req.Email]; exists {
		respondJSON(w, http.StatusBadRequest, map[string][]string{
			"email": {"user with this email already exists."},
		})
		return
	}
	s.addUserLocked(req.Email, req.Name, req.Password, "customer")
	respondJSON(w, http.StatusCreated, s.issueLocked(req.Email))
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user, ok := s.caller(r)
	if !ok {
		unauthorized(w)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		list = append(list, p)
	}
	s.mu.Unlock()
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) productDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		notFound(w)
		return
	}
	p, ok := s.Product(id)
	if !ok {
		notFound(w)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	payload, ok := decodeProduct(w, r)
	if !ok {
		return
	}
	p := s.AddProduct(domain.Product{
		Name:        payload.Name,
		Description: payload.Description,
		Price:       payload.Price,
		Stock:       payload.Stock,
	})
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		notFound(w)
		return
	}
	payload, ok := decodeProduct(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	p, exists := s.products[id]
	if exists {
		p.Name, p.Description, p.Price, p.Stock = payload.Name, payload.Description, payload.Price, payload.Stock
		s.products[id] = p
	}
	s.mu.Unlock()
	if !exists {
		notFound(w)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := s.caller(r)
	if !ok {
		unauthorized(w)
		return
	}
	s.mu.Lock()
	list := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if user.IsAdmin() || o.User.ID == user.ID {
			list = append(list, o)
		}
	}
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := s.caller(r)
	if !ok {
		unauthorized(w)
		return
	}
	var req domain.CreateOrderPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error."})
		return
	}
	if len(req.Items) == 0 {
		respondJSON(w, http.StatusBadRequest, map[string][]string{"items": {"This list may not be empty."}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range req.Items {
		p, exists := s.products[it.ProductID]
		if !exists {
			respondJSON(w, http.StatusBadRequest, map[string]any{
				"items": []map[string][]string{{"product_id": {fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", it.ProductID)}}},
			})
			return
		}
		if it.Quantity < 1 || it.Quantity > p.Stock {
			respondJSON(w, http.StatusBadRequest, map[string]any{
				"items": []map[string][]string{{"quantity": {fmt.Sprintf("Not enough stock for %s.", p.Name)}}},
			})
			return
		}
	}

	s.nextOrder++
	order := domain.Order{
		ID:        s.nextOrder,
		User:      domain.OrderUser{ID: user.ID, Email: user.Email, Name: user.Name},
		Status:    domain.OrderPending,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	total := decimal.Zero
	for _, it := range req.Items {
		p := s.products[it.ProductID]
		p.Stock -= it.Quantity
		s.products[p.ID] = p

		subtotal := currency.ParsePrice(p.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(subtotal)
		s.nextItem++
		order.Items = append(order.Items, domain.OrderItem{
			ID:       s.nextItem,
			Product:  domain.OrderItemProduct{ID: p.ID, Name: p.Name, Price: currency.ParsePrice(p.Price).InexactFloat64()},
			Quantity: it.Quantity,
			Subtotal: subtotal.StringFixed(2),
		})
	}
	order.TotalPrice = total.StringFixed(2)
	s.orders = append(s.orders, order)
	respondJSON(w, http.StatusCreated, order)
}

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	user, ok := s.caller(r)
	if !ok {
		unauthorized(w)
		return false
	}
	if !user.IsAdmin() {
		respondJSON(w, http.StatusForbidden, map[string]string{
			"detail": "You do not have permission to perform this action.",
		})
		return false
	}
	return true
}

func decodeProduct(w http.ResponseWriter, r *http.Request) (domain.ProductPayload, bool) {
	var payload domain.ProductPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error."})
		return payload, false
	}
	if _, err := decimal.NewFromString(payload.Price); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string][]string{"price": {"A valid number is required."}})
		return payload, false
	}
	return payload, true
}

func unauthorized(w http.ResponseWriter) {
	respondJSON(w, http.StatusUnauthorized, map[string]string{
		"detail": "Authentication credentials were not provided.",
	})
}

func notFound(w http.ResponseWriter) {
	respondJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
