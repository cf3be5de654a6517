// Package checkout turns the cart into an order.
package checkout

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/jorgepalis/pymedesk/internal/api"
	"github.com/jorgepalis/pymedesk/internal/domain"
	"github.com/jorgepalis/pymedesk/internal/notify"
	"go.uber.org/zap"
)

var (
	ErrNotAuthenticated = errors.New("checkout: sign in to place an order")
	ErrEmptyCart        = errors.New("checkout: cart is empty")
	ErrInProgress       = errors.New("checkout: an order is already being placed")
)

const (
	msgOrderCreated = "order created."
	msgOrderFailed  = "could not create the order. try again."
)

type OrderAPI interface {
	Create(ctx context.Context, payload domain.CreateOrderPayload) (domain.Order, error)
}

type Cart interface {
	Len() int
	OrderPayload() domain.CreateOrderPayload
	Clear(ctx context.Context)
}

type Session interface {
	IsAuthenticated(ctx context.Context) bool
}

type Notifier interface {
	Notify(message string, opts ...notify.Option) string
}

type Service struct {
	orders   OrderAPI
	cart     Cart
	session  Session
	notifier Notifier
	log      *zap.Logger
	placing  atomic.Bool
}

func NewService(orders OrderAPI, cart Cart, sess Session, notifier Notifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{orders: orders, cart: cart, session: sess, notifier: notifier, log: log}
}

// PlaceOrder submits the cart. On success the cart is cleared; on failure
// it is left as it was. Only one order may be in flight.
func (s *Service) PlaceOrder(ctx context.Context) (domain.Order, error) {
	if !s.session.IsAuthenticated(ctx) {
		return domain.Order{}, ErrNotAuthenticated
	}
	if s.cart.Len() == 0 {
		return domain.Order{}, ErrEmptyCart
	}
	if !s.placing.CompareAndSwap(false, true) {
		return domain.Order{}, ErrInProgress
	}
	defer s.placing.Store(false)

	payload := s.cart.OrderPayload()
	order, err := s.orders.Create(ctx, payload)
	if err != nil {
		s.log.Warn("failed to create order", zap.Int("lines", len(payload.Items)), zap.Error(err))
		s.notifier.Notify(api.MessageOf(err, msgOrderFailed), notify.WithTone(notify.ToneError))
		return domain.Order{}, err
	}

	s.log.Info("order created", zap.Int64("order_id", order.ID), zap.String("total", order.TotalPrice))
	s.notifier.Notify(msgOrderCreated, notify.WithTone(notify.ToneSuccess))
	s.cart.Clear(ctx)
	return order, nil
}

// InProgress reports whether an order is being placed.
func (s *Service) InProgress() bool {
	return s.placing.Load()
}
