// Package orders loads the order history of the signed-in user.
package orders

import (
	"context"
	"errors"

	"github.com/jorgepalis/pymedesk/internal/api"
	"github.com/jorgepalis/pymedesk/internal/domain"
	"github.com/jorgepalis/pymedesk/internal/loader"
	"github.com/jorgepalis/pymedesk/internal/notify"
	"github.com/jorgepalis/pymedesk/internal/session"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	msgLoadFailed     = "could not fetch orders."
	msgSessionInvalid = "could not refresh the session. sign in again."
)

type OrderAPI interface {
	List(ctx context.Context) ([]domain.Order, error)
}

type Session interface {
	Ensure(ctx context.Context) (domain.UserProfile, error)
}

type Notifier interface {
	Notify(message string, opts ...notify.Option) string
}

type History struct {
	orders   OrderAPI
	session  Session
	notifier Notifier
	log      *zap.Logger
	gen      loader.Generation
}

func NewHistory(orders OrderAPI, sess Session, notifier Notifier, log *zap.Logger) *History {
	if log == nil {
		log = zap.NewNop()
	}
	return &History{orders: orders, session: sess, notifier: notifier, log: log}
}

// Viewer resolves who is looking at the history. A session whose profile
// cannot be refreshed is notified.
func (h *History) Viewer(ctx context.Context) (domain.UserProfile, error) {
	p, err := h.session.Ensure(ctx)
	if errors.Is(err, session.ErrSessionInvalid) {
		h.notifier.Notify(msgSessionInvalid, notify.WithTone(notify.ToneError))
	}
	return p, err
}

// Load fetches the orders; admins receive every order. current is false
// when the result was superseded.
func (h *History) Load(ctx context.Context) (orders []domain.Order, current bool, err error) {
	orders, current, err = loader.Load(ctx, &h.gen, h.orders.List)
	if err != nil {
		h.log.Warn("failed to load orders", zap.Error(err))
		h.notifier.Notify(api.APIMessage(err, msgLoadFailed), notify.WithTone(notify.ToneError))
		return nil, current, err
	}
	return orders, current, nil
}

func (h *History) Leave() {
	h.gen.Invalidate()
}

// Summary aggregates a list of orders.
type Summary struct {
	Count  int
	Units  int
	Total  decimal.Decimal
	Status map[domain.OrderStatus]int
}

func Summarize(list []domain.Order) Summary {
	s := Summary{Total: decimal.Zero, Status: make(map[domain.OrderStatus]int)}
	for _, o := range list {
		s.Count++
		s.Units += o.ItemCount()
		s.Total = s.Total.Add(o.Total())
		s.Status[o.Status]++
	}
	return s
}
