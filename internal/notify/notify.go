// Package notify holds the transient notifications shown to the user after
// an action succeeds or fails.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Tone string

const (
	ToneInfo    Tone = "info"
	ToneSuccess Tone = "success"
	ToneError   Tone = "error"
)

const DefaultDuration = 5 * time.Second

type Notification struct {
	ID        string
	Message   string
	Tone      Tone
	Duration  time.Duration
	CreatedAt time.Time
}

type Option func(*Notification)

func WithTone(t Tone) Option {
	return func(n *Notification) { n.Tone = t }
}

// WithDuration sets how long the notification stays active. Zero keeps it
// until dismissed.
func WithDuration(d time.Duration) Option {
	return func(n *Notification) { n.Duration = d }
}

// Center keeps the active notifications and fans them out to subscribers.
type Center struct {
	mu      sync.Mutex
	active  []Notification
	timers  map[string]*time.Timer
	subs    map[int]chan Notification
	nextSub int
	closed  bool
	log     *zap.Logger
}

func NewCenter(log *zap.Logger) *Center {
	if log == nil {
		log = zap.NewNop()
	}
	return &Center{
		timers: make(map[string]*time.Timer),
		subs:   make(map[int]chan Notification),
		log:    log,
	}
}

// Notify publishes message and returns its id.
func (c *Center) Notify(message string, opts ...Option) string {
	n := Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Tone:      ToneError,
		Duration:  DefaultDuration,
		CreatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&n)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return n.ID
	}

	c.active = append(c.active, n)
	if n.Duration > 0 {
		id := n.ID
		c.timers[id] = time.AfterFunc(n.Duration, func() { c.Dismiss(id) })
	}

	for _, ch := range c.subs {
		select {
		case ch <- n:
		default:
			c.log.Warn("notification subscriber is full, dropping", zap.String("id", n.ID))
		}
	}

	c.log.Debug("notification",
		zap.String("id", n.ID),
		zap.String("tone", string(n.Tone)),
		zap.String("message", n.Message),
	)
	return n.ID
}

// Dismiss removes the notification with id. Unknown ids are ignored.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	for i, n := range c.active {
		if n.ID == id {
			c.active = append(c.active[:i], c.active[i+1:]...)
			return
		}
	}
}

// Active returns the notifications not yet dismissed, oldest first.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.active))
	copy(out, c.active)
	return out
}

// Subscribe returns a channel receiving every new notification. Sends never
// block; a full channel misses notifications. cancel closes the channel.
func (c *Center) Subscribe(buf int) (<-chan Notification, func()) {
	ch := make(chan Notification, buf)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Close stops pending timers and closes all subscriptions.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true

	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}
