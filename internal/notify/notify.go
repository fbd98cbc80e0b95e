// Package notify builds user notifications and delivers them, best effort,
// to native channels outside the app.
package notify

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"gitlab.com/yelinaung/wallet/internal/logger"
	"gitlab.com/yelinaung/wallet/internal/models"
)

// DefaultChannelTimeout bounds a single channel delivery.
const DefaultChannelTimeout = 3 * time.Second

// deliveryGrace is how long Deliver waits past the channel timeout for
// channels that ignore their context.
const deliveryGrace = 50 * time.Millisecond

// New builds a notification value with a fresh ID and the current time.
func New(kind models.NotificationType, title, message string) models.Notification {
	return models.Notification{
		ID:        uuid.NewString(),
		Type:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// Message is what a channel delivers.
type Message struct {
	Type  models.NotificationType
	Title string
	Body  string
	At    time.Time
}

// Channel is a native delivery target.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}

// Dispatcher fans a message out to every channel. Delivery never fails from
// the caller's point of view.
type Dispatcher struct {
	channels []Channel
	timeout  time.Duration
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithChannel adds a delivery channel.
func WithChannel(c Channel) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.channels = append(d.channels, c)
		}
	}
}

// WithTimeout overrides the per-channel delivery timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher returns a dispatcher that always logs, plus any extra
// channels given.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		channels: []Channel{LogChannel{}},
		timeout:  DefaultChannelTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Show delivers title and body to every channel.
func (d *Dispatcher) Show(ctx context.Context, title, body string) {
	d.Deliver(ctx, Message{Type: models.NotificationInfo, Title: title, Body: body})
}

// ShowNotification delivers an in-app notification to every channel.
func (d *Dispatcher) ShowNotification(ctx context.Context, n models.Notification) {
	d.Deliver(ctx, Message{Type: n.Type, Title: n.Title, Body: n.Message, At: n.CreatedAt})
}

// Deliver sends msg to all channels concurrently and waits at most the
// per-channel timeout plus a short grace. Failures are logged and dropped.
// Cancelling ctx does not abort deliveries already started, and a channel
// still running when the wait ends is left to finish in the background.
func (d *Dispatcher) Deliver(ctx context.Context, msg Message) {
	if d == nil {
		return
	}
	if msg.At.IsZero() {
		msg.At = d.now().UTC()
	}

	base := context.WithoutCancel(ctx)
	var wg sync.WaitGroup
	for _, ch := range d.channels {
		wg.Go(func() {
			cctx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()

			defer func() {
				if r := recover(); r != nil {
					logger.Log.Error().Str("channel", ch.Name()).Interface("panic", r).Msg("Notification channel panicked")
				}
			}()

			if err := ch.Deliver(cctx, msg); err != nil {
				logger.Log.Warn().Err(err).Str("channel", ch.Name()).Msg("Failed to deliver notification")
			}
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(d.timeout + deliveryGrace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		log := logger.Component("notify")
		log.Warn().Str("title", msg.Title).Msg("Notification channels did not finish in time")
	}
}

// Close releases channels that hold connections.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, ch := range d.channels {
		if c, ok := ch.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// LogChannel writes notifications to the application log.
type LogChannel struct{}

// Name implements Channel.
func (LogChannel) Name() string { return "log" }

// Deliver implements Channel.
func (LogChannel) Deliver(_ context.Context, msg Message) error {
	log := logger.Component("notify")
	log.Info().
		Str("type", string(msg.Type)).
		Str("title", msg.Title).
		Str("body", logger.SanitizeText(msg.Body)).
		Msg("Notification")
	return nil
}
