// Package notify carries reservation lifecycle notifications to
// customers. Delivery is fire-and-forget: a failed send never rolls
// back the state transition that produced it.
package notify

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"arcadia/internal/events"
)

// EventNotification is the bus event type notifications travel under.
const EventNotification = "notification"

// Notification is the payload handed to the delivery collaborator.
type Notification struct {
	CustomerID string            `json:"customer_id"`
	Type       string            `json:"type"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Notifier accepts notifications for delivery.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Transport performs the actual delivery (push, email, SMS gateway).
type Transport interface {
	Deliver(ctx context.Context, n Notification) error
}

// BusNotifier publishes notifications onto the in-process event bus so
// that delivery is decoupled from the request path.
type BusNotifier struct {
	bus *events.Bus
}

// NewBusNotifier wraps a bus.
func NewBusNotifier(bus *events.Bus) *BusNotifier {
	return &BusNotifier{bus: bus}
}

// Notify publishes the notification event.
func (bn *BusNotifier) Notify(_ context.Context, n Notification) error {
	return bn.bus.PublishJSON(EventNotification, n)
}

// Dispatcher subscribes to notification events and delivers them
// through a transport behind a token-bucket rate limiter.
type Dispatcher struct {
	transport Transport
	limiter   *rate.Limiter
	logger    *zerolog.Logger
}

// NewDispatcher builds a dispatcher. ratePerSecond <= 0 falls back to
// 20 msg/s with a burst of 30.
func NewDispatcher(transport Transport, ratePerSecond float64, burst int, logger *zerolog.Logger) *Dispatcher {
	if ratePerSecond <= 0 {
		ratePerSecond = 20
	}
	if burst <= 0 {
		burst = 30
	}
	return &Dispatcher{
		transport: transport,
		limiter:   rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		logger:    logger,
	}
}

// Attach subscribes the dispatcher to the bus.
func (d *Dispatcher) Attach(ctx context.Context, bus *events.Bus) {
	bus.Subscribe(EventNotification, func(event events.Event) error {
		var n Notification
		if err := json.Unmarshal(event.Payload, &n); err != nil {
			d.logger.Error().Err(err).Msg("malformed notification payload")
			return err
		}
		return d.Send(ctx, n)
	})
}

// Send waits for a rate-limit token and delivers. Errors are logged and
// swallowed; notification failure must never surface to the workflow.
func (d *Dispatcher) Send(ctx context.Context, n Notification) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := d.transport.Deliver(ctx, n); err != nil {
		d.logger.Error().
			Err(err).
			Str("customer_id", n.CustomerID).
			Str("type", n.Type).
			Msg("notification delivery failed")
	}
	return nil
}

// LogTransport logs notifications instead of delivering them. Used in
// development and as the default when no gateway is configured.
type LogTransport struct {
	Logger *zerolog.Logger
}

// Deliver writes the notification to the log.
func (t *LogTransport) Deliver(_ context.Context, n Notification) error {
	t.Logger.Info().
		Str("customer_id", n.CustomerID).
		Str("type", n.Type).
		Str("title", n.Title).
		Str("body", n.Body).
		Msg("notification")
	return nil
}
