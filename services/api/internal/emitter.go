package internal

import (
	"context"

	"github.com/forge-ai/codeforge/shared/events"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Publisher is the slice of *mq.Broker the emitter needs.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	SubscribeTransient(pattern string) (<-chan amqp.Delivery, error)
}

// Emitter delivers lifecycle events. With a broker, events go to the
// exchange and come back to this instance's hub through Relay; without one
// they go straight to the hub.
type Emitter struct {
	hub    *Hub
	broker Publisher
}

func NewEmitter(hub *Hub, broker Publisher) *Emitter {
	return &Emitter{hub: hub, broker: broker}
}

// Emit never fails the caller; delivery problems are logged.
func (e *Emitter) Emit(ctx context.Context, routingKey string, payload any) {
	b, err := events.Wrap(routingKey, payload)
	if err != nil {
		log.Error().Err(err).Str("key", routingKey).Msg("wrap event")
		return
	}
	if e.broker == nil {
		e.hub.BroadcastRaw(b)
		return
	}
	// The request context may already be canceled when the final event of a
	// request is emitted.
	if err := e.broker.Publish(context.WithoutCancel(ctx), routingKey, b); err != nil {
		log.Warn().Err(err).Str("key", routingKey).Msg("publish event")
		e.hub.BroadcastRaw(b)
	}
}

// Relay forwards every event on the exchange to the hub until ctx ends.
// It is a no-op without a broker.
func (e *Emitter) Relay(ctx context.Context) error {
	if e.broker == nil {
		return nil
	}
	deliveries, err := e.broker.SubscribeTransient("#")
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				log.Warn().Msg("event relay channel closed")
				return nil
			}
			if _, err := events.UnwrapEnvelope(d.Body); err != nil {
				log.Debug().Err(err).Str("key", d.RoutingKey).Msg("skip malformed event")
				continue
			}
			e.hub.BroadcastRaw(d.Body)
		}
	}
}
