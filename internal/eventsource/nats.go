// Package eventsource feeds the dispatch engine from out-of-process
// producers. The in-process producers call engine.Publish directly (or go
// through the HTTP events endpoint); services elsewhere on the bus publish
// the same envelope over NATS.
package eventsource

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/proposalhub/notify-fabric/internal/domain"
)

// Publisher is the slice of the engine the subscriber needs.
type Publisher interface {
	Publish(ctx context.Context, kind domain.EventKind, payload domain.Payload)
}

// Envelope is the wire format published on the event subjects.
type Envelope struct {
	Kind    domain.EventKind `json:"kind"`
	Payload domain.Payload   `json:"payload"`
}

// NATSSource subscribes to a subject tree and republishes every decoded
// event into the engine.
type NATSSource struct {
	conn    *nats.Conn
	subject string
	pub     Publisher
	logger  *zap.Logger
	sub     *nats.Subscription
}

// Connect dials the NATS server with reconnect behaviour suited to a
// long-running service.
func Connect(url, subject string, pub Publisher, logger *zap.Logger) (*NATSSource, error) {
	conn, err := nats.Connect(url,
		nats.Name("notify-fabric"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}

	return &NATSSource{
		conn:    conn,
		subject: subject,
		pub:     pub,
		logger:  logger,
	}, nil
}

// Start subscribes to the configured subject tree. Malformed messages are
// logged and dropped; an event bus hiccup must never take the engine down.
func (s *NATSSource) Start(ctx context.Context) error {
	sub, err := s.conn.Subscribe(s.subject, func(msg *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			s.logger.Warn("dropping malformed event envelope",
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
			return
		}
		s.pub.Publish(ctx, env.Kind, env.Payload)
	})
	if err != nil {
		return err
	}

	s.sub = sub
	s.logger.Info("subscribed to event subject", zap.String("subject", s.subject))
	return nil
}

// Close drains the subscription and closes the connection.
func (s *NATSSource) Close() {
	if s.sub != nil {
		_ = s.sub.Drain()
	}
	s.conn.Close()
}
