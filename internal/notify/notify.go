// Package notify announces completed sync operations on a NATS subject.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alexivanou/geocity-etl/internal/config"
	"github.com/alexivanou/geocity-etl/internal/model"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Notifier publishes sync events
type Notifier interface {
	Publish(ctx context.Context, event model.SyncEvent) error
	Close() error
}

// New returns a NATS publisher, or a no-op notifier when no URL is configured
func New(cfg config.NATSConfig, logger *zap.Logger) (Notifier, error) {
	if cfg.URL == "" {
		return Nop{}, nil
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("geocity-etl"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	return &Publisher{
		prefix:  cfg.SubjectPrefix,
		publish: conn.Publish,
		close: func() error {
			return conn.Drain()
		},
	}, nil
}

// Subject returns the subject an operation's events are published on
func Subject(prefix, operation string) string {
	return prefix + "." + operation
}

// Publisher sends events as JSON to <prefix>.<operation>
type Publisher struct {
	prefix  string
	publish func(subject string, data []byte) error
	close   func() error
}

// Publish sends event. The context is only checked before sending, NATS publishes don't block.
func (p *Publisher) Publish(ctx context.Context, event model.SyncEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode sync event: %w", err)
	}

	subject := Subject(p.prefix, event.Operation)
	if err := p.publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection
func (p *Publisher) Close() error {
	return p.close()
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(context.Context, model.SyncEvent) error { return nil }

func (Nop) Close() error { return nil }
