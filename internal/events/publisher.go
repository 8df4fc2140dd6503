// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

/*
publisher.go - Export event publisher

Publishes export.completed events over NATS via Watermill. Publishing is a
side channel of the export pipeline: the service treats every publish as
best-effort and never lets a broker failure reach the HTTP response.
*/

package events

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/google/uuid"

	"github.com/tomtom215/geocollab/internal/config"
	"github.com/tomtom215/geocollab/internal/export"
	"github.com/tomtom215/geocollab/internal/logging"
)

// Publisher sends export lifecycle events to NATS. Implements
// export.EventPublisher.
type Publisher struct {
	publisher message.Publisher
	topic     string

	mu     sync.RWMutex
	closed bool
}

var _ export.EventPublisher = (*Publisher)(nil)

// NewPublisher connects a Watermill NATS publisher using the configured
// reconnection policy. Core NATS publish semantics; stream provisioning is
// an operator concern.
func NewPublisher(cfg *config.NATSConfig) (*Publisher, error) {
	logger := newWatermillLogger()

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled: true,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return &Publisher{
		publisher: pub,
		topic:     cfg.Topic,
	}, nil
}

// PublishExportCompleted serializes and publishes an export completion
// event to the configured topic.
func (p *Publisher) PublishExportCompleted(ctx context.Context, event export.ExportCompletedEvent) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return fmt.Errorf("publisher is closed")
	}

	msg, err := buildMessage(event)
	if err != nil {
		return err
	}

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish export completed event: %w", err)
	}

	logging.Ctx(ctx).Debug().
		Str("topic", p.topic).
		Str("layer", event.LayerName).
		Str("format", event.Format).
		Msg("Export completed event published")
	return nil
}

// Close shuts down the publisher. Idempotent.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

// buildMessage serializes an export completion event into a Watermill
// message with routing metadata.
func buildMessage(event export.ExportCompletedEvent) (*message.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("serialize export completed event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), data)
	msg.Metadata.Set("event_type", "export.completed")
	msg.Metadata.Set("format", event.Format)
	msg.Metadata.Set("layer", event.LayerName)
	msg.Metadata.Set("user_id", strconv.Itoa(event.UserID))
	return msg, nil
}
