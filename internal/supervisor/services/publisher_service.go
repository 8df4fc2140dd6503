// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package services

import (
	"context"
	"fmt"
	"io"
)

// PublisherService ties the export event publisher's lifetime to the
// supervisor tree: it parks until shutdown and then closes the underlying
// broker connection. Reconnection during operation is handled inside the
// publisher itself.
type PublisherService struct {
	closer io.Closer
	name   string
}

// NewPublisherService wraps a closeable publisher as a supervised service.
func NewPublisherService(closer io.Closer) *PublisherService {
	return &PublisherService{
		closer: closer,
		name:   "event-publisher",
	}
}

// Serve implements suture.Service.
func (p *PublisherService) Serve(ctx context.Context) error {
	<-ctx.Done()

	if err := p.closer.Close(); err != nil {
		return fmt.Errorf("event publisher close failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer; suture uses it in log messages.
func (p *PublisherService) String() string {
	return p.name
}
