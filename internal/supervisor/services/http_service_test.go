// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

// mockServer implements HTTPServer with controllable behavior.
type mockServer struct {
	listenErr  error
	shutdownCh chan struct{}
	shutdowns  atomic.Int32
}

func newMockServer() *mockServer {
	return &mockServer{shutdownCh: make(chan struct{})}
}

func (m *mockServer) ListenAndServe() error {
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.shutdownCh
	return http.ErrServerClosed
}

func (m *mockServer) Shutdown(_ context.Context) error {
	m.shutdowns.Add(1)
	close(m.shutdownCh)
	return nil
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	server := newMockServer()
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Give the serve goroutine a moment to start listening.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop after cancellation")
	}

	if got := server.shutdowns.Load(); got != 1 {
		t.Fatalf("Shutdown called %d times, want 1", got)
	}
}

func TestHTTPServerServiceListenFailure(t *testing.T) {
	server := newMockServer()
	server.listenErr = errors.New("address already in use")
	svc := NewHTTPServerService(server, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, server.listenErr) {
		t.Fatalf("expected listen error, got %v", err)
	}
}

func TestHTTPServerServiceName(t *testing.T) {
	svc := NewHTTPServerService(newMockServer(), 0)
	if svc.String() != "http-server" {
		t.Fatalf("String() = %q", svc.String())
	}
}

type mockCloser struct {
	closed atomic.Int32
	err    error
}

func (m *mockCloser) Close() error {
	m.closed.Add(1)
	return m.err
}

func TestPublisherServiceClosesOnShutdown(t *testing.T) {
	closer := &mockCloser{}
	svc := NewPublisherService(closer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop after cancellation")
	}

	if got := closer.closed.Load(); got != 1 {
		t.Fatalf("Close called %d times, want 1", got)
	}
}

func TestPublisherServiceSurfacesCloseError(t *testing.T) {
	closer := &mockCloser{err: errors.New("flush failed")}
	svc := NewPublisherService(closer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Serve(ctx)
	if err == nil || !errors.Is(err, closer.err) {
		t.Fatalf("expected close error, got %v", err)
	}
}
