// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/geocollab/internal/config"
)

func testManager(t *testing.T) *JWTManager {
	t.Helper()
	manager, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      strings.Repeat("k", 32),
		SessionTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	return manager
}

func TestNewJWTManagerRequiresSecret(t *testing.T) {
	_, err := NewJWTManager(&config.SecurityConfig{JWTSecret: ""})
	if err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	manager := testManager(t)

	token, err := manager.GenerateToken("responder1")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Username != "responder1" {
		t.Errorf("expected username responder1, got %q", claims.Username)
	}
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	manager := testManager(t)

	token, err := manager.GenerateToken("responder1")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := manager.ValidateToken(tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	manager, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      strings.Repeat("k", 32),
		SessionTimeout: -time.Minute,
	})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	token, err := manager.GenerateToken("responder1")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := manager.ValidateToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestAuthenticateMiddleware(t *testing.T) {
	manager := testManager(t)
	token, err := manager.GenerateToken("responder1")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	var gotUsername string
	handler := Authenticate(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUsername, _ = UsernameFromContext(r.Context())
	}))

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantUser   string
	}{
		{"valid token", "Bearer " + token, http.StatusOK, "responder1"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"malformed header", "Token abc", http.StatusUnauthorized, ""},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUsername = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status: expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if gotUsername != tt.wantUser {
				t.Errorf("username: expected %q, got %q", tt.wantUser, gotUsername)
			}
		})
	}
}
