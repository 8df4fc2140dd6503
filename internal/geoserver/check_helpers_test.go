// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package geoserver

import "testing"

// Test assertion helpers with "check" prefix.
// Using t.Helper() ensures error messages point to the calling line.

func checkStringEqual(t *testing.T, fieldName, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %q, got %q", fieldName, want, got)
	}
}

func checkNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func checkError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func checkTrue(t *testing.T, fieldName string, value bool) {
	t.Helper()
	if !value {
		t.Errorf("%s: expected true", fieldName)
	}
}

func checkFalse(t *testing.T, fieldName string, value bool) {
	t.Helper()
	if value {
		t.Errorf("%s: expected false", fieldName)
	}
}
