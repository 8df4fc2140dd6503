// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package export

// Artifact is the terminal object returned to the HTTP boundary: a named
// file body with its media type. Every pipeline outcome produces one; the
// failure paths produce a diagnostic text artifact via NewErrorArtifact, so
// the boundary never has to handle an absent file.
type Artifact struct {
	// Filename is the complete download filename, extension included.
	Filename string

	// Content is the file body. Never empty for artifacts built by this
	// package.
	Content []byte

	// MediaType is the content type of the body.
	MediaType string

	// Diagnostic marks artifacts produced by a failure path.
	Diagnostic bool
}

// errorArtifactFilename names the diagnostic text file substituted on
// failure paths.
const errorArtifactFilename = "export_error.txt"

// NewErrorArtifact builds the diagnostic artifact carrying a human-readable
// failure message. The content is never empty: a blank message is replaced
// with a generic one so the response body always holds a valid file.
func NewErrorArtifact(message string) Artifact {
	if message == "" {
		message = "There was an error retrieving the export file"
	}
	return Artifact{
		Filename:   errorArtifactFilename,
		Content:    []byte(message),
		MediaType:  "text/plain",
		Diagnostic: true,
	}
}
