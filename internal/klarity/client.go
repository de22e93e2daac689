// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package klarity is the HTTP client for the Klarity transcription service.
// It issues the authenticated notes fetch and classifies every failure into
// an Error kind the rest of the program can act on.
package klarity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/arbaaz/klarity-sync/pkg/types"
)

// notesEndpoint is the Klarity notes listing endpoint. Declared as a var so
// tests can substitute an httptest server.
var notesEndpoint = "https://api.klarity.so/v1/notes"

// ErrNoKey is the configuration failure for an absent API key. Exported so
// the orchestrator can skip a cycle with the same message the client gives.
var ErrNoKey = &Error{Kind: KindConfiguration, Message: "no API key configured; set one with 'klarity-sync config set api_key'"}

const userAgent = "klarity-sync/0.1"

// MinKeyLength is the shortest plausible Klarity API key. Shorter values are
// rejected before any network traffic.
const MinKeyLength = 32

// FetchNotes retrieves the full note set for apiKey. The key is validated
// first: an empty or implausibly short key fails with KindConfiguration and
// zero requests on the wire. Any other failure comes back as an *Error whose
// kind follows the response status, with malformed 200 bodies and transport
// errors classified separately.
func FetchNotes(ctx context.Context, client *http.Client, apiKey string) ([]types.Note, error) {
	if apiKey == "" {
		return nil, ErrNoKey
	}
	if len(apiKey) < MinKeyLength {
		return nil, &Error{Kind: KindConfiguration, Message: "API key looks invalid (shorter than 32 characters)"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, notesEndpoint, nil)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: "building notes request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	// A failed fetch is final for the cycle; the next trigger tries again.
	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: "cannot reach the Klarity service", Err: err}
	}
	defer resp.Body.Close()

	// First match wins; 401/403 must not be mistaken for a generic status.
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &Error{Kind: KindAuthentication, Message: "Klarity rejected the API key; check it in settings"}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &Error{Kind: KindEndpoint, Message: "notes endpoint not found; the service may have moved or be unavailable"}
	case resp.StatusCode >= 500:
		return nil, &Error{Kind: KindServer, Message: fmt.Sprintf("Klarity server error (HTTP %d); try again later", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, &Error{Kind: KindUnexpectedStatus, Message: fmt.Sprintf("unexpected HTTP %d from Klarity", resp.StatusCode)}
	}

	var envelope notesResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &Error{Kind: KindMalformedResponse, Message: "Klarity returned an unreadable response", Err: err}
	}
	if len(envelope.Notes) == 0 || string(envelope.Notes) == "null" {
		return nil, &Error{Kind: KindMalformedResponse, Message: "Klarity response carries no notes list"}
	}

	var notes []types.Note
	if err := json.Unmarshal(envelope.Notes, &notes); err != nil {
		return nil, &Error{Kind: KindMalformedResponse, Message: "Klarity notes list has the wrong shape", Err: err}
	}
	return notes, nil
}

// Klarity API JSON structures. Notes stays raw until the envelope shape is
// known good, so an absent key and an empty list are told apart.
type notesResponse struct {
	Notes json.RawMessage `json:"notes"`
}
