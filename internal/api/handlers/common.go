// Package handlers provides HTTP request handlers for the officewatch API.
// This file contains common utilities shared across all handlers.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"log/slog"
)

// ContextKey represents a context key type.
type ContextKey string

// RequestIDKey is the context key carrying the per-request id set by the
// server middleware.
const RequestIDKey ContextKey = "request_id"

// StatusResponse is the envelope every officewatch endpoint shares.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

// getRequestIDFromContext extracts request ID from context.
func getRequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return "unknown"
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log error but don't try to write another response
		requestID := getRequestIDFromContext(r.Context())
		slog.Error("Failed to encode JSON response",
			"request_id", requestID,
			"error", err)
	}
}

// writeErrorStatus writes the shared error envelope.
func writeErrorStatus(w http.ResponseWriter, r *http.Request, statusCode int, message, detail string) {
	writeJSON(w, r, statusCode, StatusResponse{
		Status:  statusError,
		Message: message,
		Error:   detail,
	})
}

// parseJSON parses a JSON request body into the provided destination.
func parseJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("request body is empty")
	}

	// Bound request size; registration payloads are tiny
	const maxRequestSize = 1 << 20
	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestSize)

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// nowUTC exists so response timestamps are uniform across handlers.
func nowUTC() time.Time {
	return time.Now().UTC()
}
