package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/slack-go/slack"
)

// EventDispatcher routes inbound chat event payloads. Satisfied by
// *chat.Dispatcher.
type EventDispatcher interface {
	HandleEventPayload(ctx context.Context, body []byte) (challenge string, err error)
}

// SlackHandler handles the inbound Slack Events API endpoint.
type SlackHandler struct {
	dispatcher    EventDispatcher
	signingSecret string
	logger        *slog.Logger
}

// NewSlackHandler creates a new Slack events handler. An empty
// signingSecret disables request signature verification; only do that in
// local development.
func NewSlackHandler(dispatcher EventDispatcher, signingSecret string, logger *slog.Logger) *SlackHandler {
	return &SlackHandler{
		dispatcher:    dispatcher,
		signingSecret: signingSecret,
		logger:        logger.With("handler", "slack"),
	}
}

// Events handles POST /slack/events. The request signature is verified
// against the signing secret before anything is parsed; a mention triggers
// a privileged network scan, so unauthenticated posts must not reach the
// dispatcher. URL-verification challenges are echoed back; other events are
// forwarded to the dispatcher and acknowledged immediately - any presence
// pipeline they trigger runs detached.
func (h *SlackHandler) Events(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeErrorStatus(w, r, http.StatusBadRequest, "failed to read event body", "")
		return
	}

	if h.signingSecret != "" {
		if err := h.verifySignature(r.Header, body); err != nil {
			h.logger.Warn("Rejected event with invalid signature",
				"request_id", getRequestIDFromContext(r.Context()), "error", err)
			writeErrorStatus(w, r, http.StatusUnauthorized, "invalid request signature", "")
			return
		}
	}

	challenge, err := h.dispatcher.HandleEventPayload(r.Context(), body)
	if err != nil {
		h.logger.Error("Event dispatch failed",
			"request_id", getRequestIDFromContext(r.Context()), "error", err)
		writeErrorStatus(w, r, http.StatusBadRequest, "unprocessable event payload", err.Error())
		return
	}

	if challenge != "" {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(challenge))
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("OK"))
}

// verifySignature checks the X-Slack-Signature HMAC over the raw body.
func (h *SlackHandler) verifySignature(header http.Header, body []byte) error {
	verifier, err := slack.NewSecretsVerifier(header, h.signingSecret)
	if err != nil {
		return err
	}
	if _, err := verifier.Write(body); err != nil {
		return err
	}
	return verifier.Ensure()
}
