package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/officewatch/officewatch/internal/netscan"
	"github.com/officewatch/officewatch/internal/presence"
	"github.com/officewatch/officewatch/internal/registry"
)

// PresenceChecker runs one presence check. Satisfied by *presence.Service.
type PresenceChecker interface {
	Check(ctx context.Context, trigger string) (*presence.Result, error)
}

// PresenceHandler handles the presence check endpoint.
type PresenceHandler struct {
	checker PresenceChecker
	logger  *slog.Logger
}

// NewPresenceHandler creates a new presence handler.
func NewPresenceHandler(checker PresenceChecker, logger *slog.Logger) *PresenceHandler {
	return &PresenceHandler{
		checker: checker,
		logger:  logger.With("handler", "presence"),
	}
}

// CheckResponse is the payload for a successful presence check.
type CheckResponse struct {
	Status           string                `json:"status"`
	Message          string                `json:"message"`
	PresentUsers     []registry.User       `json:"presentUsers"`
	ConnectedDevices []netscan.Observation `json:"connectedDevices"`
}

// Check handles GET /check - run the scan pipeline and report who is in
// the office. This call blocks for the full double-scan cycle.
func (h *PresenceHandler) Check(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestIDFromContext(r.Context())
	h.logger.Info("Presence check requested", "request_id", requestID)

	result, err := h.checker.Check(r.Context(), "http")
	if err != nil {
		h.logger.Error("Presence check failed", "request_id", requestID, "error", err)
		writeErrorStatus(w, r, http.StatusInternalServerError,
			presence.CheckFailedMessage(), errorDetail(err))
		return
	}

	// Empty slices serialize as [], not null
	users := result.PresentUsers
	if users == nil {
		users = []registry.User{}
	}
	devices := result.Observations
	if devices == nil {
		devices = []netscan.Observation{}
	}

	writeJSON(w, r, http.StatusOK, CheckResponse{
		Status:           statusSuccess,
		Message:          result.Message(),
		PresentUsers:     users,
		ConnectedDevices: devices,
	})
}

// errorDetail surfaces the most specific diagnostic for the error payload:
// scanner stderr when the subprocess failed, the error text otherwise.
func errorDetail(err error) string {
	type detailer interface{ Detail() string }
	if d, ok := err.(detailer); ok {
		return d.Detail()
	}
	return err.Error()
}
