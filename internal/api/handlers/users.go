package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/officewatch/officewatch/internal/errors"
	"github.com/officewatch/officewatch/internal/registry"
)

// UserStore is the registry surface the user endpoints need.
type UserStore interface {
	ListUsers(ctx context.Context, workspaceID string) ([]registry.User, error)
	GetUser(ctx context.Context, workspaceID, userID string) (*registry.User, error)
	UpsertUser(ctx context.Context, workspaceID string, user *registry.User) error
}

// UserHandler handles user registration endpoints.
type UserHandler struct {
	store       UserStore
	workspaceID string
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewUserHandler creates a new user handler. workspaceID is the default
// partition used when a request doesn't name one.
func NewUserHandler(store UserStore, workspaceID string, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		store:       store,
		workspaceID: workspaceID,
		validate:    validator.New(),
		logger:      logger.With("handler", "users"),
	}
}

// DeviceRequest is one device in a registration payload.
type DeviceRequest struct {
	Type       string `json:"type" validate:"required,oneof=PC iPhone"`
	Name       string `json:"name" validate:"required"`
	MACAddress string `json:"macAddress" validate:"required"`
}

// CreateUserRequest is the registration payload for both creation and edit;
// the stored record is overwritten wholesale either way.
type CreateUserRequest struct {
	ID          string          `json:"id" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	DeviceList  []DeviceRequest `json:"deviceList" validate:"required,min=1,dive"`
	WorkspaceID string          `json:"workspaceId"`
}

// UserResponse wraps a stored user in the shared envelope.
type UserResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	User    *registry.User `json:"user,omitempty"`
}

// UserListResponse is the payload for GET /users.
type UserListResponse struct {
	Status string          `json:"status"`
	Users  []registry.User `json:"users"`
}

// CreateUser handles POST /create-user - validate and persist a user
// record. Validation failures respond 400 with a field-specific message
// before anything is written to the store.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestIDFromContext(r.Context())

	var req CreateUserRequest
	if err := parseJSON(r, &req); err != nil {
		writeErrorStatus(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		writeErrorStatus(w, r, http.StatusBadRequest, validationMessage(err), "")
		return
	}

	workspaceID := req.WorkspaceID
	if workspaceID == "" {
		workspaceID = h.workspaceID
	}

	devices := make(registry.DeviceList, len(req.DeviceList))
	for i, d := range req.DeviceList {
		devices[i] = registry.Device{
			Type:       registry.DeviceType(d.Type),
			Name:       d.Name,
			MACAddress: d.MACAddress,
		}
	}

	user := &registry.User{
		ID:      req.ID,
		Name:    req.Name,
		Devices: devices,
	}

	// Preserve the original creation time on edit
	if existing, err := h.store.GetUser(r.Context(), workspaceID, req.ID); err == nil {
		user.CreatedAt = existing.CreatedAt
	} else if !errors.IsNotFound(err) {
		h.logger.Error("Failed to look up existing user", "request_id", requestID, "error", err)
		writeErrorStatus(w, r, http.StatusInternalServerError,
			"ユーザーの作成に失敗しました", err.Error())
		return
	}

	if err := h.store.UpsertUser(r.Context(), workspaceID, user); err != nil {
		h.logger.Error("Failed to persist user", "request_id", requestID, "error", err)
		writeErrorStatus(w, r, http.StatusInternalServerError,
			"ユーザーの作成に失敗しました", err.Error())
		return
	}

	h.logger.Info("User registered",
		"request_id", requestID, "user_id", req.ID, "devices", len(devices))

	writeJSON(w, r, http.StatusOK, UserResponse{
		Status:  statusSuccess,
		Message: "ユーザーが正常に作成されました",
		User:    user,
	})
}

// ListUsers handles GET /users - list all registered users.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context(), h.workspaceID)
	if err != nil {
		h.logger.Error("Failed to list users", "error", err)
		writeErrorStatus(w, r, http.StatusInternalServerError,
			"ユーザー一覧の取得に失敗しました", err.Error())
		return
	}
	if users == nil {
		users = []registry.User{}
	}
	writeJSON(w, r, http.StatusOK, UserListResponse{Status: statusSuccess, Users: users})
}

// validationMessage maps validator failures onto the registration API's
// field-specific error sentences.
func validationMessage(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return "リクエストの形式が不正です"
	}

	fieldErr := validationErrors[0]

	// Device-level failures carry a DeviceList[...] namespace segment
	if strings.Contains(fieldErr.StructNamespace(), "DeviceList[") {
		if fieldErr.StructField() == "Type" && fieldErr.Tag() == "oneof" {
			return "デバイスタイプは 'PC' または 'iPhone' である必要があります"
		}
		return "各デバイスには type, name, macAddress が必要です"
	}

	return "必須フィールドが不足しています（id, name, deviceList）"
}
