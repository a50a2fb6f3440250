package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// FormHandler serves the static user registration form.
type FormHandler struct {
	templatesDir string
	logger       *slog.Logger
}

// NewFormHandler creates a handler serving templates from dir.
func NewFormHandler(templatesDir string, logger *slog.Logger) *FormHandler {
	return &FormHandler{
		templatesDir: templatesDir,
		logger:       logger.With("handler", "form"),
	}
}

// Register handles GET /register - serve the registration form page.
func (h *FormHandler) Register(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(h.templatesDir, "user-form.html")
	content, err := os.ReadFile(path) //nolint:gosec // path comes from config, not user input
	if err != nil {
		h.logger.Error("Failed to read registration form", "path", path, "error", err)
		http.Error(w, "ユーザーフォームの読み込みに失敗しました", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(content)
}
