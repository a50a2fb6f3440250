package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/officewatch/officewatch/internal/config"
	"github.com/officewatch/officewatch/internal/errors"
	"github.com/officewatch/officewatch/internal/presence"
	"github.com/officewatch/officewatch/internal/registry"
)

type fakeChecker struct {
	result *presence.Result
	err    error
}

func (f *fakeChecker) Check(context.Context, string) (*presence.Result, error) {
	return f.result, f.err
}

type fakeStore struct {
	users []registry.User
}

func (f *fakeStore) ListUsers(context.Context, string) ([]registry.User, error) {
	return f.users, nil
}

func (f *fakeStore) GetUser(_ context.Context, _, userID string) (*registry.User, error) {
	for i := range f.users {
		if f.users[i].ID == userID {
			return &f.users[i], nil
		}
	}
	return nil, errors.ErrUserNotFound(userID)
}

func (f *fakeStore) UpsertUser(_ context.Context, _ string, user *registry.User) error {
	f.users = append(f.users, *user)
	return nil
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }

type fakeDispatcher struct {
	challenge string
}

func (f *fakeDispatcher) HandleEventPayload(context.Context, []byte) (string, error) {
	return f.challenge, nil
}

func newTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.API.TemplatesDir = t.TempDir()
	return New(cfg, deps)
}

func TestRoutes(t *testing.T) {
	deps := Deps{
		Checker:    &fakeChecker{result: &presence.Result{}},
		Store:      &fakeStore{},
		Pinger:     &fakePinger{},
		Dispatcher: &fakeDispatcher{},
	}
	server := newTestServer(t, deps)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"check", http.MethodGet, "/check", "", http.StatusOK},
		{"users", http.MethodGet, "/users", "", http.StatusOK},
		{"slack events", http.MethodPost, "/slack/events", `{"type":"event_callback"}`, http.StatusOK},
		{"liveness", http.MethodGet, "/healthz", "", http.StatusOK},
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"index", http.MethodGet, "/", "", http.StatusOK},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound},
		{"wrong method", http.MethodPost, "/check", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = httptest.NewRequest(tt.method, tt.path, nil)
			}
			rec := httptest.NewRecorder()
			server.GetRouter().ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRequestIDHeader(t *testing.T) {
	server := newTestServer(t, Deps{
		Checker: &fakeChecker{result: &presence.Result{}},
		Store:   &fakeStore{},
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.GetRouter().ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDPreserved(t *testing.T) {
	server := newTestServer(t, Deps{Store: &fakeStore{}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")
	rec := httptest.NewRecorder()
	server.GetRouter().ServeHTTP(rec, req)

	assert.Equal(t, "client-supplied-id", rec.Header().Get("X-Request-ID"))
}

func TestServiceIndex(t *testing.T) {
	server := newTestServer(t, Deps{Store: &fakeStore{}})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	server.GetRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "officewatch", resp["service"])
	assert.Contains(t, resp, "endpoints")
}

func TestHealthDegradedRegistry(t *testing.T) {
	server := newTestServer(t, Deps{
		Store:  &fakeStore{},
		Pinger: &fakePinger{err: context.DeadlineExceeded},
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.GetRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSlackRouteAbsentWithoutDispatcher(t *testing.T) {
	server := newTestServer(t, Deps{Store: &fakeStore{}})

	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	server.GetRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	server := newTestServer(t, Deps{Store: &fakeStore{}})
	server.GetRouter().HandleFunc("/panic", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	rec := httptest.NewRecorder()
	server.GetRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
