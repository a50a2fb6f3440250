package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/officewatch/officewatch/internal/errors"
	"github.com/officewatch/officewatch/internal/netscan"
	"github.com/officewatch/officewatch/internal/presence"
	"github.com/officewatch/officewatch/internal/registry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeChecker struct {
	result   *presence.Result
	err      error
	triggers []string
}

func (f *fakeChecker) Check(_ context.Context, trigger string) (*presence.Result, error) {
	f.triggers = append(f.triggers, trigger)
	return f.result, f.err
}

func TestCheckHandlerSuccess(t *testing.T) {
	checker := &fakeChecker{result: &presence.Result{
		PresentUsers: []registry.User{{ID: "U1", Name: "田中"}},
		Observations: []netscan.Observation{
			{IP: "192.168.1.10", MAC: "aa:bb:cc:dd:ee:ff"},
		},
	}}
	h := NewPresenceHandler(checker, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/check", nil)
	rec := httptest.NewRecorder()
	h.Check(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"http"}, checker.triggers)

	var resp CheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "オフィスにいるのは：田中", resp.Message)
	require.Len(t, resp.PresentUsers, 1)
	assert.Equal(t, "U1", resp.PresentUsers[0].ID)
	require.Len(t, resp.ConnectedDevices, 1)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", resp.ConnectedDevices[0].MAC)
}

func TestCheckHandlerNobodyPresent(t *testing.T) {
	checker := &fakeChecker{result: &presence.Result{}}
	h := NewPresenceHandler(checker, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/check", nil)
	rec := httptest.NewRecorder()
	h.Check(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	var resp CheckResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, "誰もオフィスにいません", resp.Message)

	// Empty sets must serialize as [] rather than null
	assert.Contains(t, body, `"presentUsers":[]`)
	assert.Contains(t, body, `"connectedDevices":[]`)
}

func TestCheckHandlerScanFailure(t *testing.T) {
	scanErr := errors.ErrScanFailed("en0", "arp-scan: pcap_open_live failed", fmt.Errorf("exit status 1"))
	checker := &fakeChecker{err: scanErr}
	h := NewPresenceHandler(checker, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/check", nil)
	rec := httptest.NewRecorder()
	h.Check(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "デバイスリストの取得に失敗しました", resp.Message)
	assert.Equal(t, "arp-scan: pcap_open_live failed", resp.Error)
}

func TestCheckHandlerGenericFailure(t *testing.T) {
	checker := &fakeChecker{err: fmt.Errorf("registry down")}
	h := NewPresenceHandler(checker, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/check", nil)
	rec := httptest.NewRecorder()
	h.Check(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "registry down", resp.Error)
}
