package registry

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/officewatch/officewatch/internal/errors"
	"github.com/officewatch/officewatch/internal/metrics"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(sqlx.NewDb(db, "sqlmock")), mock
}

func userColumns() []string {
	return []string{"user_id", "display_name", "devices", "created_at", "updated_at"}
}

func TestListUsers(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(userColumns()).
		AddRow("U1", "田中", []byte(`[{"type":"PC","name":"MacBook","macAddress":"aa:bb:cc:dd:ee:ff"}]`), now, now).
		AddRow("U2", "鈴木", []byte(`[]`), now, now)

	mock.ExpectQuery("SELECT user_id, display_name, devices, created_at, updated_at").
		WithArgs("W1").
		WillReturnRows(rows)

	users, err := store.ListUsers(context.Background(), "W1")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "U1", users[0].ID)
	assert.Equal(t, "田中", users[0].Name)
	require.Len(t, users[0].Devices, 1)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", users[0].Devices[0].MACAddress)
	assert.Equal(t, DeviceTypePC, users[0].Devices[0].Type)
	assert.Empty(t, users[1].Devices)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsersEmpty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT user_id, display_name, devices").
		WithArgs("W1").
		WillReturnRows(sqlmock.NewRows(userColumns()))

	users, err := store.ListUsers(context.Background(), "W1")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestListUsersQueryError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT user_id, display_name, devices").
		WithArgs("W1").
		WillReturnError(fmt.Errorf("connection reset"))

	_, err := store.ListUsers(context.Background(), "W1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeRegistryQuery))
	assert.NotContains(t, err.Error(), "connection reset", "raw database error must not leak")
}

func TestGetUser(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT user_id, display_name, devices").
		WithArgs("W1", "U1").
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow("U1", "田中", []byte(`[]`), now, now))

	user, err := store.GetUser(context.Background(), "W1", "U1")
	require.NoError(t, err)
	assert.Equal(t, "U1", user.ID)
}

func TestGetUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT user_id, display_name, devices").
		WithArgs("W1", "nope").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetUser(context.Background(), "W1", "nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestUpsertUser(t *testing.T) {
	store, mock := newMockStore(t)

	user := &User{
		ID:   "U1",
		Name: "田中",
		Devices: DeviceList{
			{Type: DeviceTypeIPhone, Name: "iPhone 15", MACAddress: "aa:bb:cc:dd:ee:ff"},
		},
	}

	mock.ExpectExec("INSERT INTO users").
		WithArgs("W1", "U1", "田中", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpsertUser(context.Background(), "W1", user))
	assert.False(t, user.CreatedAt.IsZero())
	assert.False(t, user.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertUserPreservesCreatedAt(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	user := &User{ID: "U1", Name: "田中", CreatedAt: created}

	mock.ExpectExec("INSERT INTO users").
		WithArgs("W1", "U1", "田中", sqlmock.AnyArg(), created, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpsertUser(context.Background(), "W1", user))
	assert.Equal(t, created, user.CreatedAt)
	assert.True(t, user.UpdatedAt.After(created))
}

func TestDeleteUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM users").
		WithArgs("W1", "U1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.DeleteUser(context.Background(), "W1", "U1"))
}

func TestDeleteUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM users").
		WithArgs("W1", "nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteUser(context.Background(), "W1", "nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestMigrate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.Migrate(context.Background()))
}

func TestSanitizeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode errors.ErrorCode
	}{
		{"unique violation", &pq.Error{Code: "23505"}, errors.CodeConflict},
		{"not null violation", &pq.Error{Code: "23502"}, errors.CodeValidation},
		{"check violation", &pq.Error{Code: "23514"}, errors.CodeValidation},
		{"query canceled", &pq.Error{Code: "57014"}, errors.CodeCanceled},
		{"connection failure", &pq.Error{Code: "08006"}, errors.CodeRegistryConnection},
		{"other pq error", &pq.Error{Code: "42601"}, errors.CodeRegistryQuery},
		{"plain error", fmt.Errorf("boom"), errors.CodeRegistryQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeError("test_op", tt.err)
			assert.True(t, errors.IsCode(got, tt.wantCode),
				"got code %v", errors.GetCode(got))
		})
	}

	assert.NoError(t, sanitizeError("test_op", nil))
}

func counterValue(reg *metrics.Registry, name, operation, status string) float64 {
	for _, m := range reg.GetMetrics() {
		if m.Name == name && m.Labels["operation"] == operation && m.Labels["status"] == status {
			return m.Value
		}
	}
	return 0
}

func TestQueryMetricsRecorded(t *testing.T) {
	reg := metrics.NewRegistry()
	prev := metrics.Default()
	metrics.SetDefault(reg)
	t.Cleanup(func() { metrics.SetDefault(prev) })

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT user_id, display_name, devices").
		WithArgs("W1").
		WillReturnRows(sqlmock.NewRows(userColumns()))
	mock.ExpectExec("DELETE FROM users").
		WithArgs("W1", "U1").
		WillReturnError(fmt.Errorf("boom"))

	_, err := store.ListUsers(context.Background(), "W1")
	require.NoError(t, err)
	require.Error(t, store.DeleteUser(context.Background(), "W1", "U1"))

	assert.Equal(t, 1.0, counterValue(reg, metrics.MetricRegistryQueries, "list_users", "success"))
	assert.Equal(t, 1.0, counterValue(reg, metrics.MetricRegistryQueries, "delete_user", "error"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
