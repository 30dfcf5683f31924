package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/catalogizer/medialibrary/db"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestConn(t *testing.T) (*db.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db.WrapDB(sqlDB, db.DialectSQLite), mock
}

func TestRegistryExposesPoolGauges(t *testing.T) {
	conn, _ := newTestConn(t)
	reg := NewRegistry(conn)

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]*dto.MetricFamily{}
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}
	require.Contains(t, byName, "medialibrary_db_open_connections")
	assert.Equal(t, dto.MetricType_GAUGE, byName["medialibrary_db_open_connections"].GetType())
	require.Contains(t, byName, "medialibrary_db_wait_count_total")
	assert.Equal(t, dto.MetricType_COUNTER, byName["medialibrary_db_wait_count_total"].GetType())
}

func TestHealthzReportsDatabaseState(t *testing.T) {
	conn, mock := newTestConn(t)
	reg := NewRegistry(conn)
	router := Router(conn, reg, zap.NewNop())

	mock.ExpectPing()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestMetricsEndpointServesExposition(t *testing.T) {
	conn, _ := newTestConn(t)
	reg := NewRegistry(conn)
	router := Router(conn, reg, zap.NewNop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "medialibrary_db_open_connections")
}
