package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/hindsight/internal/database"
)

type countingJob struct {
	mu   sync.Mutex
	runs int
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs++
	return j.err
}

func (j *countingJob) runCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func newSystemRouter(t *testing.T, h *SystemHandlers) *chi.Mux {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		h.RegisterRoutes(r)
	})
	return r
}

func newTestDB(t *testing.T, name string) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: database.ProfileCache,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestHandleHealth(t *testing.T) {
	h := NewSystemHandlers(zerolog.Nop(), t.TempDir(), newTestDB(t, "history"), newTestDB(t, "cache"))
	router := newSystemRouter(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/system/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.HistoryDBOK)
	assert.True(t, resp.CacheDBOK)
	assert.Greater(t, resp.Goroutines, 0)
}

func TestHandleHealth_DegradedWithoutDatabases(t *testing.T) {
	h := NewSystemHandlers(zerolog.Nop(), t.TempDir(), nil, nil)
	router := newSystemRouter(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/system/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.False(t, resp.HistoryDBOK)
}

func TestHandleDiskUsage(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "blob.bin"), make([]byte, 1024*1024), 0644))

	h := NewSystemHandlers(zerolog.Nop(), dataDir, nil, nil)
	router := newSystemRouter(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/system/disk", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp DiskUsageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 1.0, resp.DataDirMB, 0.1)
}

func TestHandleTriggerPriceSync(t *testing.T) {
	h := NewSystemHandlers(zerolog.Nop(), t.TempDir(), nil, nil)
	job := &countingJob{}
	h.SetPriceSyncJob(job)
	router := newSystemRouter(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/price-sync", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	// Runs in the background
	require.Eventually(t, func() bool {
		return job.runCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestHandleTriggerPriceSync_Unconfigured(t *testing.T) {
	h := NewSystemHandlers(zerolog.Nop(), t.TempDir(), nil, nil)
	router := newSystemRouter(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/price-sync", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleTriggerPriceSync_JobErrorStillAccepted(t *testing.T) {
	h := NewSystemHandlers(zerolog.Nop(), t.TempDir(), nil, nil)
	job := &countingJob{err: errors.New("upstream down")}
	h.SetPriceSyncJob(job)
	router := newSystemRouter(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/price-sync", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}
