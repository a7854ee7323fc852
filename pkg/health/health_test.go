package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passingCheck() CheckFunc {
	return func(_ context.Context) error {
		return nil
	}
}

func failingCheck(msg string) CheckFunc {
	return func(_ context.Context) error {
		return errors.New(msg)
	}
}

func TestLiveEndpoint_AllPassing(t *testing.T) {
	h := New()
	h.AddLivenessCheck("check1", time.Second, passingCheck())
	h.AddLivenessCheck("check2", time.Second, passingCheck())

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	w := httptest.NewRecorder()

	h.LiveEndpoint(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body response
	err := json.NewDecoder(w.Body).Decode(&body)
	require.NoError(t, err)
	assert.Equal(t, "ok", body.Status)
}

func TestLiveEndpoint_FailingCheck(t *testing.T) {
	h := New()
	h.AddLivenessCheck("db", time.Second, failingCheck("connection refused"))

	h.liveness[0].run(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	w := httptest.NewRecorder()

	h.LiveEndpoint(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body response
	err := json.NewDecoder(w.Body).Decode(&body)
	require.NoError(t, err)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["db"])
}

func TestReadyEndpoint_NotReadyByDefault(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, passingCheck())

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()

	h.ReadyEndpoint(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body response
	err := json.NewDecoder(w.Body).Decode(&body)
	require.NoError(t, err)
	assert.Equal(t, "not ready", body.Status)
}

func TestReadyEndpoint_ReadyAndPassing(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, passingCheck())
	h.SetReady(true)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()

	h.ReadyEndpoint(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyEndpoint_SetReadyFalse(t *testing.T) {
	h := New()
	h.SetReady(true)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	h.SetReady(false)

	w2 := httptest.NewRecorder()
	h.ReadyEndpoint(w2, req)
	assert.Equal(t, http.StatusServiceUnavailable, w2.Code)
}

func TestReadyEndpoint_OneFailingCheck(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, passingCheck())
	h.AddReadinessCheck("catalog", time.Second, failingCheck("catalog empty scan failed"))
	h.SetReady(true)

	h.readiness[1].run(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()

	h.ReadyEndpoint(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body response
	err := json.NewDecoder(w.Body).Decode(&body)
	require.NoError(t, err)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "ok", body.Checks["db"])
	assert.Equal(t, "catalog empty scan failed", body.Checks["catalog"])
}

func TestStartStop(t *testing.T) {
	var mu sync.Mutex
	runs := 0

	h := New()
	h.AddLivenessCheck("counter", time.Second, func(_ context.Context) error {
		mu.Lock()
		runs++
		mu.Unlock()
		return nil
	})

	h.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	h.Stop()

	mu.Lock()
	defer mu.Unlock()
	// Ran once immediately plus at least one tick.
	assert.GreaterOrEqual(t, runs, 2)
}

func TestStopWithoutStart(t *testing.T) {
	h := New()
	h.Stop() // must not panic
}

func TestConcurrentAccess(t *testing.T) {
	h := New()
	h.AddLivenessCheck("flaky", time.Second, failingCheck("err"))
	h.AddReadinessCheck("db", time.Second, passingCheck())
	h.SetReady(true)

	h.Start(context.Background(), 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				req := httptest.NewRequest(http.MethodGet, "/livez", nil)
				h.LiveEndpoint(httptest.NewRecorder(), req)

				req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
				h.ReadyEndpoint(httptest.NewRecorder(), req)
			}
		}()
	}
	wg.Wait()
	h.Stop()
}

func TestGoroutineCountCheck(t *testing.T) {
	check := GoroutineCountCheck(100000)
	assert.NoError(t, check(context.Background()))

	check = GoroutineCountCheck(0)
	err := check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many goroutines")
}

func TestCatalogCheck_EmptyCatalog(t *testing.T) {
	check := CatalogCheck(
		func(_ context.Context) (int64, error) { return 0, nil },
		func(_ context.Context) error { return errors.New("should not be called") },
	)
	assert.NoError(t, check(context.Background()))
}

func TestCatalogCheck_LatestFetched(t *testing.T) {
	fetched := false
	check := CatalogCheck(
		func(_ context.Context) (int64, error) { return 3, nil },
		func(_ context.Context) error {
			fetched = true
			return nil
		},
	)
	require.NoError(t, check(context.Background()))
	assert.True(t, fetched)
}

func TestCatalogCheck_CountError(t *testing.T) {
	check := CatalogCheck(
		func(_ context.Context) (int64, error) { return 0, errors.New("db down") },
		func(_ context.Context) error { return nil },
	)
	err := check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count listings")
}

func TestCatalogCheck_LatestError(t *testing.T) {
	check := CatalogCheck(
		func(_ context.Context) (int64, error) { return 5, nil },
		func(_ context.Context) error { return errors.New("scan failed") },
	)
	err := check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch latest listing")
}
