package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatpool_backend/internal/config"
	"seatpool_backend/internal/middleware"
	"seatpool_backend/internal/testutil"
)

type errorBody struct {
	Error struct {
		Code    string                 `json:"code"`
		Domain  string                 `json:"domain"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	db := testutil.NewTestDB(t)
	return SetupRouter(cfg, db, initializeServices(cfg))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestRouter_PoolFullReturnsConflict(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/pools", map[string]any{
		"provider":  "netflix",
		"pool_type": "family",
		"start_at":  "2020-01-01T00:00:00Z",
		"end_at":    "2099-01-01T00:00:00Z",
		"max_seats": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var pool struct {
		ID        string `json:"id"`
		FreeSeats int    `json:"free_seats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pool))
	assert.Equal(t, 1, pool.FreeSeats)

	w = doJSON(t, router, http.MethodPost, "/api/v1/pools/"+pool.ID+"/seats/next", map[string]any{"email": "a@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var seat struct {
		SeatIndex  int    `json:"seat_index"`
		SeatStatus string `json:"seat_status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &seat))
	assert.Equal(t, 1, seat.SeatIndex)
	assert.Equal(t, "assigned", seat.SeatStatus)

	w = doJSON(t, router, http.MethodPost, "/api/v1/pools/"+pool.ID+"/seats/next", map[string]any{"email": "b@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "POOL_FULL", body.Error.Code)
	assert.Equal(t, "pool", body.Error.Domain)
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/pools/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Error.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/subscriptions/missing/renew", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ValidationFailed(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/subscriptions", map[string]any{
		"service_id": "svc-1",
		"client_id":  "client-1",
		"strategy":   "YEARLY",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	assert.Contains(t, body.Error.Details, "strategy")
}

func TestRouter_SubscriptionLifecycle(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/subscriptions", map[string]any{
		"service_id": "svc-1",
		"client_id":  "client-1",
		"strategy":   "MONTHLY",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sub struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
	assert.Equal(t, "active", sub.Status)

	w = doJSON(t, router, http.MethodPost, "/api/v1/subscriptions/"+sub.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/api/v1/subscriptions/"+sub.ID+"/renew", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "INVALID_STATE", body.Error.Code)
	assert.Equal(t, "completed", body.Error.Details["current_status"])

	w = doJSON(t, router, http.MethodGet, "/api/v1/subscriptions/"+sub.ID+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Events []map[string]any `json:"events"`
		Total  int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history.Events, 2)
	assert.Equal(t, 2, history.Total)
	assert.Equal(t, "created", history.Events[0]["type"])
	assert.Equal(t, "completed", history.Events[1]["type"])
}

func TestRouter_HealthAndRequestID(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_SweepEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/sync/sweep", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.EqualValues(t, 0, result["pools_expired"])
}
