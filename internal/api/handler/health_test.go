package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_Check(t *testing.T) {
	e := NewTestEcho()
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.FixedZone("JST", 9*3600))

	t.Run("依存先なし", func(t *testing.T) {
		h := NewHealthHandler(nil)
		h.now = func() time.Time { return fixed }
		c, rec := newContext(e, http.MethodGet, "/health", "", "")

		require.NoError(t, h.Check(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var got HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "ok", got.Status)
		assert.Equal(t, "2025-06-01T03:00:00Z", got.Timestamp)
		assert.Nil(t, got.Checks)
	})

	t.Run("依存先が落ちていれば503", func(t *testing.T) {
		h := NewHealthHandler(map[string]HealthCheck{
			"database": func(ctx context.Context) error { return nil },
			"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
		})
		c, rec := newContext(e, http.MethodGet, "/health", "", "")

		require.NoError(t, h.Check(c))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var got HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "degraded", got.Status)
		assert.Equal(t, "ok", got.Checks["database"])
		assert.Equal(t, "connection refused", got.Checks["redis"])
	})
}
