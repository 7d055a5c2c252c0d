package health

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	healthsvc "somosrentable-backend/internal/application/health"
	"somosrentable-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upPinger struct{}

func (upPinger) Ping(context.Context) error { return nil }

func newApp(t *testing.T, db healthsvc.DBPinger) (*fiber.App, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := &Handlers{Checker: &healthsvc.Checker{Rdb: rdb, DB: db}, AdminKey: "ops-key"}
	app := fiber.New()
	app.Get("/reset", h.Reset)
	app.Get("/health/json", h.JSON)
	app.Get("/health/errors", h.Errors)
	return app, rdb
}

func get(t *testing.T, app *fiber.App, path string, out interface{}) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestAdminKeyRequired(t *testing.T) {
	app, _ := newApp(t, upPinger{})
	for _, path := range []string{"/reset", "/reset?key=wrong", "/health/errors", "/health/errors?key="} {
		assert.Equal(t, fiber.StatusForbidden, get(t, app, path, nil), path)
	}
}

func TestResetClearsCounters(t *testing.T) {
	app, rdb := newApp(t, upPinger{})
	ctx := context.Background()
	require.NoError(t, rdb.Set(ctx, middleware.KeyReqTotal, "5", 0).Err())
	require.NoError(t, rdb.LPush(ctx, middleware.KeyErrorLog, `{"message":"x"}`).Err())

	var out map[string]interface{}
	require.Equal(t, fiber.StatusOK, get(t, app, "/reset?key=ops-key", &out))
	assert.Equal(t, "Stats reset successfully", out["message"])

	assert.Zero(t, rdb.Exists(ctx, middleware.KeyReqTotal, middleware.KeyErrorLog).Val())
	assert.Equal(t, int64(1), rdb.Exists(ctx, middleware.KeyStartTime).Val())
}

func TestJSONStatusCode(t *testing.T) {
	app, _ := newApp(t, upPinger{})
	var out map[string]interface{}
	require.Equal(t, fiber.StatusOK, get(t, app, "/health/json", &out))
	assert.Equal(t, "somosrentable-api", out["service"])
	assert.Equal(t, "ok", out["status"])
	assert.Contains(t, out, "traffic")
	assert.Contains(t, out, "runtime")

	down, _ := newApp(t, nil)
	require.Equal(t, fiber.StatusServiceUnavailable, get(t, down, "/health/json", &out))
	assert.Equal(t, "issue", out["status"])
}

func TestErrorsSkipsUnreadableEntries(t *testing.T) {
	app, rdb := newApp(t, upPinger{})
	var out []map[string]interface{}
	require.Equal(t, fiber.StatusOK, get(t, app, "/health/errors?key=ops-key", &out))
	assert.Empty(t, out)

	ctx := context.Background()
	rdb.LPush(ctx, middleware.KeyErrorLog, `{"route":"/api/v1/payments/:id/review","message":"db down"}`)
	rdb.LPush(ctx, middleware.KeyErrorLog, `not json`)
	require.Equal(t, fiber.StatusOK, get(t, app, "/health/errors?key=ops-key", &out))
	require.Len(t, out, 1)
	assert.Equal(t, "db down", out[0]["message"])
}
