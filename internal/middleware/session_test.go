package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionApp(rdb *redis.Client) *fiber.App {
	app := fiber.New()
	app.Use(Session(rdb))
	app.Post("/login", func(c *fiber.Ctx) error {
		sid := RegenerateSessionID(c)
		SetSessionUser(c, SessionUser{UserID: "7d3b5e4c-3a43-4f7a-9f0e-2f8f1b8c9a11", Email: "ana@example.com", Role: "investor"})
		return c.SendString(sid)
	})
	app.Get("/me", func(c *fiber.Ctx) error {
		if u := CurrentUser(c); u != nil {
			return c.SendString(u.Email)
		}
		return c.SendStatus(fiber.StatusUnauthorized)
	})
	app.Post("/logout", func(c *fiber.Ctx) error {
		DestroySession(c)
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestSessionRoundTrip(t *testing.T) {
	rdb := newRedis(t)
	app := sessionApp(rdb)

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	sid := body(t, resp)
	require.NotEmpty(t, sid)
	assert.Equal(t, int64(1), rdb.Exists(context.Background(), SessionRedisPrefix+sid).Val())

	for _, cookie := range []string{"s:" + sid, "s:" + sid + ".signature", sid} {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Cookie", SessionCookieName+"="+cookie)
		resp, err = app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", body(t, resp), cookie)
	}

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", SessionCookieName+"=s:unknown")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSessionIgnoresGarbagePayload(t *testing.T) {
	rdb := newRedis(t)
	require.NoError(t, rdb.Set(context.Background(), SessionRedisPrefix+"abc", "{not json", 0).Err())
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", SessionCookieName+"=s:abc")
	resp, err := sessionApp(rdb).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSessionCookieConfig(t *testing.T) {
	ck := SessionCookieConfig(SessionConfig{})
	assert.Equal(t, SessionCookieName, ck.Name)
	assert.True(t, ck.HTTPOnly)
	assert.False(t, ck.Secure)
	assert.Equal(t, fiber.CookieSameSiteLaxMode, ck.SameSite)

	ck = SessionCookieConfig(SessionConfig{AllowCrossSiteDev: true, IsProduction: true})
	assert.Equal(t, fiber.CookieSameSiteNoneMode, ck.SameSite)
	assert.True(t, ck.Secure)
}

func TestTracingPropagatesID(t *testing.T) {
	app := fiber.New()
	app.Use(Tracing())
	app.Get("/", func(c *fiber.Ctx) error {
		assert.NotNil(t, zerolog.Ctx(c.UserContext()))
		return c.SendString(GetTraceID(c))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	generated := resp.Header.Get(traceIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, body(t, resp))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(traceIDHeader, "leadfeed-42a7c1")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "leadfeed-42a7c1", resp.Header.Get(traceIDHeader))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(traceIDHeader, "bad id with spaces")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.NotEqual(t, "bad id with spaces", resp.Header.Get(traceIDHeader))
}

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(CORSConfig{
		AllowedOrigins: []string{"https://somosrentable.cl/", " "},
		PreviewSuffix:  "-somosrentable.vercel.app",
	}))
	app.Get("/", ok)

	origin := func(o string) string {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", o)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.Header.Get("Access-Control-Allow-Origin")
	}
	assert.Equal(t, "https://somosrentable.cl", origin("https://somosrentable.cl"))
	assert.Equal(t, "https://pr-12-somosrentable.vercel.app", origin("https://pr-12-somosrentable.vercel.app"))
	assert.Empty(t, origin("https://evil.example.com"))
}

func TestHealthMarkerCounts(t *testing.T) {
	rdb := newRedis(t)
	app := fiber.New()
	app.Use(HealthMarker(rdb))
	app.Get("/api/v1/reservations/:token", ok)
	app.Get("/api/v1/fail", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusBadGateway) })
	app.Get("/health/json", ok)

	for _, p := range []string{"/api/v1/reservations/secret-token", "/api/v1/fail", "/health/json"} {
		_, err := app.Test(httptest.NewRequest("GET", p, nil))
		require.NoError(t, err)
	}
	ctx := context.Background()
	total, _ := rdb.Get(ctx, KeyReqTotal).Int()
	failed, _ := rdb.Get(ctx, KeyReqErrors).Int()
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, failed)

	last, err := rdb.Get(ctx, KeyLastReq).Result()
	require.NoError(t, err)
	assert.Contains(t, last, "/api/v1/fail")
	assert.NotContains(t, last, "secret-token")
}
