package handler

import (
	"net/http"
	"sync"

	"somosrentable-backend/bootstrap"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog/log"
)

var (
	once    sync.Once
	handler http.HandlerFunc
	initErr error
)

// Handler is the serverless entry point; vercel.json rewrites every path here.
// The app is built on the first request of a cold start. A failed build is
// answered with 503 on every request instead of crashing the function.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		app, err := bootstrap.New()
		if err != nil {
			initErr = err
			log.Error().Err(err).Msg("api bootstrap failed")
			return
		}
		handler = adaptor.FiberApp(app)
	})
	if initErr != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"error","error":{"message":"Service unavailable","statusCode":503}}`))
		return
	}
	r.RequestURI = r.URL.String()
	handler(w, r)
}
