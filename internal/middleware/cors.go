package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORSConfig lists the web front-ends allowed to call the API with the
// session cookie.
type CORSConfig struct {
	AllowedOrigins []string // exact origins, e.g. https://somosrentable.cl
	PreviewSuffix  string   // preview deploys such as -somosrentable.vercel.app
}

// CORS wraps fiber's cors middleware. Credentials are always allowed, so
// origins are echoed individually and never "*".
func CORS(cfg CORSConfig) fiber.Handler {
	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" && o != "*" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = append(origins, "http://localhost:3000")
	}
	suffix := strings.ToLower(cfg.PreviewSuffix)

	return cors.New(cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowOriginsFunc: func(origin string) bool {
			return suffix != "" && strings.HasSuffix(strings.ToLower(origin), suffix)
		},
		AllowCredentials: true,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Content-Type," + APIKeyHeader,
		ExposeHeaders:    traceIDHeader,
	})
}
