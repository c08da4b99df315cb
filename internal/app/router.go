package app

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appmw "enrichpipe.io/engine/internal/api/middleware"
	"enrichpipe.io/engine/internal/app/httpapi"
	"enrichpipe.io/engine/internal/config"
)

// newRouter builds the chi router the same way malbeclabs-doublezero's
// lake/api/main.go wires its own: chi's Logger and Recoverer first, the
// engine's own request-ID stamper, then CORS, then the flat route table.
func newRouter(cfg *config.Config, handler *httpapi.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger, middleware.Recoverer, appmw.RequestID)
	r.Use(cors.Handler(buildCORSOptions(cfg)))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	handler.Register(r)

	return r
}

func buildCORSOptions(cfg *config.Config) cors.Options {
	opts := cors.Options{
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: cfg.Server.AllowCredentials,
		MaxAge:           int((12 * time.Hour).Seconds()),
	}

	if cfg.Server.UnsafeAllowAllOrigins {
		opts.AllowedOrigins = []string{"*"}
		opts.AllowCredentials = false
		return opts
	}

	allowedOrigins := sanitizeAllowedOrigins(cfg.Server.AllowedOrigins)
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}
	opts.AllowedOrigins = allowedOrigins
	return opts
}

func sanitizeAllowedOrigins(origins []string) []string {
	cleaned := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" || origin == "*" {
			continue
		}
		cleaned = append(cleaned, origin)
	}
	return slices.Compact(cleaned)
}
