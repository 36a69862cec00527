package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
	"github.com/straye-as/dossier-api/internal/config"
	"go.uber.org/zap"
)

// CORS returns a CORS middleware configured from the application config
func CORS(cfg *config.CORSConfig, environment string, logger *zap.Logger) func(http.Handler) http.Handler {
	options := cors.Options{
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   withRequestIDHeader(cfg.ExposedHeaders),
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}

	allowAny := func(r *http.Request, origin string) bool {
		return origin != ""
	}

	if len(cfg.AllowedOrigins) > 0 {
		for _, origin := range cfg.AllowedOrigins {
			if origin == "*" {
				if !isDevelopment(environment) {
					logger.Warn("CORS configured with wildcard origin in non-development environment",
						zap.String("environment", environment))
				}
				options.AllowOriginFunc = allowAny
				break
			}
		}

		if options.AllowOriginFunc == nil {
			options.AllowedOrigins = cfg.AllowedOrigins
			logger.Info("CORS configured with explicit origins",
				zap.Strings("origins", cfg.AllowedOrigins))
		}
	} else {
		if isDevelopment(environment) {
			options.AllowOriginFunc = allowAny
			logger.Info("CORS configured to allow all origins in development mode")
		} else {
			// An empty AllowedOrigins list means "*" to go-chi/cors
			options.AllowOriginFunc = func(r *http.Request, origin string) bool {
				return false
			}
			logger.Warn("CORS configured with no allowed origins - all cross-origin requests will be denied",
				zap.String("environment", environment))
		}
	}

	return cors.Handler(options)
}

func isDevelopment(environment string) bool {
	switch environment {
	case "development", "local", "":
		return true
	}
	return false
}

func withRequestIDHeader(headers []string) []string {
	for _, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), RequestIDHeader) {
			return headers
		}
	}
	return append(append([]string{}, headers...), RequestIDHeader)
}
