package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"mercator-hq/taskgate/pkg/config"
)

// CORSConfig contains configuration for CORS middleware.
type CORSConfig struct {
	// Enabled controls whether CORS is enabled.
	Enabled bool

	// AllowedOrigins is a list of allowed origins for CORS.
	// Use ["*"] to allow all origins.
	AllowedOrigins []string

	// AllowedMethods is a list of allowed HTTP methods.
	AllowedMethods []string

	// AllowedHeaders is a list of allowed HTTP headers.
	AllowedHeaders []string

	// ExposedHeaders is a list of headers exposed to clients.
	ExposedHeaders []string

	// MaxAge is the maximum age (in seconds) for preflight cache.
	MaxAge int

	// AllowCredentials controls whether credentials are allowed.
	AllowCredentials bool
}

// NewCORSConfig converts the proxy.cors configuration section. Defaults
// for empty fields are filled in by config.ApplyDefaults.
func NewCORSConfig(cfg config.CORSConfig) *CORSConfig {
	return &CORSConfig{
		Enabled:          cfg.Enabled,
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		MaxAge:           cfg.MaxAge,
		AllowCredentials: cfg.AllowCredentials,
	}
}

// CORSMiddleware adds Cross-Origin Resource Sharing (CORS) headers to responses.
// It handles preflight OPTIONS requests and adds appropriate CORS headers for
// all requests.
//
// When disabled the middleware is a pass-through, so OPTIONS requests reach
// the upstream like any other method.
//
// Example usage:
//
//	handler = CORSMiddleware(NewCORSConfig(cfg.Proxy.CORS))(handler)
func CORSMiddleware(cors *CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip CORS if disabled
			if !cors.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			// Get origin from request
			origin := r.Header.Get("Origin")

			// Check if origin is allowed
			if origin != "" && isOriginAllowed(origin, cors.AllowedOrigins) {
				// Set Access-Control-Allow-Origin
				w.Header().Set("Access-Control-Allow-Origin", origin)

				// Set Access-Control-Allow-Credentials if enabled
				if cors.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}

				// Set Access-Control-Expose-Headers
				if len(cors.ExposedHeaders) > 0 {
					w.Header().Set("Access-Control-Expose-Headers", strings.Join(cors.ExposedHeaders, ", "))
				}
			} else if slices.Contains(cors.AllowedOrigins, "*") {
				// Allow all origins
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}

			// Handle preflight OPTIONS request
			if r.Method == http.MethodOptions {
				// Set Access-Control-Allow-Methods
				if len(cors.AllowedMethods) > 0 {
					w.Header().Set("Access-Control-Allow-Methods", strings.Join(cors.AllowedMethods, ", "))
				}

				// Set Access-Control-Allow-Headers
				if len(cors.AllowedHeaders) > 0 {
					w.Header().Set("Access-Control-Allow-Headers", strings.Join(cors.AllowedHeaders, ", "))
				}

				// Set Access-Control-Max-Age
				if cors.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cors.MaxAge))
				}

				// Respond with 204 No Content for preflight
				w.WriteHeader(http.StatusNoContent)
				return
			}

			// Call next handler
			next.ServeHTTP(w, r)
		})
	}
}

// isOriginAllowed checks if an origin is in the allowed list.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
