package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"github.com/Abhishek-cmd13/Emailautomation/internal/types"
)

// defaultRequestTimeout is the fallback soft deadline for request contexts.
// A campaign run walks every unread reply and pays the provider's pacing
// delay per email, so the ceiling sits well above a normal API timeout.
const defaultRequestTimeout = 5 * time.Minute

// defaultRedactedHeaders are masked in request logs. Authorization carries
// API keys on proxied setups; the others are standard session-bearing
// headers.
var defaultRedactedHeaders = []string{
	"Authorization",
	"Cookie",
	"X-CSRF-Token",
}

// MountRoutes wires the global middleware, the handler packages' routes and
// the health endpoint onto the router. Handler routes arrive through
// RouteRegistrars so core never imports the handler packages.
func (s *Server) MountRoutes() {
	s.registerGlobalMiddleware()

	for _, registrar := range s.RouteRegistrars {
		registrar(s.router)
	}

	s.router.Get("/health", s.HandleHealth)
}

// registerGlobalMiddleware installs the chain in its required order: the
// recoverer first so nothing escapes it, timeout and request ID ahead of
// anything that logs, and the logger outside CORS so answered preflights
// still produce a log line with their ID.
func (s *Server) registerGlobalMiddleware() {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(s.requestTimeout()))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(s.SecurityHeadersMiddleware)
	s.router.Use(RequestLogger(s.Logger, s.redactedHeaders()))
	s.router.Use(NewCORSMiddleware(s.corsAllowedOrigins()))
}

func (s *Server) requestTimeout() time.Duration {
	if s.Config == nil || s.Config.Server.RequestTimeout <= 0 {
		return defaultRequestTimeout
	}
	return s.Config.Server.RequestTimeout
}

func (s *Server) redactedHeaders() []string {
	return defaultRedactedHeaders
}

func (s *Server) corsAllowedOrigins() []string {
	if s.Config == nil || len(s.Config.Security.CorsAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.Config.Security.CorsAllowedOrigins
}

// ContextTimeoutMiddleware puts a deadline on every request context so a
// stuck upstream call unwinds instead of holding the connection forever.
// What the client sees on expiry is up to the handler.
func ContextTimeoutMiddleware(limit time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), limit)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware assigns every request a correlation ID: an inbound
// X-Request-Id wins, otherwise a fresh one is minted. The ID rides in the
// context for logs and outbound calls, and echoes back on the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = newRequestID()
		}

		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(types.WithRequestID(r.Context(), id)))
	})
}

// newRequestID mints 16 random bytes as 32 hex characters.
func newRequestID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is effectively fatal elsewhere; here any
		// non-empty value keeps correlation alive.
		return "t-" + strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(b[:])
}
