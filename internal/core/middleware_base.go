package core

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Abhishek-cmd13/Emailautomation/internal/types"
)

// statusRecorder wraps an http.ResponseWriter so the logging middleware can
// observe the status code after the handler chain has run. The first
// WriteHeader wins; a bare Write counts as an implicit 200.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.wroteHeader {
		sr.status = code
		sr.wroteHeader = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.wroteHeader {
		sr.status = http.StatusOK
		sr.wroteHeader = true
	}
	return sr.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the real writer for Flush and
// friends.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// Recoverer turns a panic anywhere below it into a logged stack trace and a
// JSON 500. It must sit at the top of the middleware chain; anything mounted
// above it runs outside the safety net.
func (s *Server) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}

			s.Logger.Error("panic recovered",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("panic", fmt.Sprintf("%v", rvr)),
				slog.String("stack", string(debug.Stack())),
			)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write(panicBody(types.GetRequestID(r.Context())))
		}()

		next.ServeHTTP(w, r)
	})
}

// RequestLogger emits one structured line per request: method, path, status,
// duration, remote address, and request ID. Values of headers named in
// redactedHeaders are masked (matched case-insensitively). 4xx responses log
// at WARN, 5xx at ERROR, everything else at INFO.
func RequestLogger(logger *slog.Logger, redactedHeaders []string) func(http.Handler) http.Handler {
	redacted := make(map[string]struct{}, len(redactedHeaders))
	for _, name := range redactedHeaders {
		redacted[strings.ToLower(name)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
			}
			if id := types.GetRequestID(r.Context()); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			if hdrs := loggableHeaders(r.Header, redacted); len(hdrs) > 0 {
				attrs = append(attrs, slog.Attr{Key: "headers", Value: slog.GroupValue(hdrs...)})
			}

			level := slog.LevelInfo
			switch {
			case rec.status >= 500:
				level = slog.LevelError
			case rec.status >= 400:
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "request completed", attrs...)
		})
	}
}

// loggableHeaders flattens the request headers into log attributes, masking
// the value of any header on the redact list.
func loggableHeaders(h http.Header, redacted map[string]struct{}) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(h))
	for name, values := range h {
		if _, mask := redacted[strings.ToLower(name)]; mask {
			attrs = append(attrs, slog.String(name, "[REDACTED]"))
			continue
		}
		attrs = append(attrs, slog.String(name, strings.Join(values, ", ")))
	}
	return attrs
}

// SecurityHeadersMiddleware stamps the usual browser hardening headers on
// every response. It runs before the handler so the headers survive error
// paths too.
func (s *Server) SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		next.ServeHTTP(w, r)
	})
}

// NewCORSMiddleware answers preflight requests and sets the Access-Control
// headers for allowed origins. A "*" entry in allowedOrigins admits every
// origin; otherwise the request's Origin header must match an entry exactly.
// OPTIONS requests are answered with 204 without reaching the next handler.
func NewCORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			grant := ""
			switch origin := r.Header.Get("Origin"); {
			case allowAll:
				grant = "*"
			case origin != "":
				if _, ok := allowed[origin]; ok {
					grant = origin
				}
			}

			if grant != "" {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", grant)
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
				h.Set("Access-Control-Expose-Headers", "X-Request-ID")
				h.Set("Access-Control-Max-Age", "86400")
				h.Set("Access-Control-Allow-Credentials", "true")
				if grant != "*" {
					// Caches must not serve one origin's response to another.
					h.Set("Vary", "Origin")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// jsonEscaper covers the characters that would corrupt the hand-built panic
// body. The code and message are fixed strings; the request ID is the only
// field that can carry client input.
var jsonEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// panicBody renders the 500 payload by hand. The recoverer runs when
// something has already gone wrong, so it stays away from json.Marshal and
// the shared response helpers.
func panicBody(requestID string) []byte {
	return []byte(fmt.Sprintf(
		`{"error":{"code":"%s","message":"an unexpected error occurred","request_id":"%s"}}`,
		types.ErrCodeInternalUnexpected,
		jsonEscaper.Replace(requestID),
	))
}
