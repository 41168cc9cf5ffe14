// Package admin guards operational endpoints with a shared admin token.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "procura/pkg/domain-errors"
	"procura/pkg/platform/httputil"
	"procura/pkg/platform/middleware/metadata"
	"procura/pkg/requestcontext"
)

// Header carries the admin token.
const Header = "X-Admin-Token"

// RequireToken rejects requests whose Header does not match expected. An
// empty expected token rejects everything.
func RequireToken(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(Header)
			if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				ctx := r.Context()
				if logger != nil {
					logger.WarnContext(ctx, "admin token mismatch",
						"request_id", requestcontext.RequestID(ctx),
						"client_ip", metadata.ClientIP(ctx),
						"path", r.URL.Path,
					)
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
