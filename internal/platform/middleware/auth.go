package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"verifica/pkg/requestcontext"
)

// JWTValidator defines the interface for validating operator tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	ReviewerID string
	Name       string
}

// RequireAuth validates the bearer token and injects the reviewer identity
// into the request context. Approve/reject decisions must be attributable,
// so unauthenticated requests never reach the handlers.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || token == "" {
				unauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err,
				)
				unauthorized(w)
				return
			}

			ctx := requestcontext.WithReviewerID(r.Context(), claims.ReviewerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}
