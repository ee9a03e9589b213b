package middleware

import (
	"net/http"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
)

// DefaultMaxBodyBytes caps request bodies; questions are short.
const DefaultMaxBodyBytes int64 = 64 * 1024

// MaxBodyBytes limits request body size.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.JSON(w, http.StatusRequestEntityTooLarge, api.ErrorResponse{
					Error: "request body too large",
					Code:  domain.ErrCodeValidation,
				})
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
