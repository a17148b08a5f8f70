package middleware

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
)

// ErrInvalidID indicates a path identifier that is not a ULID.
var ErrInvalidID = errors.New("identifier is not a valid ULID")

// ValidateID checks that id is a canonical 26-character ULID.
func ValidateID(id string) error {
	if len(id) != ulid.EncodedSize {
		return ErrInvalidID
	}
	if _, err := ulid.ParseStrict(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

// RequireIDParams rejects requests whose named chi URL parameters are not
// ULIDs. Malformed ids cannot exist, so they get the same 404 as a missing
// row and never reach the database.
func RequireIDParams(names ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, name := range names {
				value := chi.URLParam(r, name)
				if value == "" {
					continue
				}
				if err := ValidateID(value); err != nil {
					writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
