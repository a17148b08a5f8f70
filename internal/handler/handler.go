// Package handler provides the HTTP handlers of the Hireline API.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/hireline/hireline/internal/auth"
	"github.com/hireline/hireline/internal/handler/dto"
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/service"
)

// Apps lists the feature areas that expose GET /api/v1/{app}/health.
var Apps = []string{
	"users",
	"companies",
	"jobs",
	"applications",
	"resumes",
	"folders",
	"searches",
	"alerts",
	"emails",
	"invoices",
	"analytics",
}

// Handler serves the router-level endpoints that belong to no domain.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// AppHealth returns a handler for GET /api/v1/{app}/health.
func (h *Handler) AppHealth(app string) http.HandlerFunc {
	body := dto.AppHealthResponse{Status: "ok", App: app}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, body)
	}
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already out; an encode error only means the
	// client went away.
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message, Code: code})
}

// writePage writes a cursor-paginated list.
func writePage[T any](w http.ResponseWriter, page *service.Page[T]) {
	writeJSON(w, http.StatusOK, dto.NewListResponse(page))
}

// errBodyTooLarge is returned by decodeJSON when MaxBodySize cut the body.
var errBodyTooLarge = errors.New("request body too large")

// decodeJSON decodes a JSON request body into dst. Malformed or empty
// bodies are reported as validation errors.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return errBodyTooLarge
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is required", service.ErrValidation)
		default:
			return fmt.Errorf("%w: invalid JSON body", service.ErrValidation)
		}
	}
	return nil
}

// pageRequest reads the limit and cursor query parameters.
func pageRequest(r *http.Request) (service.PageRequest, error) {
	q := r.URL.Query()
	page := service.PageRequest{Cursor: q.Get("cursor")}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			return page, fmt.Errorf("%w: limit must be an integer between 1 and 100", service.ErrValidation)
		}
		page.Limit = limit
	}
	return page, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be true or false", service.ErrValidation, name)
	}
	return &v, nil
}

// queryInt64 parses an optional integer query parameter.
func queryInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", service.ErrValidation, name)
	}
	return &v, nil
}

// jobQuery reads the job search filters shared by job listing and alerts.
func jobQuery(r *http.Request) (model.JobQuery, error) {
	q := r.URL.Query()
	query := model.JobQuery{
		Q:              q.Get("q"),
		Location:       q.Get("location"),
		CompanyID:      q.Get("company_id"),
		EmploymentType: model.EmploymentType(q.Get("employment_type")),
	}
	var err error
	if query.Remote, err = queryBool(r, "remote"); err != nil {
		return query, err
	}
	if query.SalaryMin, err = queryInt64(r, "salary_min"); err != nil {
		return query, err
	}
	return query, nil
}

// actor returns the authenticated caller, or nil on public routes.
func actor(r *http.Request) *model.AuthContext {
	return auth.AuthFromContext(r.Context())
}

// clientIP returns the caller address without its port. RealIP has already
// replaced RemoteAddr with the forwarded address when one was sent.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
