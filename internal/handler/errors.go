package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hireline/hireline/internal/repository"
	"github.com/hireline/hireline/internal/service"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// errorMappings is checked in order with errors.Is. The sentinel's own
// message becomes the response message.
var errorMappings = []errorMapping{
	{repository.ErrInvalidCursor, http.StatusBadRequest, "INVALID_CURSOR"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{service.ErrAccountDisabled, http.StatusForbidden, "ACCOUNT_DISABLED"},
	{service.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},

	{service.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{repository.ErrProfileNotFound, http.StatusNotFound, "PROFILE_NOT_FOUND"},
	{service.ErrCompanyNotFound, http.StatusNotFound, "COMPANY_NOT_FOUND"},
	{service.ErrJobNotFound, http.StatusNotFound, "JOB_NOT_FOUND"},
	{service.ErrApplicationNotFound, http.StatusNotFound, "APPLICATION_NOT_FOUND"},
	{service.ErrResumeNotFound, http.StatusNotFound, "RESUME_NOT_FOUND"},
	{service.ErrFolderNotFound, http.StatusNotFound, "FOLDER_NOT_FOUND"},
	{service.ErrFolderItemNotFound, http.StatusNotFound, "FOLDER_ITEM_NOT_FOUND"},
	{service.ErrSavedSearchNotFound, http.StatusNotFound, "ALERT_NOT_FOUND"},
	{service.ErrEmailNotFound, http.StatusNotFound, "EMAIL_NOT_FOUND"},
	{service.ErrInvoiceNotFound, http.StatusNotFound, "INVOICE_NOT_FOUND"},
	{service.ErrAPIKeyNotFound, http.StatusNotFound, "API_KEY_NOT_FOUND"},

	{service.ErrEmailExists, http.StatusConflict, "EMAIL_TAKEN"},
	{service.ErrCompanyExists, http.StatusConflict, "COMPANY_EXISTS"},
	{service.ErrApplicationExists, http.StatusConflict, "ALREADY_APPLIED"},
	{service.ErrFolderExists, http.StatusConflict, "FOLDER_EXISTS"},
	{service.ErrFolderItemExists, http.StatusConflict, "JOB_ALREADY_IN_FOLDER"},
	{service.ErrInvoiceNumberExists, http.StatusConflict, "INVOICE_NUMBER_TAKEN"},
	{service.ErrInvalidState, http.StatusConflict, "INVALID_STATE_TRANSITION"},
	{service.ErrStatusChanged, http.StatusConflict, "STATUS_CONFLICT"},
	{service.ErrInvoiceNotOpen, http.StatusConflict, "INVOICE_NOT_OPEN"},
	{service.ErrEmailNotRetryable, http.StatusConflict, "EMAIL_NOT_RETRYABLE"},
	{service.ErrJobNotAccepting, http.StatusConflict, "JOB_NOT_ACCEPTING"},
}

// respondError maps an error from decoding or the service layer to an HTTP
// response. Unknown errors are logged and reported as 500 without detail.
func respondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if errors.Is(err, errBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", errBodyTooLarge.Error())
		return
	}
	// Validation errors carry the field detail after the sentinel prefix.
	if errors.Is(err, service.ErrValidation) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", validationMessage(err))
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			writeError(w, m.status, m.code, m.target.Error())
			return
		}
	}

	logger.Error("internal error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
}

func validationMessage(err error) string {
	msg := err.Error()
	if detail, ok := strings.CutPrefix(msg, service.ErrValidation.Error()+": "); ok {
		return detail
	}
	return msg
}
