package http

import (
	"errors"
	"net/http"
	"strings"

	"wishbudget/internal/core"
	"wishbudget/internal/log"
	"wishbudget/internal/middleware/trace"
	"wishbudget/internal/services"
	"wishbudget/internal/storage"
)

// validationErrors are the domain errors answered with 422.
var validationErrors = []error{
	core.ErrInvalidDay,
	core.ErrInvalidMonth,
	core.ErrInvalidAmount,
	core.ErrEmptyTitle,
	core.ErrEmptyRecipient,
	core.ErrEmptyUser,
	core.ErrInvalidBudgetType,
	core.ErrInvalidYear,
	core.ErrMissingName,
	core.ErrUnexpectedName,
	core.ErrMissingScope,
	core.ErrNegativeLimit,
	core.ErrTitleTooLong,
	core.ErrZeroDate,
	core.ErrInvalidDateFormat,
	core.ErrInvalidBudgetScope,
	storage.ErrUnknownReference,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// errorResponse maps err onto a status code and a client-safe message.
// Internal failures never leak their text.
func errorResponse(err error) (*JSONResponseBuilder, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return BadRequestError(err.Error()), log.ErrorTypeValidation
	case isValidationError(err):
		return UnprocessableEntityError(err.Error()), log.ErrorTypeValidation
	case errors.Is(err, storage.ErrNotFound):
		return NotFoundError("not found"), log.ErrorTypeNotFound
	case errors.Is(err, storage.ErrAlreadyClaimed):
		return ConflictError(err.Error()), log.ErrorTypeConflict
	case errors.Is(err, services.ErrNoLedger):
		return ServiceUnavailableError("ledger export is not configured"), log.ErrorTypeInternal
	default:
		return InternalServerError("internal error"), log.ErrorTypeInternal
	}
}

// writeError logs err with the request-scoped logger and writes the
// matching JSON error.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp, errType := errorResponse(err)
	logger := log.FromContext(r.Context())
	fields := log.NewFields().WithOperation(op).WithError(err, errType).ToSlice()
	if errType == log.ErrorTypeInternal {
		logger.ErrorContext(r.Context(), "Request failed", fields...)
	} else {
		logger.InfoContext(r.Context(), "Request rejected", fields...)
	}
	resp.withRequestID(trace.RequestIDFromRequest(r)).Write(w)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// requestLocale picks the display locale from Accept-Language, falling back
// to fallback when the header is absent.
func requestLocale(r *http.Request, fallback string) string {
	if v := strings.TrimSpace(r.Header.Get("Accept-Language")); v != "" {
		return core.NormalizeLocale(v)
	}
	return core.NormalizeLocale(fallback)
}
