package api

import (
	"errors"
	"net/http"

	"github.com/ArmorCode-Public-Test/metabase/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes. A
// malformed stored permission row maps to 500: it is a configuration
// integrity fault on our side, not a client error.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	var malformed *domain.MalformedPermissionEntryError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &malformed):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
