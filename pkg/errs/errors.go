package errs

import (
	"errors"
	"net/http"
)

// Failure classes of the join pipeline: validation, availability
// conflict, chain transaction, upload, persist, subscription.
var (
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("availability conflict")
	ErrTransaction  = errors.New("transaction error")
	ErrUpload       = errors.New("upload error")
	ErrPersist      = errors.New("persist error")
	ErrSubscription = errors.New("subscription error")

	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream error")
)

func ToHTTP(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrTransaction), errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, ErrUpload), errors.Is(err, ErrPersist):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
