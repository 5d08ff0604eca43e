package server

import (
	"errors"
	"net/http"
)

// Error taxonomy for the request surface. Handlers wrap these with context;
// httpStatus maps them onto transport status codes.
var (
	ErrInvalidArg   = errors.New("invalid argument")
	ErrNameReserved = errors.New("name is reserved")
	ErrNameTaken    = errors.New("name is already taken")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrIllegalMove  = errors.New("illegal move")
	ErrInternal     = errors.New("internal error")
)

// httpStatus translates a taxonomy error into an HTTP status code. Unknown
// errors are treated as internal.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidArg), errors.Is(err, ErrIllegalMove):
		return http.StatusBadRequest
	case errors.Is(err, ErrNameReserved), errors.Is(err, ErrNameTaken):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
