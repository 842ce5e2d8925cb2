package index

import (
	"errors"
	"net/http"
)

// Domain errors for registry and index operations.
var (
	ErrNotFound  = errors.New("paper not found")
	ErrDuplicate = errors.New("paper already indexed")
	ErrEmpty     = errors.New("no papers indexed")
)

// MapHTTPStatus maps index domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrEmpty) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
