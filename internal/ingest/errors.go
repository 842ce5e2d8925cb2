package ingest

import (
	"errors"
	"net/http"

	"github.com/lectern-labs/lectern/internal/index"
	"github.com/lectern-labs/lectern/workflow"
)

// Domain errors for ingestion.
var (
	ErrInvalidPDF   = errors.New("invalid pdf")
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")
	ErrEmptyUpload  = errors.New("empty upload")
)

// MapHTTPStatus maps ingestion errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrInvalidPDF) || errors.Is(err, ErrEmptyUpload) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrFileTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	if errors.Is(err, workflow.ErrParseFailed) {
		return http.StatusUnprocessableEntity
	}
	return index.MapHTTPStatus(err)
}
