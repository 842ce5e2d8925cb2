package ingest

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/lectern-labs/lectern/pkg/handlers"
	"github.com/lectern-labs/lectern/pkg/pagination"
	"github.com/lectern-labs/lectern/pkg/routes"
)

// Handler provides HTTP endpoints for ingestion and the paper registry.
type Handler struct {
	sys           System
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
}

// IngestResponse is the wire shape for an ingest request.
type IngestResponse struct {
	PaperID   string `json:"paper_id"`
	Status    string `json:"status"`
	PageCount int    `json:"page_count"`
}

// NewHandler creates a Handler with the given system, logger, pagination
// settings, and upload size limit.
func NewHandler(sys System, logger *slog.Logger, pager pagination.Config, maxUploadSize int64) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "ingest"),
		pagination:    pager,
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for ingestion endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/ingest", Handler: h.Ingest},
			{Method: "GET", Pattern: "/papers", Handler: h.Papers},
		},
	}
}

// Ingest processes a multipart upload containing a single PDF file.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrEmptyUpload)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrEmptyUpload)
		return
	}

	pageCount, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidPDF)
		return
	}

	result, err := h.sys.Ingest(r.Context(), header.Filename, data, pageCount)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	status := http.StatusOK
	resp := IngestResponse{
		PaperID:   result.Paper.ID.String(),
		Status:    "already_exists",
		PageCount: result.Paper.PageCount,
	}
	if result.Created {
		status = http.StatusCreated
		resp.Status = "created"
	}

	handlers.RespondJSON(w, status, resp)
}

// Papers returns a page of registered papers, most recent first.
// Supports page, page_size, search, and sort query parameters.
func (h *Handler) Papers(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	papers, err := h.sys.Papers(r.Context(), page)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, papers)
}
