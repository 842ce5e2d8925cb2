package ask

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lectern-labs/lectern/pkg/graph"
	"github.com/lectern-labs/lectern/pkg/handlers"
	"github.com/lectern-labs/lectern/pkg/routes"
)

// Handler provides HTTP endpoints for question answering.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "ask"),
	}
}

// Routes returns the route group definition for ask endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/ask",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Ask},
			{Method: "POST", Pattern: "/stream", Handler: h.Stream},
		},
	}
}

// Ask runs a question to completion and returns the final answer.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrEmptyQuestion)
		return
	}

	answer, err := h.sys.Ask(r.Context(), req, nil)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, answer)
}

// streamEvent is one record on the event stream. Task events carry only the
// task name; the terminal event carries the answer and its sources.
type streamEvent struct {
	Event   string `json:"event"`
	Task    string `json:"task,omitempty"`
	Answer  string `json:"answer,omitempty"`
	Sources []int  `json:"sources,omitempty"`
}

// Stream runs a question and streams task lifecycle events followed by the
// final answer and the done sentinel.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrEmptyQuestion)
		return
	}

	sse, err := handlers.NewSSEWriter(w)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	observe := func(e graph.Event) {
		if err := sse.Send(streamEvent{Event: string(e.Kind), Task: e.Task}); err != nil {
			h.logger.Warn("stream write failed", "task", e.Task, "error", err)
		}
	}

	answer, err := h.sys.Ask(r.Context(), req, observe)
	if err != nil {
		// Headers are already written; the best remaining signal is an
		// error record before the sentinel.
		h.logger.Error("streamed ask failed", "error", err)
		sse.Send(map[string]string{"event": "error", "error": err.Error()})
		sse.Done()
		return
	}

	sse.Send(streamEvent{
		Event:   "final_answer",
		Answer:  answer.Answer,
		Sources: answer.Sources,
	})
	sse.Done()
}
