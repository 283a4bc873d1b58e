package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/robotarm/armsuite/internal/repository"
	"github.com/robotarm/armsuite/internal/services"
	"github.com/robotarm/armsuite/internal/suite"
)

const maxRequestBody = 1 << 20

// RunRequest is the optional JSON body of POST /api/v1/runs.
type RunRequest struct {
	Filter    string `json:"filter,omitempty"`
	Parallel  int    `json:"parallel,omitempty"`
	Timeout   string `json:"timeout,omitempty"`
	NoHistory bool   `json:"no_history,omitempty"`
}

// CaseResponse describes one registered case.
type CaseResponse struct {
	ID    string `json:"id"`
	Group string `json:"group"`
	Name  string `json:"name"`
}

// CasesResponse is the body of GET /api/v1/cases.
type CasesResponse struct {
	Cases []CaseResponse `json:"cases"`
}

// RunsResponse is the body of GET /api/v1/runs.
type RunsResponse struct {
	Runs []repository.Summary `json:"runs"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RunHandler serves suite runs and their history.
type RunHandler struct {
	service services.RunService
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(svc services.RunService) *RunHandler {
	return &RunHandler{service: svc}
}

// decodeRunRequest reads at most one JSON object. An empty body is the zero
// request; anything after the object is rejected.
func decodeRunRequest(body io.Reader) (RunRequest, error) {
	var req RunRequest
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, nil
		}
		return req, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return req, errors.New("unexpected data after request body")
	}
	return req, nil
}

// ListCases handles GET /api/v1/cases.
func (h *RunHandler) ListCases(w http.ResponseWriter, r *http.Request) {
	cases := h.service.Cases()
	resp := CasesResponse{Cases: make([]CaseResponse, 0, len(cases))}
	for _, c := range cases {
		resp.Cases = append(resp.Cases, CaseResponse{ID: c.ID(), Group: c.Group, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Trigger handles POST /api/v1/runs. The run completes before the response
// is written. A failing suite is still 201; outcomes are in the report.
func (h *RunHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRunRequest(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	var timeout time.Duration
	if req.Timeout != "" {
		d, err := time.ParseDuration(req.Timeout)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: "invalid timeout duration format",
				Code:  "INVALID_TIMEOUT",
			})
			return
		}
		timeout = d
	}

	report, err := h.service.Run(r.Context(), services.RunRequest{
		Filter:      req.Filter,
		Parallelism: req.Parallel,
		Timeout:     timeout,
		NoHistory:   req.NoHistory,
	})
	if err != nil {
		status, resp := mapErrorToResponse(err)
		writeJSON(w, status, resp)
		return
	}

	w.Header().Set("Location", "/api/v1/runs/"+report.ID.String())
	writeJSON(w, http.StatusCreated, report)
}

// List handles GET /api/v1/runs?limit=n.
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: "limit must be a positive integer",
				Code:  "INVALID_LIMIT",
			})
			return
		}
		limit = n
	}

	summaries, err := h.service.List(r.Context(), limit)
	if err != nil {
		status, resp := mapErrorToResponse(err)
		writeJSON(w, status, resp)
		return
	}
	if summaries == nil {
		summaries = []repository.Summary{}
	}
	writeJSON(w, http.StatusOK, RunsResponse{Runs: summaries})
}

// Get handles GET /api/v1/runs/{id}.
func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "invalid run id",
			Code:  "INVALID_ID",
		})
		return
	}

	report, err := h.service.Get(r.Context(), id)
	if err != nil {
		status, resp := mapErrorToResponse(err)
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Latest handles GET /api/v1/runs/latest.
func (h *RunHandler) Latest(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Latest(r.Context())
	if err != nil {
		status, resp := mapErrorToResponse(err)
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func mapErrorToResponse(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"}
	case errors.Is(err, suite.ErrInvalidFilter):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_FILTER"}
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "NOT_FOUND"}
	case errors.Is(err, services.ErrHistoryDisabled):
		return http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: "HISTORY_DISABLED"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "INTERNAL_ERROR"}
	}
}
