package http

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/couchcryptid/florascope-service/internal/domain"
	"github.com/couchcryptid/florascope-service/internal/pipeline"
	"github.com/couchcryptid/florascope-service/internal/render"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const (
	mapURL          = "/mapa"
	defaultRunLimit = 20
	maxRunLimit     = 200
)

// predictResponse is the body of a successful /predict call.
type predictResponse struct {
	Status        string                      `json:"status"`
	RunID         string                      `json:"run_id"`
	MapURL        string                      `json:"map_url,omitempty"`
	Predictions   []domain.PredictionRecord   `json:"predictions"`
	MonthlyProbs  []domain.MonthlyProbability `json:"monthlyProbs,omitempty"`
	Strategy      string                      `json:"monthlyProbsStrategy,omitempty"`
	PeakMonth     int                         `json:"peakMonth,omitempty"`
	PeakMonthName string                      `json:"peakMonthName,omitempty"`
	Evaluation    domain.Evaluation           `json:"evaluation"`
}

// errorResponse is the body of every failed call.
type errorResponse struct {
	Status    string `json:"status"`
	ErrorType string `json:"error_type"`
	Error     string `json:"error"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	res, err := s.runner.Run(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, newPredictResponse(res))
}

func newPredictResponse(res *pipeline.Result) predictResponse {
	resp := predictResponse{
		Status:      "ok",
		RunID:       res.RunID,
		Predictions: domain.Records(res.Predictions),
		Evaluation:  res.Evaluation,
	}
	if res.MapPath != "" {
		resp.MapURL = mapURL
	}
	if res.MonthlyEnabled {
		resp.MonthlyProbs = res.MonthlyProbabilities
		resp.Strategy = string(res.Strategy)
	}
	if res.Peak != nil {
		resp.PeakMonth = res.Peak.Month
		resp.PeakMonthName = res.Peak.Name
	}
	return resp
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	path := s.runner.MapPath()
	if path == "" {
		writeNotFound(w, "map rendering is disabled")
		return
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		writeNotFound(w, "no map has been rendered yet; call /predict first")
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleChart(w http.ResponseWriter, _ *http.Request) {
	res := s.runner.Last()
	if res == nil {
		writeNotFound(w, "no completed run yet; call /predict first")
		return
	}
	if !res.MonthlyEnabled {
		writeNotFound(w, "monthly probabilities are disabled")
		return
	}
	var buf bytes.Buffer
	if err := render.WriteChart(&buf, res.MonthlyProbabilities, res.Peak); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	res := s.runner.Last()
	if res == nil {
		writeNotFound(w, "no completed run yet; call /predict first")
		return
	}
	var buf bytes.Buffer
	if err := render.WriteWorkbook(&buf, res.Report()); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="florascope-`+res.RunID+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "run history is disabled")
		return
	}
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxRunLimit {
			sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{
				Status:    "error",
				ErrorType: "invalid_request",
				Error:     "limit must be an integer between 1 and " + strconv.Itoa(maxRunLimit),
			})
			return
		}
		limit = n
	}
	runs, err := s.history.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []domain.RunRecord{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "runs": runs})
}

func writeNotFound(w http.ResponseWriter, msg string) {
	sharedobs.WriteJSON(w, http.StatusNotFound, errorResponse{Status: "error", ErrorType: "not_found", Error: msg})
}

// writeError maps pipeline failures to status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err, "error_type", kind)
	} else {
		s.logger.Warn("request rejected", "error", err, "error_type", kind)
	}
	sharedobs.WriteJSON(w, status, errorResponse{Status: "error", ErrorType: kind, Error: err.Error()})
}

func classify(err error) (int, string) {
	var (
		missing      *domain.MissingFieldError
		badDate      *domain.DateParseError
		insufficient *domain.InsufficientDataError
		network      *domain.NetworkError
	)
	switch {
	case errors.As(err, &missing):
		return http.StatusBadRequest, "missing_field"
	case errors.As(err, &badDate):
		return http.StatusBadRequest, "date_parse"
	case errors.As(err, &insufficient):
		return http.StatusUnprocessableEntity, "insufficient_data"
	case errors.As(err, &network):
		return http.StatusBadGateway, "network"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
