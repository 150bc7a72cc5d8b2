package http

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"budget/internal/core"
)

func periodKey(r *http.Request) string {
	return chi.URLParam(r, "key")
}

func (s *Server) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := s.svc.ListPeriods(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]periodResponse, 0, len(periods))
	for _, p := range periods {
		out = append(out, newPeriodResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.GetPeriod(r.Context(), periodKey(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPeriodResponse(p))
}

func (s *Server) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", "request validation failed", "key: failed required")
		return
	}

	p := req.toPeriod()
	if err := s.svc.CreatePeriod(r.Context(), p); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/periods/"+url.PathEscape(p.Key))
	writeJSON(w, http.StatusCreated, newPeriodResponse(p))
}

func (s *Server) handleUpdatePeriod(w http.ResponseWriter, r *http.Request) {
	key := periodKey(r)
	var req periodRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if req.Key != "" && req.Key != key {
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", "key in body does not match the path")
		return
	}
	req.Key = key

	result, err := s.svc.EditPeriod(r.Context(), req.toPeriod())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := updateResponse{Result: result.String(), Message: result.Message()}
	if result == core.UpdateNotFound {
		writeJSON(w, http.StatusNotFound, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Dashboard(r.Context(), periodKey(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDashboardResponse(d))
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.GetPeriod(r.Context(), periodKey(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTotalsResponse(core.ComputeTotals(p)))
}

func (s *Server) handleSankey(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Dashboard(r.Context(), periodKey(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSankeyResponse(d.Sankey))
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	points, err := s.svc.Trend(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]trendPointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, trendPointResponse{Key: p.Key, TotalIncome: p.TotalIncome, TotalExpense: p.TotalExpense})
	}
	writeJSON(w, http.StatusOK, out)
}
