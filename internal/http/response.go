package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"budget/internal/core"
	"budget/internal/services"
)

type errorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type totalsResponse struct {
	TotalIncome  int64 `json:"total_income"`
	TotalExpense int64 `json:"total_expense"`
	Remaining    int64 `json:"remaining"`
}

type periodResponse struct {
	Key      string           `json:"key"`
	Incomes  map[string]int64 `json:"incomes"`
	Expenses map[string]int64 `json:"expenses"`
	Comment  string           `json:"comment"`
	Totals   totalsResponse   `json:"totals"`
}

type sankeyNodeResponse struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

type sankeyLinkResponse struct {
	Source int   `json:"source"`
	Target int   `json:"target"`
	Value  int64 `json:"value"`
}

type sankeyResponse struct {
	Nodes     []sankeyNodeResponse `json:"nodes"`
	Links     []sankeyLinkResponse `json:"links"`
	Pad       int                  `json:"pad"`
	Thickness int                  `json:"thickness"`
}

type labelsResponse struct {
	TotalIncome     string `json:"total_income"`
	TotalExpense    string `json:"total_expense"`
	RemainingBudget string `json:"remaining_budget"`
}

type dashboardResponse struct {
	Period periodResponse `json:"period"`
	Totals totalsResponse `json:"totals"`
	Labels labelsResponse `json:"labels"`
	Sankey sankeyResponse `json:"sankey"`
}

type trendPointResponse struct {
	Key          string `json:"key"`
	TotalIncome  int64  `json:"total_income"`
	TotalExpense int64  `json:"total_expense"`
}

type updateResponse struct {
	Result  string `json:"result"`
	Message string `json:"message"`
}

type configResponse struct {
	IncomeCategories  []string `json:"income_categories"`
	ExpenseCategories []string `json:"expense_categories"`
	Currency          string   `json:"currency"`
	PeriodChoices     []string `json:"period_choices"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newTotalsResponse(t core.Totals) totalsResponse {
	return totalsResponse{TotalIncome: t.Income, TotalExpense: t.Expense, Remaining: t.Remaining}
}

func newPeriodResponse(p core.Period) periodResponse {
	return periodResponse{
		Key:      p.Key,
		Incomes:  amountsMap(p.Incomes),
		Expenses: amountsMap(p.Expenses),
		Comment:  p.Comment,
		Totals:   newTotalsResponse(core.ComputeTotals(p)),
	}
}

func amountsMap(a core.Amounts) map[string]int64 {
	out := make(map[string]int64, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

func newSankeyResponse(s core.Sankey) sankeyResponse {
	out := sankeyResponse{
		Nodes:     make([]sankeyNodeResponse, 0, len(s.Nodes)),
		Links:     make([]sankeyLinkResponse, 0, len(s.Links)),
		Pad:       s.Pad,
		Thickness: s.Thickness,
	}
	for _, n := range s.Nodes {
		out.Nodes = append(out.Nodes, sankeyNodeResponse{Label: n.Label, Color: n.Color})
	}
	for _, l := range s.Links {
		out.Links = append(out.Links, sankeyLinkResponse{Source: l.Source, Target: l.Target, Value: l.Value})
	}
	return out
}

func newDashboardResponse(d services.Dashboard) dashboardResponse {
	return dashboardResponse{
		Period: newPeriodResponse(d.Period),
		Totals: newTotalsResponse(d.Totals),
		Labels: labelsResponse{
			TotalIncome:     d.Labels.TotalIncome,
			TotalExpense:    d.Labels.TotalExpense,
			RemainingBudget: d.Labels.RemainingBudget,
		},
		Sankey: newSankeyResponse(d.Sankey),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string, details ...string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg, Details: details})
}

// writeServiceError maps domain sentinels to status codes. Unknown errors are
// logged and reported as 500 without detail.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrDuplicateKey):
		writeError(w, http.StatusConflict, "duplicate_key", err.Error())
	case errors.Is(err, core.ErrInsufficientIncome):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_income", err.Error())
	case errors.Is(err, core.ErrUnknownCategory),
		errors.Is(err, core.ErrNegativeAmount),
		errors.Is(err, core.ErrAmountTooLarge),
		errors.Is(err, core.ErrInvalidPeriodKey):
		writeError(w, http.StatusUnprocessableEntity, "invalid_period", err.Error())
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, core.ErrStorageUnavailable):
		s.logger.ErrorContext(r.Context(), "Storage unavailable", "error", err, "path", r.URL.Path)
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "storage is temporarily unavailable")
	default:
		s.logger.ErrorContext(r.Context(), "Unhandled error", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
