package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"budget/internal/auth"
	applog "budget/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports not_ready when the period store cannot be listed.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.readyTimeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"storage": "ok"}
	if _, err := s.svc.ListPeriods(ctx); err != nil {
		checks["storage"] = fmt.Sprintf("failed: %v", err)
		status, code = "not_ready", http.StatusServiceUnavailable
		s.logger.WarnContext(ctx, "Readiness check failed", "error", err)
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides request and security counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.loginLimiter.GetMetrics()

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", traceMetrics.TotalErrors)

	fmt.Fprintf(w, "# HELP http_response_time_avg_microseconds Running average response time\n")
	fmt.Fprintf(w, "# TYPE http_response_time_avg_microseconds gauge\n")
	fmt.Fprintf(w, "http_response_time_avg_microseconds %d\n\n", traceMetrics.AverageResponseTime)

	fmt.Fprintf(w, "# HELP login_rate_limit_hits_total Rejected login attempts\n")
	fmt.Fprintf(w, "# TYPE login_rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "login_rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP login_rate_limit_clients Currently tracked login clients\n")
	fmt.Fprintf(w, "# TYPE login_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "login_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests blocked\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.started).Seconds())
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth)
	session, token, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			logger.WarnContext(r.Context(), "Login rejected",
				applog.FieldUsername, req.Username,
				applog.FieldOperation, applog.OpLogin,
				applog.FieldErrorType, applog.ErrorTypeAuth)
			writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
			return
		}
		s.writeServiceError(w, r, err)
		return
	}

	logger.InfoContext(r.Context(), "Login succeeded",
		applog.FieldUsername, session.Username,
		applog.FieldOperation, applog.OpLogin)
	http.SetCookie(w, s.auth.SessionCookie(token, session, s.secureCookies))
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		Username:  session.Username,
		Name:      session.Name,
		ExpiresAt: session.ExpiresAt,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, s.auth.ClearCookie(s.secureCookies))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	cats := s.svc.Categories()
	writeJSON(w, http.StatusOK, configResponse{
		IncomeCategories:  cats.Incomes,
		ExpenseCategories: cats.Expenses,
		Currency:          cats.Currency,
		PeriodChoices:     s.svc.PeriodChoices(),
	})
}
