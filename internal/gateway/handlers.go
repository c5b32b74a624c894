package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/totalcareit/partner-metrics/internal/utils"
)

type handlers struct {
	reports Reports
	logger  *slog.Logger
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) salesReport(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "this-month"
	}
	report, err := h.reports.SalesReport(r.Context(), period)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handlers) ticketReport(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "this-month"
	}
	report, err := h.reports.TicketReport(r.Context(), period)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handlers) quarterlyReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.QuarterlyReport(r.Context(),
		chi.URLParam(r, "type"), chi.URLParam(r, "quarter"), chi.URLParam(r, "year"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handlers) listQuarterly(w http.ResponseWriter, r *http.Request) {
	refs, err := h.reports.QuarterlyReports(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": refs})
}

func (h *handlers) clearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.reports.ClearCache(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := httpStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	writeJSON(w, status, errorBody{Error: message(err), Kind: kind})
}

// httpStatus maps service errors onto HTTP status codes.
func httpStatus(err error) (int, string) {
	var appErr *utils.AppError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ""
	case errors.As(err, &appErr):
		switch appErr.Kind {
		case utils.KindConfiguration:
			return http.StatusServiceUnavailable, string(appErr.Kind)
		case utils.KindNetwork:
			return http.StatusBadGateway, string(appErr.Kind)
		case utils.KindInvalidArgument:
			return http.StatusBadRequest, string(appErr.Kind)
		case utils.KindNotFound:
			return http.StatusNotFound, string(appErr.Kind)
		case utils.KindMalformed:
			return http.StatusUnprocessableEntity, string(appErr.Kind)
		}
	}
	if _, ok := utils.AsProviderError(err); ok {
		return http.StatusBadGateway, "provider"
	}
	return http.StatusInternalServerError, ""
}

// message prefers the human-facing AppError text, which is what the portal shows in
// its banner.
func message(err error) string {
	var appErr *utils.AppError
	if errors.As(err, &appErr) && appErr.Msg != "" {
		return appErr.Msg
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
