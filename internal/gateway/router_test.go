package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/totalcareit/partner-metrics/internal/auth"
	"github.com/totalcareit/partner-metrics/internal/fixtures"
	"github.com/totalcareit/partner-metrics/internal/services"
	"github.com/totalcareit/partner-metrics/internal/ticketreport"
	"github.com/totalcareit/partner-metrics/internal/utils"
)

type reportsStub struct {
	mu        sync.Mutex
	periods   []string
	salesErr  error
	ticketErr error
	quarterly []string
	refs      []fixtures.Ref
	cleared   int
}

func (s *reportsStub) SalesReport(_ context.Context, period string) (*services.SalesReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods = append(s.periods, period)
	if s.salesErr != nil {
		return nil, s.salesErr
	}
	return &services.SalesReport{ID: "r-1", Period: period, Source: services.SourceSample}, nil
}

func (s *reportsStub) TicketReport(_ context.Context, period string) (*services.TicketReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods = append(s.periods, period)
	if s.ticketErr != nil {
		return nil, s.ticketErr
	}
	return &services.TicketReport{ID: "t-1", Period: period, Source: services.SourceAutotask,
		Scorecard: ticketreport.Scorecard{TicketsOpened: 4, TicketsOver7Days: 1}}, nil
}

func (s *reportsStub) QuarterlyReport(_ context.Context, reportType, quarter, year string) (*services.QuarterlyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quarterly = []string{reportType, quarter, year}
	return &services.QuarterlyReport{ID: "q-1", Ref: fixtures.Ref{Type: reportType, Quarter: quarter, Year: 2025}, Data: json.RawMessage(`{"total":1}`)}, nil
}

func (s *reportsStub) QuarterlyReports(context.Context) ([]fixtures.Ref, error) {
	return s.refs, nil
}

func (s *reportsStub) ClearCache(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
	return nil
}

type rejectAll struct{}

func (rejectAll) Verify(string) (*auth.Principal, error) { return nil, auth.ErrUnauthenticated }

func newTestRouter(reports Reports, verifier auth.TokenVerifier) http.Handler {
	return NewRouter(Options{
		Reports:        reports,
		Verifier:       verifier,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		AllowedOrigins: []string{"http://localhost:3000"},
	})
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&reportsStub{}, rejectAll{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestSalesReportDefaultsPeriod(t *testing.T) {
	stub := &reportsStub{}
	rec := httptest.NewRecorder()
	newTestRouter(stub, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sales-report", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(stub.periods) != 1 || stub.periods[0] != "this-month" {
		t.Fatalf("expected this-month, got %v", stub.periods)
	}
	var body services.SalesReport
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Period != "this-month" || body.Source != services.SourceSample {
		t.Fatalf("unexpected report %+v", body)
	}
}

func TestSalesReportErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantMsg    string
	}{
		{
			name:       "configuration",
			err:        utils.ConfigurationError("autotask.query", "Autotask credentials are not configured"),
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   "configuration",
			wantMsg:    "Autotask credentials are not configured",
		},
		{
			name:       "invalid period",
			err:        utils.InvalidArgument("daterange.resolve", "unknown period \"someday\""),
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_argument",
			wantMsg:    "unknown period \"someday\"",
		},
		{
			name:       "network",
			err:        utils.NetworkError("autotask.zone", "zone info request returned 500", nil),
			wantStatus: http.StatusBadGateway,
			wantKind:   "network",
		},
		{
			name:       "provider",
			err:        &utils.ProviderError{Status: 401, Message: "401 Unauthorized"},
			wantStatus: http.StatusBadGateway,
			wantKind:   "provider",
		},
		{
			name:       "deadline",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestRouter(&reportsStub{salesErr: tt.err}, nil).
				ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sales-report?period=someday", nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			var body errorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Kind != tt.wantKind {
				t.Fatalf("expected kind %q, got %q", tt.wantKind, body.Kind)
			}
			if tt.wantMsg != "" && body.Error != tt.wantMsg {
				t.Fatalf("expected message %q, got %q", tt.wantMsg, body.Error)
			}
		})
	}
}

func TestTicketReportRoute(t *testing.T) {
	stub := &reportsStub{}
	rec := httptest.NewRecorder()
	newTestRouter(stub, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ticket-report?period=last-month", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(stub.periods) != 1 || stub.periods[0] != "last-month" {
		t.Fatalf("period not forwarded: %v", stub.periods)
	}
	var body services.TicketReport
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Scorecard.TicketsOpened != 4 || body.Scorecard.TicketsOver7Days != 1 {
		t.Fatalf("unexpected scorecard %+v", body.Scorecard)
	}

	unconfigured := &reportsStub{ticketErr: utils.ConfigurationError("services.tickets", "ticket reports not configured")}
	rec = httptest.NewRecorder()
	newTestRouter(unconfigured, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ticket-report", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if unconfigured.periods[0] != "this-month" {
		t.Fatalf("expected default period, got %v", unconfigured.periods)
	}
}

func TestQuarterlyReportRoute(t *testing.T) {
	stub := &reportsStub{}
	rec := httptest.NewRecorder()
	newTestRouter(stub, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/mrr-pbr/q3/2025", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Join(stub.quarterly, "/") != "mrr-pbr/q3/2025" {
		t.Fatalf("unexpected params %v", stub.quarterly)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Fatalf("payload not passed through: %s", rec.Body.String())
	}
}

func TestListQuarterlyReports(t *testing.T) {
	stub := &reportsStub{refs: []fixtures.Ref{{Type: fixtures.TypeMRR, Quarter: "q3", Year: 2025}}}
	rec := httptest.NewRecorder()
	newTestRouter(stub, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))
	var body struct {
		Reports []fixtures.Ref `json:"reports"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Reports) != 1 || body.Reports[0].Quarter != "q3" {
		t.Fatalf("unexpected list %+v", body.Reports)
	}
}

func TestClearCacheRoute(t *testing.T) {
	stub := &reportsStub{}
	router := newTestRouter(stub, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/clear", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/clear", nil))
	if rec.Code != http.StatusOK || stub.cleared != 1 {
		t.Fatalf("expected cache clear, got %d (cleared=%d)", rec.Code, stub.cleared)
	}
}

func TestAPIRequiresAuthentication(t *testing.T) {
	stub := &reportsStub{}
	rec := httptest.NewRecorder()
	newTestRouter(stub, rejectAll{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sales-report", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("expected WWW-Authenticate header")
	}
	if len(stub.periods) != 0 {
		t.Fatalf("handler should not run for rejected requests")
	}
}

func TestCORS(t *testing.T) {
	router := newTestRouter(&reportsStub{}, nil)
	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{name: "allowed", origin: "http://localhost:3000", want: "http://localhost:3000"},
		{name: "denied", origin: "http://evil.example", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/v1/sales-report", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Fatalf("expected allow origin %q, got %q", tt.want, got)
			}
		})
	}
}

func TestServerShutdown(t *testing.T) {
	srv := NewServer("127.0.0.1:0", newTestRouter(&reportsStub{}, nil), time.Second, time.Second, nil)
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe() }()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not stop")
	}
}
