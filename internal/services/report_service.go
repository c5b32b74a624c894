package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/totalcareit/partner-metrics/internal/daterange"
	"github.com/totalcareit/partner-metrics/internal/fixtures"
	"github.com/totalcareit/partner-metrics/internal/metrics"
	"github.com/totalcareit/partner-metrics/internal/salesreport"
	"github.com/totalcareit/partner-metrics/internal/ticketreport"
	"github.com/totalcareit/partner-metrics/internal/utils"
)

// Report data sources.
const (
	SourceAutotask = "autotask"
	SourceSample   = "sample"
)

// SalesDataSource fetches raw sales collections for a window.
type SalesDataSource interface {
	Configured() bool
	FetchSalesData(ctx context.Context, r daterange.DateRange) (salesreport.RawPayload, error)
	ClearCache(ctx context.Context) error
}

// TicketDataSource fetches the tickets created in a window.
type TicketDataSource interface {
	Configured() bool
	FetchTickets(ctx context.Context, r daterange.DateRange) ([]ticketreport.Ticket, error)
}

// QuarterlySource serves quarterly business-review fixtures.
type QuarterlySource interface {
	ParseRef(reportType, quarter, year string) (fixtures.Ref, error)
	Load(ctx context.Context, ref fixtures.Ref) (json.RawMessage, error)
	List(ctx context.Context) ([]fixtures.Ref, error)
}

// SalesReport is one rendered sales dashboard.
type SalesReport struct {
	ID               string                    `json:"id"`
	Period           string                    `json:"period"`
	Range            daterange.DateRange       `json:"range"`
	ComparisonPeriod string                    `json:"comparisonPeriod,omitempty"`
	GeneratedAt      time.Time                 `json:"generatedAt"`
	Source           string                    `json:"source"`
	Warnings         []string                  `json:"warnings"`
	Record           salesreport.MetricsRecord `json:"record"`
	Previous         *salesreport.Counters     `json:"previous,omitempty"`
	Summary          salesreport.Summary       `json:"summary"`
}

// TicketReport is the service-desk scorecard for one period.
type TicketReport struct {
	ID          string                 `json:"id"`
	Period      string                 `json:"period"`
	Range       daterange.DateRange    `json:"range"`
	GeneratedAt time.Time              `json:"generatedAt"`
	Source      string                 `json:"source"`
	Warnings    []string               `json:"warnings"`
	Scorecard   ticketreport.Scorecard `json:"scorecard"`
}

// QuarterlyReport wraps a fixture payload.
type QuarterlyReport struct {
	ID          string          `json:"id"`
	Ref         fixtures.Ref    `json:"ref"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Data        json.RawMessage `json:"data"`
}

// Option customises a ReportService.
type Option func(*ReportService)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(s *ReportService) { s.clock = clock }
}

// WithResolver sets the policy for unknown period names.
func WithResolver(resolver daterange.Resolver) Option {
	return func(s *ReportService) { s.resolver = resolver }
}

// WithLocation sets the timezone calendar windows are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *ReportService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithTickets enables ticket scorecards.
func WithTickets(src TicketDataSource) Option {
	return func(s *ReportService) { s.tickets = src }
}

// ReportService builds sales and quarterly reports for every transport.
type ReportService struct {
	logger    *slog.Logger
	sales     SalesDataSource
	quarterly QuarterlySource
	tickets   TicketDataSource
	resolver  daterange.Resolver
	clock     clockwork.Clock
	location  *time.Location
	latencies *utils.LatencyTracker
	builds    atomic.Int64
}

// NewReportService constructs the report facade. Either source may be nil: sales
// reports then fall back to sample data, quarterly reports fail with a configuration error.
func NewReportService(logger *slog.Logger, sales SalesDataSource, quarterly QuarterlySource, opts ...Option) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ReportService{
		logger:    logger,
		sales:     sales,
		quarterly: quarterly,
		clock:     clockwork.NewRealClock(),
		location:  time.Local,
		latencies: utils.NewLatencyTracker(1024),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SalesReport resolves period, fetches the period and its comparison period
// concurrently, and shapes the result. Provider failures never fail the report: the
// sample dataset is substituted and the reason is listed in Warnings.
func (s *ReportService) SalesReport(ctx context.Context, period string) (*SalesReport, error) {
	start := time.Now()
	now := s.clock.Now().In(s.location)

	current, name, err := s.resolver.Resolve(period, now)
	if err != nil {
		return nil, err
	}
	report := &SalesReport{
		ID:          uuid.NewString(),
		Period:      name,
		Range:       current,
		GeneratedAt: now,
		Warnings:    []string{},
	}
	if name != daterange.Normalize(period) {
		report.Warnings = append(report.Warnings, fmt.Sprintf("unknown period %q, showing %s", period, name))
	}

	var previous *daterange.DateRange
	if prevName := daterange.Previous(name); prevName != "" {
		if rng, _, err := s.resolver.Resolve(prevName, now); err == nil {
			report.ComparisonPeriod = prevName
			previous = &rng
		}
	}

	if s.sales == nil || !s.sales.Configured() {
		s.useSample(report, now, "Autotask is not configured; showing sample data")
		s.observe(report.Source, start)
		return report, nil
	}

	var (
		wg              sync.WaitGroup
		curRaw, prevRaw salesreport.RawPayload
		curErr, prevErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		curRaw, curErr = s.sales.FetchSalesData(ctx, current)
	}()
	if previous != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prevRaw, prevErr = s.sales.FetchSalesData(ctx, *previous)
		}()
	}
	wg.Wait()

	if curErr != nil && isEmpty(curRaw) {
		s.logger.Warn("sales data unavailable, using sample", slog.String("period", name), slog.Any("error", curErr))
		s.useSample(report, now, "Autotask data unavailable; showing sample data: "+describe(curErr))
		s.observe(report.Source, start)
		return report, nil
	}
	if curErr != nil {
		s.logger.Warn("sales data partially unavailable", slog.String("period", name), slog.Any("error", curErr))
		report.Warnings = append(report.Warnings, "some Autotask data could not be loaded: "+describe(curErr))
	}

	tctx := salesreport.Context{Now: now, Location: s.location}
	report.Source = SourceAutotask
	report.Record = salesreport.Transform(curRaw, tctx)

	if previous != nil {
		if prevErr != nil && isEmpty(prevRaw) {
			s.logger.Warn("comparison data unavailable", slog.String("period", report.ComparisonPeriod), slog.Any("error", prevErr))
			report.Warnings = append(report.Warnings, "comparison period unavailable: "+describe(prevErr))
		} else {
			counters := salesreport.Transform(prevRaw, tctx).Counters
			report.Previous = &counters
		}
	}
	report.Summary = salesreport.Summarize(report.Record.Counters, report.Previous)
	s.observe(report.Source, start)
	return report, nil
}

// TicketReport scores the tickets created in period. Unlike sales reports there is no
// sample fallback: a missing or failing ticket source is an error.
func (s *ReportService) TicketReport(ctx context.Context, period string) (*TicketReport, error) {
	start := time.Now()
	now := s.clock.Now().In(s.location)

	window, name, err := s.resolver.Resolve(period, now)
	if err != nil {
		return nil, err
	}
	if s.tickets == nil || !s.tickets.Configured() {
		return nil, utils.ConfigurationError("services.tickets", "ticket reports not configured")
	}
	report := &TicketReport{
		ID:          uuid.NewString(),
		Period:      name,
		Range:       window,
		GeneratedAt: now,
		Source:      SourceAutotask,
		Warnings:    []string{},
	}
	if name != daterange.Normalize(period) {
		report.Warnings = append(report.Warnings, fmt.Sprintf("unknown period %q, showing %s", period, name))
	}

	tickets, err := s.tickets.FetchTickets(ctx, window)
	if err != nil {
		s.logger.Warn("ticket data unavailable", slog.String("period", name), slog.Any("error", err))
		return nil, err
	}
	report.Scorecard = ticketreport.Calculate(tickets, ticketreport.Context{Window: window, Now: now, Location: s.location})
	s.observe(report.Source, start)
	return report, nil
}

// QuarterlyReport loads the fixture identified by reportType, quarter and year.
func (s *ReportService) QuarterlyReport(ctx context.Context, reportType, quarter, year string) (*QuarterlyReport, error) {
	if s.quarterly == nil {
		return nil, utils.ConfigurationError("services.quarterly", "quarterly reports not configured")
	}
	ref, err := s.quarterly.ParseRef(reportType, quarter, year)
	if err != nil {
		return nil, err
	}
	data, err := s.quarterly.Load(ctx, ref)
	if err != nil {
		s.logger.Warn("quarterly report unavailable", slog.String("file", ref.Filename()), slog.Any("error", err))
		return nil, err
	}
	return &QuarterlyReport{ID: uuid.NewString(), Ref: ref, GeneratedAt: s.clock.Now(), Data: data}, nil
}

// QuarterlyReports lists available quarterly fixtures.
func (s *ReportService) QuarterlyReports(ctx context.Context) ([]fixtures.Ref, error) {
	if s.quarterly == nil {
		return nil, utils.ConfigurationError("services.quarterly", "quarterly reports not configured")
	}
	return s.quarterly.List(ctx)
}

// ClearCache drops cached provider responses.
func (s *ReportService) ClearCache(ctx context.Context) error {
	if s.sales == nil {
		return nil
	}
	return s.sales.ClearCache(ctx)
}

// LatencyP95 returns the current p95 report build latency.
func (s *ReportService) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}

func (s *ReportService) useSample(report *SalesReport, now time.Time, warning string) {
	record, previous := salesreport.SampleRecord(now)
	report.Source = SourceSample
	report.Record = record
	report.Previous = &previous
	report.Summary = salesreport.Summarize(record.Counters, &previous)
	report.Warnings = append(report.Warnings, warning)
}

func (s *ReportService) observe(source string, start time.Time) {
	duration := time.Since(start)
	s.latencies.Observe(duration)
	metrics.ObserveReport(duration, source)
	if count := s.builds.Add(1); count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("report latency", slog.Duration("p95", p95), slog.Int64("builds", count))
	}
}

func isEmpty(raw salesreport.RawPayload) bool {
	return raw.Opportunities == nil && raw.Activities == nil && raw.Appointments == nil
}

func describe(err error) string {
	var perr *utils.ProviderError
	if errors.As(err, &perr) {
		return fmt.Sprintf("provider returned %d", perr.Status)
	}
	return err.Error()
}
