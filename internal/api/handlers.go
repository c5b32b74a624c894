package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/totalcareit/partner-metrics/internal/fixtures"
	"github.com/totalcareit/partner-metrics/internal/services"
	"github.com/totalcareit/partner-metrics/internal/utils"
)

// ReportBuilder is the report facade the transports call into.
type ReportBuilder interface {
	SalesReport(ctx context.Context, period string) (*services.SalesReport, error)
	TicketReport(ctx context.Context, period string) (*services.TicketReport, error)
	QuarterlyReport(ctx context.Context, reportType, quarter, year string) (*services.QuarterlyReport, error)
	QuarterlyReports(ctx context.Context) ([]fixtures.Ref, error)
	ClearCache(ctx context.Context) error
}

// MetricsServer implements MetricsServiceServer on top of a ReportBuilder.
type MetricsServer struct {
	logger  *slog.Logger
	reports ReportBuilder
}

// NewMetricsServer constructs the gRPC facade.
func NewMetricsServer(logger *slog.Logger, reports ReportBuilder) *MetricsServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricsServer{logger: logger, reports: reports}
}

// GetSalesReport expects {"period": "this-month"}.
func (s *MetricsServer) GetSalesReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.reports == nil {
		return nil, status.Error(codes.FailedPrecondition, "report service not configured")
	}
	period := stringField(req, "period")
	if period == "" {
		period = "this-month"
	}
	report, err := s.reports.SalesReport(ctx, period)
	if err != nil {
		s.logger.Error("sales report failed", slog.String("period", period), slog.Any("error", err))
		return nil, StatusFromError(err)
	}
	return toStruct(report)
}

// GetTicketReport expects {"period": "this-month"}.
func (s *MetricsServer) GetTicketReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.reports == nil {
		return nil, status.Error(codes.FailedPrecondition, "report service not configured")
	}
	period := stringField(req, "period")
	if period == "" {
		period = "this-month"
	}
	report, err := s.reports.TicketReport(ctx, period)
	if err != nil {
		s.logger.Error("ticket report failed", slog.String("period", period), slog.Any("error", err))
		return nil, StatusFromError(err)
	}
	return toStruct(report)
}

// GetQuarterlyReport expects {"type": "mrr-pbr", "quarter": "Q3", "year": 2025}.
func (s *MetricsServer) GetQuarterlyReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.reports == nil {
		return nil, status.Error(codes.FailedPrecondition, "report service not configured")
	}
	report, err := s.reports.QuarterlyReport(ctx, stringField(req, "type"), stringField(req, "quarter"), stringField(req, "year"))
	if err != nil {
		return nil, StatusFromError(err)
	}
	return toStruct(report)
}

// ListQuarterlyReports returns {"reports": [...]}.
func (s *MetricsServer) ListQuarterlyReports(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s.reports == nil {
		return nil, status.Error(codes.FailedPrecondition, "report service not configured")
	}
	refs, err := s.reports.QuarterlyReports(ctx)
	if err != nil {
		return nil, StatusFromError(err)
	}
	return toStruct(map[string]any{"reports": refs})
}

// ClearCache drops cached provider responses and returns {"cleared": true}.
func (s *MetricsServer) ClearCache(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s.reports == nil {
		return nil, status.Error(codes.FailedPrecondition, "report service not configured")
	}
	if err := s.reports.ClearCache(ctx); err != nil {
		s.logger.Error("cache clear failed", slog.Any("error", err))
		return nil, StatusFromError(err)
	}
	return structpb.NewStruct(map[string]any{"cleared": true})
}

// StatusFromError maps service errors onto gRPC status codes.
func StatusFromError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := codes.Internal
	switch {
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case utils.IsKind(err, utils.KindConfiguration):
		code = codes.FailedPrecondition
	case utils.IsKind(err, utils.KindInvalidArgument):
		code = codes.InvalidArgument
	case utils.IsKind(err, utils.KindNotFound):
		code = codes.NotFound
	case utils.IsKind(err, utils.KindMalformed):
		code = codes.DataLoss
	case utils.IsKind(err, utils.KindNetwork):
		code = codes.Unavailable
	default:
		if _, ok := utils.AsProviderError(err); ok {
			code = codes.Unavailable
		}
	}
	return status.Error(code, err.Error())
}

func stringField(req *structpb.Struct, name string) string {
	v, ok := req.GetFields()[name]
	if !ok {
		return ""
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(kind.NumberValue, 'f', -1, 64)
	}
	return ""
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("convert response: %v", err))
	}
	return out, nil
}
