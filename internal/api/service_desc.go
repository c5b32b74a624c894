package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "partnermetrics.v1.MetricsService"

// Full method names, used by interceptors and clients.
const (
	MethodGetSalesReport       = "/" + ServiceName + "/GetSalesReport"
	MethodGetTicketReport      = "/" + ServiceName + "/GetTicketReport"
	MethodGetQuarterlyReport   = "/" + ServiceName + "/GetQuarterlyReport"
	MethodListQuarterlyReports = "/" + ServiceName + "/ListQuarterlyReports"
	MethodClearCache           = "/" + ServiceName + "/ClearCache"
)

// MetricsServiceServer is the server API. Messages are google.protobuf.Struct so the
// portal's JSON shapes travel unchanged.
type MetricsServiceServer interface {
	GetSalesReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTicketReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetQuarterlyReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListQuarterlyReports(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearCache(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterMetricsServiceServer attaches srv to s.
func RegisterMetricsServiceServer(s grpc.ServiceRegistrar, srv MetricsServiceServer) {
	s.RegisterService(&metricsServiceDesc, srv)
}

var metricsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MetricsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSalesReport", Handler: unaryHandler(MethodGetSalesReport, MetricsServiceServer.GetSalesReport)},
		{MethodName: "GetTicketReport", Handler: unaryHandler(MethodGetTicketReport, MetricsServiceServer.GetTicketReport)},
		{MethodName: "GetQuarterlyReport", Handler: unaryHandler(MethodGetQuarterlyReport, MetricsServiceServer.GetQuarterlyReport)},
		{MethodName: "ListQuarterlyReports", Handler: unaryHandler(MethodListQuarterlyReports, MetricsServiceServer.ListQuarterlyReports)},
		{MethodName: "ClearCache", Handler: unaryHandler(MethodClearCache, MetricsServiceServer.ClearCache)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "partnermetrics/v1/metrics.proto",
}

type structMethod func(MetricsServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call structMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MetricsServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(MetricsServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// MetricsServiceClient is the client API for MetricsService.
type MetricsServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewMetricsServiceClient wraps an established connection.
func NewMetricsServiceClient(cc grpc.ClientConnInterface) *MetricsServiceClient {
	return &MetricsServiceClient{cc: cc}
}

func (c *MetricsServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSalesReport calls MetricsService.GetSalesReport.
func (c *MetricsServiceClient) GetSalesReport(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetSalesReport, in, opts...)
}

// GetTicketReport calls MetricsService.GetTicketReport.
func (c *MetricsServiceClient) GetTicketReport(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetTicketReport, in, opts...)
}

// GetQuarterlyReport calls MetricsService.GetQuarterlyReport.
func (c *MetricsServiceClient) GetQuarterlyReport(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetQuarterlyReport, in, opts...)
}

// ListQuarterlyReports calls MetricsService.ListQuarterlyReports.
func (c *MetricsServiceClient) ListQuarterlyReports(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListQuarterlyReports, in, opts...)
}

// ClearCache calls MetricsService.ClearCache.
func (c *MetricsServiceClient) ClearCache(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodClearCache, in, opts...)
}
