package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Messages travel as google.protobuf.Struct so the service needs no generated code. Every
// response carries a "status" object of {success, message}.

const (
	FarmServiceName = "farm.FarmService"

	FarmService_IngestReading_FullMethodName = "/farm.FarmService/IngestReading"
	FarmService_ListAlerts_FullMethodName    = "/farm.FarmService/ListAlerts"
	FarmService_PostLimiter_FullMethodName   = "/farm.FarmService/PostLimiter"
)

type FarmServiceServer interface {
	IngestReading(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAlerts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PostLimiter(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type UnimplementedFarmServiceServer struct{}

func (UnimplementedFarmServiceServer) IngestReading(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method IngestReading not implemented")
}
func (UnimplementedFarmServiceServer) ListAlerts(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListAlerts not implemented")
}
func (UnimplementedFarmServiceServer) PostLimiter(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method PostLimiter not implemented")
}

func RegisterFarmServiceServer(s grpc.ServiceRegistrar, srv FarmServiceServer) {
	s.RegisterService(&FarmService_ServiceDesc, srv)
}

func unaryHandler(
	fullMethod string,
	call func(FarmServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FarmServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(FarmServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var FarmService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: FarmServiceName,
	HandlerType: (*FarmServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "IngestReading",
			Handler:    unaryHandler(FarmService_IngestReading_FullMethodName, FarmServiceServer.IngestReading),
		},
		{
			MethodName: "ListAlerts",
			Handler:    unaryHandler(FarmService_ListAlerts_FullMethodName, FarmServiceServer.ListAlerts),
		},
		{
			MethodName: "PostLimiter",
			Handler:    unaryHandler(FarmService_PostLimiter_FullMethodName, FarmServiceServer.PostLimiter),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "farm.FarmService (google.protobuf.Struct messages)",
}

type FarmServiceClient interface {
	IngestReading(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListAlerts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	PostLimiter(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type farmServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewFarmServiceClient(cc grpc.ClientConnInterface) FarmServiceClient {
	return &farmServiceClient{cc}
}

func (c *farmServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *farmServiceClient) IngestReading(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, FarmService_IngestReading_FullMethodName, in, opts)
}

func (c *farmServiceClient) ListAlerts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, FarmService_ListAlerts_FullMethodName, in, opts)
}

func (c *farmServiceClient) PostLimiter(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, FarmService_PostLimiter_FullMethodName, in, opts)
}
