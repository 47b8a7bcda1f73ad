// Package apiv1 is the gRPC control API of the supervisor daemon. Requests
// and responses are protobuf well-known types, so the service descriptor is
// registered by hand instead of generated.
package apiv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "supervisor.v1.SupervisorService"

const (
	SupervisorService_Start_FullMethodName        = "/supervisor.v1.SupervisorService/Start"
	SupervisorService_Stop_FullMethodName         = "/supervisor.v1.SupervisorService/Stop"
	SupervisorService_Restart_FullMethodName      = "/supervisor.v1.SupervisorService/Restart"
	SupervisorService_Status_FullMethodName       = "/supervisor.v1.SupervisorService/Status"
	SupervisorService_SendCommand_FullMethodName  = "/supervisor.v1.SupervisorService/SendCommand"
	SupervisorService_StreamEvents_FullMethodName = "/supervisor.v1.SupervisorService/StreamEvents"
)

// SupervisorServiceClient is the client API for SupervisorService.
//
// Start, Stop, Restart and Status answer with a status struct (see
// StatusToProto). StreamEvents sends event structs (see EventToProto).
type SupervisorServiceClient interface {
	Start(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Stop(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Restart(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Status(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	SendCommand(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	StreamEvents(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
}

type supervisorServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSupervisorServiceClient(cc grpc.ClientConnInterface) SupervisorServiceClient {
	return &supervisorServiceClient{cc}
}

func (c *supervisorServiceClient) Start(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, SupervisorService_Start_FullMethodName, in, opts)
}

func (c *supervisorServiceClient) Stop(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, SupervisorService_Stop_FullMethodName, in, opts)
}

func (c *supervisorServiceClient) Restart(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, SupervisorService_Restart_FullMethodName, in, opts)
}

func (c *supervisorServiceClient) Status(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, SupervisorService_Status_FullMethodName, in, opts)
}

func (c *supervisorServiceClient) SendCommand(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, SupervisorService_SendCommand_FullMethodName, in, opts)
}

func (c *supervisorServiceClient) StreamEvents(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &SupervisorService_ServiceDesc.Streams[0], SupervisorService_StreamEvents_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func invoke[Res any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Res, error) {
	out := new(Res)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// SupervisorServiceServer is the server API for SupervisorService.
type SupervisorServiceServer interface {
	Start(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Stop(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Restart(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SendCommand(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	StreamEvents(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

// UnimplementedSupervisorServiceServer must be embedded to have forward
// compatible implementations.
type UnimplementedSupervisorServiceServer struct{}

func (UnimplementedSupervisorServiceServer) Start(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Start not implemented")
}
func (UnimplementedSupervisorServiceServer) Stop(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Stop not implemented")
}
func (UnimplementedSupervisorServiceServer) Restart(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Restart not implemented")
}
func (UnimplementedSupervisorServiceServer) Status(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Status not implemented")
}
func (UnimplementedSupervisorServiceServer) SendCommand(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SendCommand not implemented")
}
func (UnimplementedSupervisorServiceServer) StreamEvents(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error {
	return status.Errorf(codes.Unimplemented, "method StreamEvents not implemented")
}

func RegisterSupervisorServiceServer(s grpc.ServiceRegistrar, srv SupervisorServiceServer) {
	s.RegisterService(&SupervisorService_ServiceDesc, srv)
}

// unaryHandler adapts one typed server method to a grpc.MethodDesc handler.
func unaryHandler[Req any, Res any](fullMethod string, call func(SupervisorServiceServer, context.Context, *Req) (*Res, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SupervisorServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SupervisorServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func _SupervisorService_StreamEvents_Handler(srv any, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(SupervisorServiceServer).StreamEvents(m, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

// SupervisorService_ServiceDesc is the grpc.ServiceDesc for SupervisorService.
var SupervisorService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SupervisorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Start",
			Handler:    unaryHandler(SupervisorService_Start_FullMethodName, SupervisorServiceServer.Start),
		},
		{
			MethodName: "Stop",
			Handler:    unaryHandler(SupervisorService_Stop_FullMethodName, SupervisorServiceServer.Stop),
		},
		{
			MethodName: "Restart",
			Handler:    unaryHandler(SupervisorService_Restart_FullMethodName, SupervisorServiceServer.Restart),
		},
		{
			MethodName: "Status",
			Handler:    unaryHandler(SupervisorService_Status_FullMethodName, SupervisorServiceServer.Status),
		},
		{
			MethodName: "SendCommand",
			Handler:    unaryHandler(SupervisorService_SendCommand_FullMethodName, SupervisorServiceServer.SendCommand),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamEvents",
			Handler:       _SupervisorService_StreamEvents_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "api/v1/service.go",
}
