package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "usagewatch.control.v1.AnomalyControl"

const (
	methodGetStatus     = "/" + ServiceName + "/GetStatus"
	methodTriggerRun    = "/" + ServiceName + "/TriggerRun"
	methodListAnomalies = "/" + ServiceName + "/ListAnomalies"
)

// AnomalyControlServer is the server API. Requests and responses are
// google.protobuf.Struct so no generated code is needed.
type AnomalyControlServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	TriggerRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAnomalies(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterAnomalyControlServer(s grpc.ServiceRegistrar, srv AnomalyControlServer) {
	s.RegisterService(&AnomalyControl_ServiceDesc, srv)
}

// -----------------------------------------------------------------------------

func _AnomalyControl_GetStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnomalyControlServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetStatus}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AnomalyControlServer).GetStatus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _AnomalyControl_TriggerRun_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnomalyControlServer).TriggerRun(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodTriggerRun}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AnomalyControlServer).TriggerRun(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _AnomalyControl_ListAnomalies_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnomalyControlServer).ListAnomalies(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListAnomalies}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AnomalyControlServer).ListAnomalies(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// AnomalyControl_ServiceDesc is the grpc.ServiceDesc for the control service.
var AnomalyControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnomalyControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: _AnomalyControl_GetStatus_Handler},
		{MethodName: "TriggerRun", Handler: _AnomalyControl_TriggerRun_Handler},
		{MethodName: "ListAnomalies", Handler: _AnomalyControl_ListAnomalies_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "usagewatch/control/v1/control.proto",
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

type AnomalyControlClient interface {
	GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	TriggerRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListAnomalies(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type anomalyControlClient struct {
	cc grpc.ClientConnInterface
}

func NewAnomalyControlClient(cc grpc.ClientConnInterface) AnomalyControlClient {
	return &anomalyControlClient{cc}
}

func (c *anomalyControlClient) GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetStatus, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *anomalyControlClient) TriggerRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodTriggerRun, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *anomalyControlClient) ListAnomalies(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodListAnomalies, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
