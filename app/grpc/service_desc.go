package grpc

import (
	"context"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	SessionServiceName = "accounts.v1.SessionService"

	ValidateSessionMethod = "/" + SessionServiceName + "/ValidateSession"
	GetUserMethod         = "/" + SessionServiceName + "/GetUser"
)

// SessionServiceServer is served over well-known protobuf types so no
// generated code is needed on either side.
type SessionServiceServer interface {
	ValidateSession(ctx context.Context, token *wrapperspb.StringValue) (*wrapperspb.UInt64Value, error)
	GetUser(ctx context.Context, id *wrapperspb.UInt64Value) (*structpb.Struct, error)
}

var SessionServiceDesc = gogrpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []gogrpc.MethodDesc{
		{MethodName: "ValidateSession", Handler: validateSessionHandler},
		{MethodName: "GetUser", Handler: getUserHandler},
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "accounts/v1/session.proto",
}

func RegisterSessionServiceServer(s gogrpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionServiceDesc, srv)
}

func validateSessionHandler(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServiceServer).ValidateSession(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: ValidateSessionMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SessionServiceServer).ValidateSession(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getUserHandler(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.UInt64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServiceServer).GetUser(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: GetUserMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SessionServiceServer).GetUser(ctx, req.(*wrapperspb.UInt64Value))
	}
	return interceptor(ctx, in, info, handler)
}

type SessionServiceClient struct {
	cc gogrpc.ClientConnInterface
}

func NewSessionServiceClient(cc gogrpc.ClientConnInterface) *SessionServiceClient {
	return &SessionServiceClient{cc: cc}
}

func (c *SessionServiceClient) ValidateSession(ctx context.Context, token string, opts ...gogrpc.CallOption) (uint64, error) {
	out := new(wrapperspb.UInt64Value)
	if err := c.cc.Invoke(ctx, ValidateSessionMethod, wrapperspb.String(token), out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

func (c *SessionServiceClient) GetUser(ctx context.Context, id uint64, opts ...gogrpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetUserMethod, wrapperspb.UInt64(id), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
