package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified introspection service name.
const ServiceName = "credgate.v1.Introspection"

const (
	verifyAccessMethod     = "/" + ServiceName + "/VerifyAccess"
	apiKeyPermissionMethod = "/" + ServiceName + "/ApiKeyPermission"
)

// IntrospectionServer lets internal services check credentials issued by
// credgate without sharing its signing secret or database.
//
// Messages are protobuf well-known wrappers on the default codec:
//
//	VerifyAccess      StringValue(access token) -> StringValue(uid)
//	ApiKeyPermission  StringValue(api key)      -> UInt32Value(permission bits)
type IntrospectionServer interface {
	VerifyAccess(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	ApiKeyPermission(context.Context, *wrapperspb.StringValue) (*wrapperspb.UInt32Value, error)
}

// IntrospectionServiceDesc describes the service for grpc.Server.RegisterService.
var IntrospectionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IntrospectionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "VerifyAccess", Handler: verifyAccessHandler},
		{MethodName: "ApiKeyPermission", Handler: apiKeyPermissionHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "credgate/v1/introspection",
}

func verifyAccessHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IntrospectionServer).VerifyAccess(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: verifyAccessMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IntrospectionServer).VerifyAccess(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func apiKeyPermissionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IntrospectionServer).ApiKeyPermission(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: apiKeyPermissionMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IntrospectionServer).ApiKeyPermission(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}
