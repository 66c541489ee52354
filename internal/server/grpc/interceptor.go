package grpc

import (
	"context"
	"crypto/subtle"

	"github.com/dmitrijs2005/credgate/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// serviceKeyInterceptor rejects callers that do not present the configured
// service key. With no key configured every call is let through.
func (s *GRPCServer) serviceKeyInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if s.serviceKey == "" {
		return handler(ctx, req)
	}

	var presented string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.ServiceKeyHeaderName)
		if len(values) > 0 {
			presented = values[0]
		}
	}
	if len(presented) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing service key")
	}

	if subtle.ConstantTimeCompare([]byte(presented), []byte(s.serviceKey)) != 1 {
		s.logger.Warn(ctx, "rejected introspection call", "method", info.FullMethod)
		return nil, status.Error(codes.Unauthenticated, "invalid service key")
	}

	return handler(ctx, req)
}
