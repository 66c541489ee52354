package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/credgate/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func (s *GRPCServer) VerifyAccess(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {

	uid, err := s.sessions.VerifyAccess(req.GetValue())
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return wrapperspb.String(uid), nil
}

func (s *GRPCServer) ApiKeyPermission(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.UInt32Value, error) {

	perm, err := s.apiKeys.GetPermission(ctx, req.GetValue())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, status.Error(codes.NotFound, "api key not found")
		}
		s.logger.Error(ctx, "permission lookup failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	return wrapperspb.UInt32(uint32(perm)), nil
}
