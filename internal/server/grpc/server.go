// Package grpc serves credential introspection to internal services.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/credgate/internal/logging"
	"github.com/dmitrijs2005/credgate/internal/server/models"
	"google.golang.org/grpc"
)

// AccessVerifier checks access tokens. services.SessionTokenService
// satisfies it.
type AccessVerifier interface {
	VerifyAccess(token string) (string, error)
}

// PermissionLookup resolves API keys. services.ApiKeyService satisfies it.
type PermissionLookup interface {
	GetPermission(ctx context.Context, token string) (models.Permission, error)
}

type GRPCServer struct {
	address    string
	sessions   AccessVerifier
	apiKeys    PermissionLookup
	logger     logging.Logger
	serviceKey string
}

var _ IntrospectionServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, sessions AccessVerifier, apiKeys PermissionLookup, serviceKey string) (*GRPCServer, error) {
	return &GRPCServer{
		address:    a,
		logger:     l.With("module", "grpc_server"),
		sessions:   sessions,
		apiKeys:    apiKeys,
		serviceKey: serviceKey,
	}, nil
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.serviceKeyInterceptor),
	)
	srv.RegisterService(&IntrospectionServiceDesc, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
