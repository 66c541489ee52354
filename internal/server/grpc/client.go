package grpc

import (
	"context"

	"github.com/dmitrijs2005/credgate/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// IntrospectionClient calls the introspection service.
type IntrospectionClient struct {
	cc         grpc.ClientConnInterface
	serviceKey string
}

// NewIntrospectionClient wraps cc. serviceKey is sent with every call when
// not empty.
func NewIntrospectionClient(cc grpc.ClientConnInterface, serviceKey string) *IntrospectionClient {
	return &IntrospectionClient{cc: cc, serviceKey: serviceKey}
}

func (c *IntrospectionClient) outgoing(ctx context.Context) context.Context {
	if c.serviceKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, common.ServiceKeyHeaderName, c.serviceKey)
}

func (c *IntrospectionClient) VerifyAccess(ctx context.Context, token string) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(c.outgoing(ctx), verifyAccessMethod, wrapperspb.String(token), out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (c *IntrospectionClient) ApiKeyPermission(ctx context.Context, token string) (uint32, error) {
	out := new(wrapperspb.UInt32Value)
	if err := c.cc.Invoke(c.outgoing(ctx), apiKeyPermissionMethod, wrapperspb.String(token), out); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}
