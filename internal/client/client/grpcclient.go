// Package client wraps the collaborator gRPC service for the admin CLI.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	gs "github.com/dmitrijs2005/gophdrive/internal/server/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("server unavailable")
)

// FoundCode is an issued mini-game code.
type FoundCode struct {
	Code  string
	Class string
	GB    float64
}

type GRPCClient struct {
	endpointURL string
	token       string
	conn        *grpc.ClientConn
	client      gs.CollaboratorClient
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(withAccessToken(ctx, s.token), method, req, reply, cc, opts...)
}

func NewCollaboratorClientService(endpointURL, token string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, token: token}
	conn, err := grpc.NewClient(c.endpointURL, grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithUnaryInterceptor(c.accessTokenInterceptor))
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = gs.NewCollaboratorClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) call(ctx context.Context, fn func(context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error), req map[string]any) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out, err := fn(ctx, in)
	if err != nil {
		return nil, s.mapError(err)
	}
	return out.AsMap(), nil
}

func (s *GRPCClient) GrantBonus(ctx context.Context, owner string, gb float64) (float64, error) {
	resp, err := s.call(ctx, s.client.GrantBonus, map[string]any{"owner": owner, "gb": gb})
	if err != nil {
		return 0, err
	}
	total, _ := resp["bonusGb"].(float64)
	return total, nil
}

func (s *GRPCClient) AssignTier(ctx context.Context, owner string, tierID int64) error {
	_, err := s.call(ctx, s.client.AssignTier, map[string]any{"owner": owner, "tierId": tierID})
	return err
}

func (s *GRPCClient) IssueSpecialCode(ctx context.Context, createdBy string, gb float64, maxUses int64) (string, error) {
	resp, err := s.call(ctx, s.client.IssueSpecialCode, map[string]any{"createdBy": createdBy, "gb": gb, "maxUses": maxUses})
	if err != nil {
		return "", err
	}
	code, _ := resp["code"].(string)
	return code, nil
}

func (s *GRPCClient) IssueFoundCode(ctx context.Context, owner, class string) (*FoundCode, error) {
	resp, err := s.call(ctx, s.client.IssueFoundCode, map[string]any{"owner": owner, "class": class})
	if err != nil {
		return nil, err
	}
	fc := &FoundCode{}
	fc.Code, _ = resp["code"].(string)
	fc.Class, _ = resp["class"].(string)
	fc.GB, _ = resp["gb"].(float64)
	return fc, nil
}

func (s *GRPCClient) IssueAccessToken(ctx context.Context, owner string, ttlHours float64) (string, error) {
	resp, err := s.call(ctx, s.client.IssueAccessToken, map[string]any{"owner": owner, "ttlHours": ttlHours})
	if err != nil {
		return "", err
	}
	tok, _ := resp["accessToken"].(string)
	return tok, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.InvalidArgument:
		return common.ErrorInvalidArgument
	case codes.NotFound:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
