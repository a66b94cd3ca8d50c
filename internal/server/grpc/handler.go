package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/server/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func numberField(s *structpb.Struct, key string) float64 {
	return s.GetFields()[key].GetNumberValue()
}

func reply(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

// mapError converts service errors to gRPC status codes.
func (s *GRPCServer) mapError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrTimeout):
		return status.Error(codes.DeadlineExceeded, common.ErrTimeout.Error())
	}
	s.logger.Error(ctx, err.Error())
	return status.Error(codes.Internal, "internal error")
}

// GrantBonus adds {gb} of permanent capacity to {owner}.
func (s *GRPCServer) GrantBonus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	owner := stringField(req, "owner")

	total, err := s.quota.GrantBonus(ctx, owner, numberField(req, "gb"))
	if err != nil {
		return nil, s.mapError(ctx, err)
	}

	s.logger.Info(ctx, "Bonus granted", "owner", owner, "gb", numberField(req, "gb"))
	return reply(map[string]any{"owner": owner, "bonusGb": total})
}

// AssignTier moves {owner} to subscription {tierId}.
func (s *GRPCServer) AssignTier(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	owner := stringField(req, "owner")
	tierID := int64(numberField(req, "tierId"))

	if err := s.quota.AssignTier(ctx, owner, tierID); err != nil {
		return nil, s.mapError(ctx, err)
	}

	return reply(map[string]any{"owner": owner, "tierId": tierID})
}

// IssueSpecialCode creates a code worth {gb} with {maxUses} uses.
func (s *GRPCServer) IssueSpecialCode(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := s.redeem.IssueSpecialCode(ctx, stringField(req, "createdBy"), numberField(req, "gb"), int64(numberField(req, "maxUses")))
	if err != nil {
		return nil, s.mapError(ctx, err)
	}

	return reply(map[string]any{"code": c.Code, "gb": c.GBAmount, "maxUses": c.MaxUses})
}

// IssueFoundCode creates a single-use code for {owner}, of {class} when given.
func (s *GRPCServer) IssueFoundCode(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := s.redeem.IssueFoundCode(ctx, stringField(req, "owner"), stringField(req, "class"))
	if err != nil {
		return nil, s.mapError(ctx, err)
	}

	return reply(map[string]any{"code": c.Code, "class": c.Class, "gb": c.GB})
}

// IssueAccessToken mints an HTTP API bearer token for {owner}.
func (s *GRPCServer) IssueAccessToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	owner := stringField(req, "owner")
	if owner == "" {
		return nil, status.Error(codes.InvalidArgument, common.ErrorInvalidArgument.Error())
	}

	ttl := defaultTokenTTL
	if h := numberField(req, "ttlHours"); h > 0 {
		ttl = time.Duration(h * float64(time.Hour))
	}

	tok, err := auth.GenerateToken(owner, s.jwtSecret, ttl)
	if err != nil {
		return nil, s.mapError(ctx, err)
	}

	return reply(map[string]any{
		"accessToken": tok,
		"expiresAt":   time.Now().Add(ttl).UTC().Format(time.RFC3339),
	})
}
