package grpc

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// collaboratorTokenInterceptor admits collaborator calls carrying the shared
// token in the access_token metadata key.
func (s *GRPCServer) collaboratorTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if strings.HasPrefix(info.FullMethod, "/"+ServiceName+"/") {

		var token string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			values := md.Get(common.AccessTokenHeaderName)
			if len(values) > 0 {
				token = values[0]
			}
		}
		if len(token) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		if subtle.ConstantTimeCompare([]byte(token), s.collaboratorToken) != 1 {
			s.logger.Warn(ctx, "rejected collaborator call", "method", info.FullMethod)
			return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
		}

	}

	return handler(ctx, req)
}
