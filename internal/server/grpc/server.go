package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/server/services"
	"google.golang.org/grpc"
)

// defaultTokenTTL applies when IssueAccessToken is called without ttlHours.
const defaultTokenTTL = 24 * time.Hour

type GRPCServer struct {
	address           string
	quota             *services.QuotaLedger
	redeem            *services.RedemptionEngine
	logger            logging.Logger
	collaboratorToken []byte
	jwtSecret         []byte
}

func NewGRPCServer(a string, l logging.Logger, quota *services.QuotaLedger, redeem *services.RedemptionEngine, collaboratorToken, secretKey string) (*GRPCServer, error) {
	return &GRPCServer{
		address:           a,
		logger:            l.With("module", "grpc_server"),
		quota:             quota,
		redeem:            redeem,
		collaboratorToken: []byte(collaboratorToken),
		jwtSecret:         []byte(secretKey),
	}, nil
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.collaboratorTokenInterceptor))
	RegisterCollaboratorServer(srv, s)
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
		s.logger.Info(ctx, "Stopping gPRC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
