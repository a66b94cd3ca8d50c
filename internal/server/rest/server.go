// Package rest exposes the storage services over HTTP using fiber.
package rest

import (
	"context"
	"net"
	"strings"

	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/server/config"
	"github.com/dmitrijs2005/gophdrive/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

// Services groups the components the handlers call into.
type Services struct {
	Quota   *services.QuotaLedger
	Files   *services.FileRegistry
	Uploads *services.UploadManager
	Redeem  *services.RedemptionEngine
	Share   *services.ShareGate
}

type Server struct {
	address       string
	publicBaseURL string
	jwtSecret     []byte
	svc           Services
	logger        logging.Logger
	app           *fiber.App
}

func NewServer(cfg *config.Config, l logging.Logger, svc Services) *Server {
	s := &Server{
		address:       cfg.EndpointAddrHTTP,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		jwtSecret:     []byte(cfg.SecretKey),
		svc:           svc,
		logger:        l.With("module", "http_server"),
	}

	s.app = fiber.New(fiber.Config{
		BodyLimit:             int(cfg.MaxUploadSize),
		StreamRequestBody:     true,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/share/:token/info", s.shareInfo)
	s.app.Get("/share/:token", s.shareDownload)
	s.app.Post("/share/:token", s.shareDownload)

	api := s.app.Group("/api", s.authMiddleware)

	api.Post("/upload/init", s.uploadInit)
	api.Post("/upload/chunk", s.uploadChunk)
	api.Post("/upload/complete", s.uploadComplete)
	api.Delete("/upload/:sessionId", s.uploadCancel)
	api.Post("/upload", s.uploadSingle)

	api.Get("/files", s.listFiles)
	api.Post("/files/delete", s.deleteFiles)
	api.Get("/files/:id", s.getFile)
	api.Get("/files/:id/download", s.downloadFile)
	api.Delete("/files/:id", s.deleteFile)
	api.Post("/files/:id/share", s.shareFile)
	api.Delete("/files/:id/share", s.unshareFile)

	api.Get("/quota", s.quota)
	api.Post("/redeem", s.redeem)
	api.Get("/redemptions", s.redemptions)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		if err := s.app.Shutdown(); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
		// covers a shutdown that raced ahead of Listener
		_ = listen.Close()
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	return s.app.Listener(listen)
}
