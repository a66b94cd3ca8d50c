// Package config handles configuration for the server component,
// including defaults, JSON overlay, command-line flags and validation.
package config

import "time"

// Config holds runtime settings for the gophdrive server.
//
// Fields:
//   - EndpointAddrHTTP / EndpointAddrGRPC: bind addresses of the public HTTP API
//     and the collaborator gRPC endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects in-memory repositories.
//   - SecretKey: HMAC secret used to verify access JWTs (HS256).
//   - CollaboratorToken: shared token the mini-game and admin tooling present over gRPC.
//   - BlobBackend: "fs" or "s3". FSRoot is used by "fs", the S3* fields by "s3".
//   - SessionBackend: "memory" or "redis"; RedisAddr is used by "redis".
//   - SessionTTL: idle time after which an upload session is abandoned.
//   - SweepInterval: how often abandoned sessions are reclaimed.
//   - OpTimeout: deadline applied to every database, blob, Redis and scanner call.
//   - MinTransferRate: slowest accepted blob throughput, bytes per second. Calls
//     that move file bytes get OpTimeout plus the time this rate needs for them.
//   - MaxPartSize / MaxUploadSize: byte limits of one chunk and one request body.
//   - Scanner: "clamd" or "none"; ClamdAddr is used by "clamd".
//   - LogLevel: debug, info, warn or error.
//   - PublicBaseURL: prefix of generated share links.
type Config struct {
	EndpointAddrHTTP  string        `validate:"required"`
	EndpointAddrGRPC  string        `validate:"required"`
	DatabaseDSN       string
	SecretKey         string        `validate:"required"`
	CollaboratorToken string        `validate:"required"`
	BlobBackend       string        `validate:"oneof=fs s3"`
	FSRoot            string        `validate:"required_if=BlobBackend fs"`
	S3RootUser        string        `validate:"required_if=BlobBackend s3"`
	S3RootPassword    string        `validate:"required_if=BlobBackend s3"`
	S3Bucket          string        `validate:"required_if=BlobBackend s3"`
	S3Region          string        `validate:"required_if=BlobBackend s3"`
	S3BaseEndpoint    string        `validate:"omitempty,url"`
	SessionBackend    string        `validate:"oneof=memory redis"`
	RedisAddr         string        `validate:"required_if=SessionBackend redis"`
	SessionTTL        time.Duration `validate:"gt=0"`
	SweepInterval     time.Duration `validate:"gt=0"`
	OpTimeout         time.Duration `validate:"gt=0"`
	MinTransferRate   int64         `validate:"gt=0"`
	MaxPartSize       int64         `validate:"gt=0"`
	MaxUploadSize     int64         `validate:"gtefield=MaxPartSize"`
	Scanner           string        `validate:"oneof=clamd none"`
	ClamdAddr         string        `validate:"required_if=Scanner clamd"`
	LogLevel          string        `validate:"oneof=debug info warn error"`
	PublicBaseURL     string        `validate:"required,url"`
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.CollaboratorToken = "collaboratorToken"
	c.BlobBackend = "fs"
	c.FSRoot = "data"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "drive"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.SessionBackend = "memory"
	c.RedisAddr = "127.0.0.1:6379"
	c.SessionTTL = 24 * time.Hour
	c.SweepInterval = 10 * time.Minute
	c.OpTimeout = 30 * time.Second
	c.MinTransferRate = 4 << 20
	c.MaxPartSize = 64 << 20
	c.MaxUploadSize = 1 << 30
	c.Scanner = "none"
	c.ClamdAddr = "127.0.0.1:3310"
	c.LogLevel = "info"
	c.PublicBaseURL = "http://localhost:8080"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags. It panics
// when the result fails validation.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	if err := Validate(cfg); err != nil {
		panic(err)
	}
	return cfg
}
