package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Empty(t, c.DatabaseDSN)
	assert.Equal(t, "secretKey", c.SecretKey)
	assert.Equal(t, "fs", c.BlobBackend)
	assert.Equal(t, "memory", c.SessionBackend)
	assert.Equal(t, 24*time.Hour, c.SessionTTL)
	assert.Equal(t, 10*time.Minute, c.SweepInterval)
	assert.Equal(t, 30*time.Second, c.OpTimeout)
	assert.EqualValues(t, 4<<20, c.MinTransferRate)
	assert.EqualValues(t, 64<<20, c.MaxPartSize)
	assert.Equal(t, "none", c.Scanner)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	c := LoadConfig()

	require.NotNil(t, c, "LoadConfig must not return nil")

	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, "http://localhost:8080", c.PublicBaseURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults ok", mutate: func(c *Config) {}},
		{name: "unknown blob backend", mutate: func(c *Config) { c.BlobBackend = "ftp" }, wantErr: "BlobBackend"},
		{name: "s3 without bucket", mutate: func(c *Config) {
			c.BlobBackend = "s3"
			c.S3Bucket = ""
		}, wantErr: "S3Bucket"},
		{name: "redis without addr", mutate: func(c *Config) {
			c.SessionBackend = "redis"
			c.RedisAddr = ""
		}, wantErr: "RedisAddr"},
		{name: "clamd without addr", mutate: func(c *Config) {
			c.Scanner = "clamd"
			c.ClamdAddr = ""
		}, wantErr: "ClamdAddr"},
		{name: "zero ttl", mutate: func(c *Config) { c.SessionTTL = 0 }, wantErr: "SessionTTL"},
		{name: "zero transfer rate", mutate: func(c *Config) { c.MinTransferRate = 0 }, wantErr: "MinTransferRate"},
		{name: "body smaller than part", mutate: func(c *Config) { c.MaxUploadSize = c.MaxPartSize - 1 }, wantErr: "MaxUploadSize"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "LogLevel"},
		{name: "missing secret", mutate: func(c *Config) { c.SecretKey = "" }, wantErr: "SecretKey"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)

			err := Validate(&c)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
