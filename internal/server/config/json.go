package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophdrive/internal/flagx"
	"github.com/dmitrijs2005/gophdrive/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. Keys missing from the file leave the current value untouched.
type JsonConfig struct {
	EndpointAddrHTTP  string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC  string         `json:"endpoint_addr_grpc"`
	DatabaseDSN       *string        `json:"database_dsn"`
	SecretKey         string         `json:"secret_key"`
	CollaboratorToken string         `json:"collaborator_token"`
	BlobBackend       string         `json:"blob_backend"`
	FSRoot            string         `json:"fs_root"`
	S3RootUser        string         `json:"s3_root_user"`
	S3RootPassword    string         `json:"s3_root_password"`
	S3Bucket          string         `json:"s3_bucket"`
	S3Region          string         `json:"s3_region"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint"`
	SessionBackend    string         `json:"session_backend"`
	RedisAddr         string         `json:"redis_addr"`
	SessionTTL        timex.Duration `json:"session_ttl"`
	SweepInterval     timex.Duration `json:"sweep_interval"`
	OpTimeout         timex.Duration `json:"op_timeout"`
	MinTransferRate   int64          `json:"min_transfer_rate"`
	MaxPartSize       int64          `json:"max_part_size"`
	MaxUploadSize     int64          `json:"max_upload_size"`
	Scanner           string         `json:"scanner"`
	ClamdAddr         string         `json:"clamd_addr"`
	LogLevel          string         `json:"log_level"`
	PublicBaseURL     string         `json:"public_base_url"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flag. Without the flag nothing is loaded. An unreadable file or
// invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.CollaboratorToken, c.CollaboratorToken)
	setString(&config.BlobBackend, c.BlobBackend)
	setString(&config.FSRoot, c.FSRoot)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.SessionBackend, c.SessionBackend)
	setString(&config.RedisAddr, c.RedisAddr)
	if c.SessionTTL.Duration > 0 {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.SweepInterval.Duration > 0 {
		config.SweepInterval = c.SweepInterval.Duration
	}
	if c.OpTimeout.Duration > 0 {
		config.OpTimeout = c.OpTimeout.Duration
	}
	if c.MinTransferRate > 0 {
		config.MinTransferRate = c.MinTransferRate
	}
	if c.MaxPartSize > 0 {
		config.MaxPartSize = c.MaxPartSize
	}
	if c.MaxUploadSize > 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}
	setString(&config.Scanner, c.Scanner)
	setString(&config.ClamdAddr, c.ClamdAddr)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.PublicBaseURL, c.PublicBaseURL)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
