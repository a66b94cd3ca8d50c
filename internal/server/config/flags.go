package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-l string   HTTP bind address (e.g., ":8080")
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN, empty for in-memory storage
//	-s string   JWT HMAC secret key
//	-k string   collaborator token
//	-B string   blob backend: fs or s3
//	-f string   blob root directory for the fs backend
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-S string   session backend: memory or redis
//	-R string   Redis address
//	-T int      upload session TTL, minutes
//	-w duration sweep interval
//	-o duration per-operation timeout
//	-r int      minimum blob transfer rate, bytes per second
//	-m int      max part size, bytes
//	-M int      max request body size, bytes
//	-x string   scanner: clamd or none
//	-X string   clamd address
//	-L string   log level
//	-U string   public base URL for share links
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-l", "-a", "-d", "-s", "-k", "-B", "-f", "-u", "-p", "-b", "-g", "-e",
		"-S", "-R", "-T", "-w", "-o", "-r", "-m", "-M", "-x", "-X", "-L", "-U",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "l", config.EndpointAddrHTTP, "address and port to serve HTTP")
	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to serve gRPC")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.CollaboratorToken, "k", config.CollaboratorToken, "collaborator token")

	fs.StringVar(&config.BlobBackend, "B", config.BlobBackend, "blob backend (fs|s3)")
	fs.StringVar(&config.FSRoot, "f", config.FSRoot, "blob root directory")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.SessionBackend, "S", config.SessionBackend, "session backend (memory|redis)")
	fs.StringVar(&config.RedisAddr, "R", config.RedisAddr, "redis address")
	sessionTTL := fs.Int("T", int(config.SessionTTL.Minutes()), "upload session ttl (in minutes)")
	fs.DurationVar(&config.SweepInterval, "w", config.SweepInterval, "abandoned session sweep interval")
	fs.DurationVar(&config.OpTimeout, "o", config.OpTimeout, "per-operation timeout")
	fs.Int64Var(&config.MinTransferRate, "r", config.MinTransferRate, "minimum transfer rate in bytes per second")
	fs.Int64Var(&config.MaxPartSize, "m", config.MaxPartSize, "max part size in bytes")
	fs.Int64Var(&config.MaxUploadSize, "M", config.MaxUploadSize, "max request body in bytes")

	fs.StringVar(&config.Scanner, "x", config.Scanner, "malware scanner (clamd|none)")
	fs.StringVar(&config.ClamdAddr, "X", config.ClamdAddr, "clamd address")
	fs.StringVar(&config.LogLevel, "L", config.LogLevel, "log level")
	fs.StringVar(&config.PublicBaseURL, "U", config.PublicBaseURL, "public base URL")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
}
