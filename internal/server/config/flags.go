package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/gallerist/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-L string   log level: debug, info, warn, error
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-o string   object store backend: s3 or memory
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l string   public base URL of asset references
//	-t int      upload capability lifetime, minutes
//	-v int      view capability lifetime, minutes
//
// Only recognised flags are parsed (see flagx.FilterArgs), so -c/-config
// and flags of other components pass through untouched.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-L", "-d", "-s", "-o", "-u", "-p", "-b", "-g", "-e", "-l", "-t", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.LogLevel, "L", config.LogLevel, "log level (debug|info|warn|error)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.StorageBackend, "o", config.StorageBackend, "object store backend (s3|memory)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3PublicBaseURL, "l", config.S3PublicBaseURL, "public base URL of asset references")

	uploadTTL := fs.Int("t", int(config.UploadURLTTL.Minutes()), "upload url validity (in minutes)")
	viewTTL := fs.Int("v", int(config.ViewURLTTL.Minutes()), "view url validity (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.UploadURLTTL = time.Duration(*uploadTTL) * time.Minute
	config.ViewURLTTL = time.Duration(*viewTTL) * time.Minute
}
