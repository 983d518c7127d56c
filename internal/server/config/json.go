package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gallerist/internal/flagx"
	"github.com/dmitrijs2005/gallerist/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "1h" and integer nanoseconds are accepted. Pointer
// and zero-valued fields leave the current value untouched.
type JsonConfig struct {
	EndpointAddrHTTP   string          `json:"endpoint_addr_http"`
	LogLevel           string          `json:"log_level"`
	DatabaseDSN        string          `json:"database_dsn"`
	SecretKey          string          `json:"secret_key"`
	StorageBackend     string          `json:"storage_backend"`
	S3RootUser         string          `json:"s3_root_user"`
	S3RootPassword     string          `json:"s3_root_password"`
	S3Bucket           string          `json:"s3_bucket"`
	S3Region           string          `json:"s3_region"`
	S3BaseEndpoint     string          `json:"s3_base_endpoint"`
	S3PublicBaseURL    string          `json:"s3_public_base_url"`
	S3UsePathStyle     *bool           `json:"s3_use_path_style"`
	UploadURLTTL       *timex.Duration `json:"upload_url_ttl"`
	ViewURLTTL         *timex.Duration `json:"view_url_ttl"`
	ObjectStoreTimeout *timex.Duration `json:"object_store_timeout"`
	SignConcurrency    int             `json:"sign_concurrency"`
	SignCacheSize      int             `json:"sign_cache_size"`
	ShutdownTimeout    *timex.Duration `json:"shutdown_timeout"`
}

// parseJson overlays values from the file named by -c/-config in args.
// Without the flag nothing is loaded. An unreadable or malformed file panics,
// matching flag parsing: a server must not start on a half-read config.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicBaseURL, c.S3PublicBaseURL)

	if c.S3UsePathStyle != nil {
		config.S3UsePathStyle = *c.S3UsePathStyle
	}
	if c.UploadURLTTL != nil {
		config.UploadURLTTL = c.UploadURLTTL.Duration
	}
	if c.ViewURLTTL != nil {
		config.ViewURLTTL = c.ViewURLTTL.Duration
	}
	if c.ObjectStoreTimeout != nil {
		config.ObjectStoreTimeout = c.ObjectStoreTimeout.Duration
	}
	if c.SignConcurrency > 0 {
		config.SignConcurrency = c.SignConcurrency
	}
	if c.SignCacheSize > 0 {
		config.SignCacheSize = c.SignCacheSize
	}
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
