// Package config provides configuration management for filesmanager.
// It handles loading and validating configuration from YAML or JSON files and environment variables.
package config

import "time"

// AppConfig represents the complete application configuration
type AppConfig struct {
	Server        ServerConfig        `koanf:"server"`
	Auth          AuthConfig          `koanf:"auth"`
	Log           LogConfig           `koanf:"log"`
	Metrics       MetricsConfig       `koanf:"metrics"`
	Backend       BackendConfig       `koanf:"backend"`
	MetadataStore MetadataStoreConfig `koanf:"metadata_store"`
	SessionStore  SessionStoreConfig  `koanf:"session_store"`
	DLM           DLMConfig           `koanf:"dlm"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	ListenAddr        string        `koanf:"listen_addr"`
	CertFile          string        `koanf:"cert_file"` // TLS is enabled when both cert and key are set
	KeyFile           string        `koanf:"key_file"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	FileOpTimeout     time.Duration `koanf:"file_op_timeout"`
	MetadataOpTimeout time.Duration `koanf:"metadata_op_timeout"`
	MaxBodyBytes      int64         `koanf:"max_body_bytes"`
}

// TLSEnabled reports whether the server should listen with TLS.
func (c ServerConfig) TLSEnabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// AuthConfig holds authentication configuration. The token lifetime is not
// configurable; see auth.DefaultTokenTTL.
type AuthConfig struct {
	LoginRate  float64 `koanf:"login_rate"`  // Sustained /connect requests per second per client
	LoginBurst int     `koanf:"login_burst"` // Burst allowance per client
	BcryptCost int     `koanf:"bcrypt_cost"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Mode   string `koanf:"mode"` // Sanitization mode: production, development or debug
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// BackendConfig holds blob storage configuration
type BackendConfig struct {
	DefaultBackend         string `koanf:"default_backend"` // "localfs" or "s3"
	LocalFSRootPath        string `koanf:"localfs_root_path"`
	S3AccessKey            string `koanf:"s3_access_key"`
	S3SecretKey            string `koanf:"s3_secret_key"`
	S3Region               string `koanf:"s3_region"`
	S3BucketName           string `koanf:"s3_bucket_name"`
	S3Endpoint             string `koanf:"s3_endpoint"`               // Custom S3 endpoint (e.g., for MinIO)
	S3KeyPrefix            string `koanf:"s3_key_prefix"`             // Prepended to every object key
	S3ServerSideEncryption string `koanf:"s3_server_side_encryption"` // SSE algorithm (AES256, aws:kms)
	S3ACL                  string `koanf:"s3_acl"`                    // Object ACL (private, public-read, etc.)
	S3KMSKeyID             string `koanf:"s3_kms_key_id"`             // KMS key ID for SSE-KMS
}

// MetadataStoreConfig holds metadata store configuration
type MetadataStoreConfig struct {
	Type           string `koanf:"type"` // "sqlite", "postgres" or "redis"
	DSN            string `koanf:"dsn"`
	SQLitePath     string `koanf:"sqlite_path"`
	RedisAddr      string `koanf:"redis_addr"`
	RedisPassword  string `koanf:"redis_password"`
	RedisDB        int    `koanf:"redis_db"`
	RedisKeyPrefix string `koanf:"redis_key_prefix"`
}

// SessionStoreConfig holds session store configuration
type SessionStoreConfig struct {
	Type          string `koanf:"type"` // "redis" or "memory"
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
}

// DLMConfig holds lock manager configuration
type DLMConfig struct {
	Type          string        `koanf:"type"` // "redis" or "local"
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	LockTTL       time.Duration `koanf:"lock_ttl"`
}
