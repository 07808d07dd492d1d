package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable read by the loader.
const EnvPrefix = "FILESMANAGER_"

// sections lists the top-level keys so that FILESMANAGER_METADATA_STORE_SQLITE_PATH
// maps to metadata_store.sqlite_path. Longer names come first.
var sections = []string{
	"metadata_store",
	"session_store",
	"backend",
	"metrics",
	"server",
	"auth",
	"log",
	"dlm",
}

// legacyEnv maps the environment variables of earlier deployments onto keys.
var legacyEnv = map[string]func(string) (string, any){
	"PORT":        func(v string) (string, any) { return "server.listen_addr", ":" + v },
	"FOLDER_PATH": func(v string) (string, any) { return "backend.localfs_root_path", v },
}

// LoadConfig loads configuration from multiple sources with strict priority:
// 1. Environment variables (highest priority)
// 2. Config file (config.yaml or config.json)
// 3. Defaults (lowest priority)
func LoadConfig() (AppConfig, error) {
	return LoadConfigFromFile("")
}

// LoadConfigFromFile loads configuration from multiple sources with a specific config file:
// 1. Environment variables (highest priority)
// 2. Specified config file or default config files
// 3. Defaults (lowest priority)
func LoadConfigFromFile(configFilePath string) (AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultAppConfig(), "koanf"), nil); err != nil {
		return AppConfig{}, fmt.Errorf("failed to load default config: %w", err)
	}

	if configFilePath != "" {
		if _, err := os.Stat(configFilePath); err != nil {
			return AppConfig{}, fmt.Errorf("specified config file %s not found: %w", configFilePath, err)
		}
		if err := loadFile(k, configFilePath); err != nil {
			return AppConfig{}, err
		}
	} else {
		for _, configFile := range []string{"config.yaml", "config.yml", "config.json"} {
			if _, err := os.Stat(configFile); err == nil {
				if err := loadFile(k, configFile); err != nil {
					return AppConfig{}, err
				}
				break
			}
		}
	}

	for name, mapping := range legacyEnv {
		if v := os.Getenv(name); v != "" {
			key, value := mapping(v)
			if err := k.Set(key, value); err != nil {
				return AppConfig{}, fmt.Errorf("failed to apply %s: %w", name, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return AppConfig{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	var parser koanf.Parser
	switch {
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		parser = yaml.Parser()
	case strings.HasSuffix(path, ".json"):
		parser = json.Parser()
	default:
		return fmt.Errorf("unsupported config file format: %s", path)
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return nil
}

// envKey maps FILESMANAGER_SERVER_LISTEN_ADDR to server.listen_addr.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range sections {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return key
}

// validateConfig validates that required configuration fields are set
func validateConfig(cfg *AppConfig) error {
	if cfg.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}

	if cfg.Server.MetadataOpTimeout <= 0 || cfg.Server.FileOpTimeout <= 0 {
		return fmt.Errorf("server.metadata_op_timeout and server.file_op_timeout must be positive")
	}

	if cfg.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}

	if (cfg.Server.CertFile == "") != (cfg.Server.KeyFile == "") {
		return fmt.Errorf("server.cert_file and server.key_file must be set together")
	}

	if cfg.Auth.LoginRate <= 0 || cfg.Auth.LoginBurst <= 0 {
		return fmt.Errorf("auth.login_rate and auth.login_burst must be positive")
	}

	switch cfg.Backend.DefaultBackend {
	case "localfs":
		if cfg.Backend.LocalFSRootPath == "" {
			return fmt.Errorf("backend.localfs_root_path is required for the localfs backend")
		}
	case "s3":
		if cfg.Backend.S3BucketName == "" {
			return fmt.Errorf("backend.s3_bucket_name is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown backend.default_backend %q", cfg.Backend.DefaultBackend)
	}

	switch cfg.MetadataStore.Type {
	case "sqlite":
		if cfg.MetadataStore.SQLitePath == "" {
			return fmt.Errorf("metadata_store.sqlite_path is required for the sqlite store")
		}
	case "postgres":
		if cfg.MetadataStore.DSN == "" {
			return fmt.Errorf("metadata_store.dsn is required for the postgres store")
		}
	case "redis":
		if cfg.MetadataStore.RedisAddr == "" {
			return fmt.Errorf("metadata_store.redis_addr is required for the redis store")
		}
		if strings.HasPrefix(cfg.MetadataStore.RedisKeyPrefix, "auth_") {
			return fmt.Errorf("metadata_store.redis_key_prefix must not start with auth_")
		}
	default:
		return fmt.Errorf("unknown metadata_store.type %q", cfg.MetadataStore.Type)
	}

	switch cfg.SessionStore.Type {
	case "memory":
	case "redis":
		if cfg.SessionStore.RedisAddr == "" {
			return fmt.Errorf("session_store.redis_addr is required for the redis session store")
		}
	default:
		return fmt.Errorf("unknown session_store.type %q", cfg.SessionStore.Type)
	}

	switch cfg.DLM.Type {
	case "local":
	case "redis":
		if cfg.DLM.RedisAddr == "" {
			return fmt.Errorf("dlm.redis_addr is required for the redis lock manager")
		}
	default:
		return fmt.Errorf("unknown dlm.type %q", cfg.DLM.Type)
	}

	return nil
}
