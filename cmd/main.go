package main

//	@title			Files Manager API
//	@version		1.0
//	@description	Files Manager stores user files and folders, serves their content and publishes them by link.

//	@BasePath	/

//	@securityDefinitions.apikey	XToken
//	@in							header
//	@name						X-Token
//	@description				Token returned by GET /connect.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/auth"
	"github.com/ebogdum/filesmanager/backends"
	"github.com/ebogdum/filesmanager/backends/localfs"
	"github.com/ebogdum/filesmanager/backends/s3"
	"github.com/ebogdum/filesmanager/config"
	"github.com/ebogdum/filesmanager/core"
	"github.com/ebogdum/filesmanager/core/log"
	"github.com/ebogdum/filesmanager/locks"
	"github.com/ebogdum/filesmanager/metadata"
	"github.com/ebogdum/filesmanager/metadata/postgres"
	metaredis "github.com/ebogdum/filesmanager/metadata/redis"
	"github.com/ebogdum/filesmanager/metadata/schema"
	"github.com/ebogdum/filesmanager/metadata/sqlite"
	"github.com/ebogdum/filesmanager/server"
	"github.com/ebogdum/filesmanager/sessions"
)

var rootCmd = &cobra.Command{
	Use:   "filesmanager",
	Short: "Files Manager - file storage API with token sessions",
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Files Manager server",
	Long:  "Start the Files Manager HTTP server with the configured stores and blob backend",
	RunE:  runServer,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  "Validate the Files Manager configuration and display the loaded settings",
	RunE:  validateConfig,
}

var configFilePath string

func main() {
	serverCmd.Flags().StringVarP(&configFilePath, "config", "c", "", "Path to configuration file")
	validateCmd.Flags().StringVarP(&configFilePath, "config", "c", "", "Path to configuration file")

	configCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(serverCmd, configCmd)

	// If no command specified, default to server
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "server")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigFromFile(configFilePath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := log.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		// stderr/stdout sync fails on some platforms; nothing to do about it
		_ = logger.Sync()
	}()
	log.SetMode(log.ParseMode(cfg.Log.Mode))

	logger.Info("Starting Files Manager server",
		zap.String("listen_addr", cfg.Server.ListenAddr),
		zap.String("metadata_store", cfg.MetadataStore.Type),
		zap.String("session_store", cfg.SessionStore.Type),
		zap.String("backend", cfg.Backend.DefaultBackend))

	logger.Info("Initializing metadata store")
	metadataStore, err := newMetadataStore(cfg.MetadataStore, logger)
	if err != nil {
		return err
	}
	defer metadataStore.Close()

	logger.Info("Initializing session store")
	sessionStore, err := newSessionStore(cfg.SessionStore, logger)
	if err != nil {
		return err
	}
	defer sessionStore.Close()

	logger.Info("Initializing lock manager")
	lockManager, err := newLockManager(cfg.DLM, logger)
	if err != nil {
		return err
	}
	defer lockManager.Close()

	logger.Info("Initializing blob backend")
	storage, err := newStorage(cfg.Backend, logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	logger.Info("Initializing authentication")
	authService, gate := newAuthStack(cfg.Auth, metadataStore, sessionStore, logger)

	engine := core.NewEngine(
		metadataStore,
		storage,
		cfg.Backend.DefaultBackend,
		sessionStore,
		lockManager,
		authService,
		auth.NewOwnerAuthorizer(),
		logger)

	router := server.NewRouter(engine, authService, gate, &cfg.Server, &cfg.Auth, &cfg.Metrics, logger)

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		var err error
		if cfg.Server.TLSEnabled() {
			logger.Info("Starting HTTPS server", zap.String("addr", cfg.Server.ListenAddr))
			err = srv.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			logger.Info("Starting HTTP server", zap.String("addr", cfg.Server.ListenAddr))
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	}

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server exited gracefully")
	return nil
}

// directory is the part of the metadata store authentication reads.
type directory interface {
	auth.UserLookup
	auth.FileLookup
}

// newAuthStack builds the credential service and the access gate. The gate
// reads identities straight from the directory on every request so that a
// removed identity stops being admitted at once.
func newAuthStack(cfg config.AuthConfig, dir directory, sessionStore sessions.Store, logger *zap.Logger) (*auth.Service, *auth.Gate) {
	verifier := auth.NewCredentialVerifier(dir, cfg.BcryptCost, logger)
	tokens := auth.NewTokenAuthority(sessionStore, auth.DefaultTokenTTL, logger)
	return auth.NewService(verifier, tokens, logger), auth.NewGate(tokens, dir, dir, logger)
}

func newMetadataStore(cfg config.MetadataStoreConfig, logger *zap.Logger) (metadata.Store, error) {
	var store metadata.Store
	switch cfg.Type {
	case "postgres":
		logger.Info("Running database migrations")
		if err := schema.RunMigrations(cfg.DSN, logger); err != nil {
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		s, err := postgres.NewPostgresStore(cfg.DSN, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres metadata store: %w", err)
		}
		store = s
	case "redis":
		s, err := metaredis.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKeyPrefix, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis metadata store: %w", err)
		}
		store = s
	default:
		s, err := sqlite.NewSQLiteStore(cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite metadata store: %w", err)
		}
		store = s
	}
	return metadata.Instrument(store), nil
}

func newSessionStore(cfg config.SessionStoreConfig, logger *zap.Logger) (sessions.Store, error) {
	if cfg.Type == "memory" {
		logger.Warn("Using in-process session store; tokens are lost on restart")
		return sessions.NewMemoryStore(), nil
	}
	store, err := sessions.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	return store, nil
}

func newLockManager(cfg config.DLMConfig, logger *zap.Logger) (locks.Manager, error) {
	if cfg.Type == "redis" {
		m, err := locks.NewRedisManager(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.LockTTL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize lock manager: %w", err)
		}
		return m, nil
	}
	return locks.NewLocalManager(), nil
}

func newStorage(cfg config.BackendConfig, logger *zap.Logger) (backends.Storage, error) {
	if cfg.DefaultBackend == "s3" {
		logger.Info("Initializing S3 backend", zap.String("bucket", cfg.S3BucketName))
		adapter, err := s3.NewS3Adapter(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 backend: %w", err)
		}
		return backends.Instrument("s3", adapter), nil
	}

	logger.Info("Initializing LocalFS backend", zap.String("root_path", cfg.LocalFSRootPath))
	adapter, err := localfs.NewLocalFSAdapter(cfg.LocalFSRootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LocalFS backend: %w", err)
	}
	return backends.Instrument("localfs", adapter), nil
}

func validateConfig(cmd *cobra.Command, args []string) error {
	fmt.Println("Validating configuration...")

	cfg, err := config.LoadConfigFromFile(configFilePath)
	if err != nil {
		fmt.Printf("Configuration validation failed: %v\n", err)
		return err
	}

	fmt.Println("Configuration is valid")
	fmt.Printf("Listen Address: %s\n", cfg.Server.ListenAddr)
	fmt.Printf("TLS: %t\n", cfg.Server.TLSEnabled())
	fmt.Printf("Metadata Store: %s\n", cfg.MetadataStore.Type)
	switch cfg.MetadataStore.Type {
	case "postgres":
		fmt.Printf("Metadata Store DSN: %s\n", maskDSN(cfg.MetadataStore.DSN))
	case "redis":
		fmt.Printf("Metadata Redis Address: %s\n", cfg.MetadataStore.RedisAddr)
	default:
		fmt.Printf("SQLite Path: %s\n", cfg.MetadataStore.SQLitePath)
	}
	fmt.Printf("Session Store: %s\n", cfg.SessionStore.Type)
	if cfg.SessionStore.Type == "redis" {
		fmt.Printf("Session Redis Address: %s\n", cfg.SessionStore.RedisAddr)
	}
	fmt.Printf("Lock Manager: %s\n", cfg.DLM.Type)
	fmt.Printf("Token TTL: %s\n", auth.DefaultTokenTTL)
	fmt.Printf("Backend: %s\n", cfg.Backend.DefaultBackend)
	if cfg.Backend.DefaultBackend == "s3" {
		fmt.Printf("S3 Bucket: %s\n", cfg.Backend.S3BucketName)
		fmt.Printf("S3 Region: %s\n", cfg.Backend.S3Region)
	} else {
		fmt.Printf("Local FS Root: %s\n", cfg.Backend.LocalFSRootPath)
	}

	return nil
}

// maskDSN hides the password of a postgres DSN for display
func maskDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return "***"
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
