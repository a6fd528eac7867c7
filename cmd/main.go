package main

import (
	"Medicare/cache"
	"Medicare/config"
	"Medicare/database"
	"Medicare/diagnosis"
	"Medicare/extraction"
	"Medicare/extraction/ocr"
	"Medicare/notify"
	"Medicare/repositories"
	"Medicare/routes"
	"Medicare/services"
	"Medicare/storage"
	"Medicare/synthesis"
	"Medicare/utils"
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medicare",
		Short: "Hospital patient records and diagnosis API",
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd(), seedCmd(), purgeCmd())

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close(db)
			return database.Migrate(db)
		},
	}
}

func seedCmd() *cobra.Command {
	var hospitalID uint
	var count int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill a hospital with generated demo patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer database.Close(db)

			redisCache, locker, closeRedis := connectRedis(ctx, cfg)
			defer closeRedis()

			seeder := services.NewSeeder(repositories.NewPatientRepository(db, redisCache, locker), nil)
			created, err := seeder.Seed(ctx, hospitalID, count)
			log.WithField("created", created).Info("seed finished")
			return err
		},
	}
	cmd.Flags().UintVar(&hospitalID, "hospital", 1, "hospital that receives the patients")
	cmd.Flags().IntVar(&count, "count", 100, "number of patients to generate")
	return cmd
}

func purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete every patient with their records, history and plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer database.Close(db)

			redisCache, locker, closeRedis := connectRedis(ctx, cfg)
			defer closeRedis()

			removed, err := repositories.NewPatientRepository(db, redisCache, locker).PurgeAll(ctx)
			if err != nil {
				return err
			}
			log.WithField("patients", removed).Info("purge finished")
			return nil
		},
	}
}

func serve(ctx context.Context) error {
	cfg, db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}
	if err := cfg.ValidateTokenKey(); err != nil {
		return err
	}
	tokens, err := utils.NewTokenIssuer(cfg.SymmetricKey, utils.AccessTokenExpiry)
	if err != nil {
		return err
	}

	redisCache, locker, closeRedis := connectRedis(ctx, cfg)
	defer closeRedis()

	engine, err := diagnosis.LoadEngine(cfg.VocabularyPath, cfg.ModelPath)
	if err != nil {
		return errors.Wrap(err, "load diagnosis model")
	}
	extractor := extraction.NewExtractor(
		ocr.FitzRasterizer{DPI: cfg.OCRDPI},
		ocr.TesseractRecognizer{Language: cfg.OCRLanguage},
		cfg.OCRMaxPageWidth,
	)
	if cfg.GroqAPIKey == "" {
		log.Warn("GROQ_API_KEY is not set, summaries and chat will fail")
	}
	synthesizer := synthesis.NewSynthesizer(synthesis.NewOpenAICompleter(cfg.GroqAPIKey, cfg.LLMBaseURL, cfg.LLMModel))

	deps := routes.Dependencies{
		Config:      cfg,
		DB:          db,
		Cache:       redisCache,
		Locker:      locker,
		Tokens:      tokens,
		Predictor:   engine,
		Extractor:   extractor,
		Synthesizer: synthesizer,
	}
	if cfg.MinIOEnabled() {
		store, err := storage.NewMinIO(ctx, storage.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			return err
		}
		deps.Documents = store
	}
	if cfg.SMTPEnabled() {
		mailer := notify.NewMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		deps.Notifier = mailer
		deps.ResetMailer = mailer
	}

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        routes.SetupRoutes(deps),
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		IdleTimeout:    30 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	serverErr := make(chan error, 1)

	go func() {
		defer wg.Done()
		log.WithField("addr", srv.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown handling
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	select {
	case <-c:
	case err := <-serverErr:
		return errors.Wrap(err, "listen and serve")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	log.Info("Shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server shutdown failed")
	}

	wg.Wait()
	log.Info("Server exited gracefully")
	return nil
}

func openDB(ctx context.Context) (*config.AppConfig, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	cfg.ConfigureLogging()

	db, err := database.InitDB(ctx, cfg.DBURL, cfg.IsDevelopment())
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

// connectRedis returns a nil cache and locker when REDIS_URL is unset;
// both are safe to use that way.
func connectRedis(ctx context.Context, cfg *config.AppConfig) (*cache.Cache, *database.Locker, func()) {
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL is not set, running without cache and locks")
		return nil, nil, func() {}
	}

	client, err := database.NewRedisClient(ctx, database.RedisConfig{
		URL:          cfg.RedisURL,
		PoolSize:     cfg.RedisPoolSize,
		DialTimeout:  cfg.RedisDialTimeout,
		MinIdleConns: cfg.RedisMinIdleConns,
		ReadTimeout:  cfg.RedisReadTimeout,
		MaxRetries:   cfg.RedisMaxRetries,
	})
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, running without cache and locks")
		return nil, nil, func() {}
	}

	redisCache, err := cache.NewCache(client, cfg.CacheTTL)
	if err != nil {
		_ = client.Close()
		log.WithError(err).Warn("failed to initialize cache")
		return nil, nil, func() {}
	}
	locker := database.NewLocker(client, database.LockConfig{
		Retries:    cfg.LockRetries,
		RetryDelay: cfg.LockRetryDelay,
		TTL:        cfg.LockTTL,
	})

	stop := make(chan struct{})
	go monitorPool(client, stop)

	return redisCache, locker, func() {
		close(stop)
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("failed to close Redis client")
		}
	}
}

func monitorPool(client *redis.Client, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			database.MonitorRedisPool(client)
		case <-stop:
			return
		}
	}
}
