package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-registration/internal/admission"
	"ms-registration/internal/auth"
	"ms-registration/internal/config"
	"ms-registration/internal/database"
	"ms-registration/internal/database/migrations"
	"ms-registration/internal/export"
	"ms-registration/internal/kafka"
	"ms-registration/internal/logger"
	"ms-registration/internal/receipt"
	"ms-registration/internal/registration/api"
	"ms-registration/internal/registration/db"
	regredis "ms-registration/internal/registration/redis"
	"ms-registration/internal/registration/service"
	"ms-registration/internal/sse"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	log.SetLevel(logger.ParseLevel(cfg.Log.Level))

	log.Info("APP", "Starting registration service initialization")
	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB := openDatabase(cfg.Database, log)
	defer bunDB.Close()
	store := db.New(bunDB)

	prepareSchema(ctx, cfg, bunDB, store, log)

	var (
		locker     admission.Locker    = admission.NewMemoryLocker()
		admins     auth.AdminDirectory = store
		adminCache auth.CacheInvalidator
	)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
		}
		log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, cfg.Redis.DB))
		locker = regredis.NewRedis(rdb, cfg.Redis.LockTTL, log)
		cache := auth.NewRedisAdminCache(rdb, store, cfg.Auth.AdminCacheTTL, log)
		admins, adminCache = cache, cache
	} else {
		log.Warn("REDIS", "Redis disabled, day locks are held in process")
	}
	auth.BootstrapAdmins(ctx, store, adminCache, cfg.Auth.BootstrapAdmins, log)

	feed := sse.NewRegistrationFeed()

	var publisher admission.Publisher
	if cfg.Kafka.Enabled {
		topics := kafka.Topics{
			Created:       cfg.Kafka.Topics.RegistrationCreated,
			StatusChanged: cfg.Kafka.Topics.RegistrationStatusChanged,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics.All(), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}

		producer := kafka.NewProducer(cfg.Kafka.Brokers, topics, log)
		defer producer.Close()
		publisher = producer

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, topics.All(), cfg.Kafka.GroupID, log)
		defer consumer.Close()
		go func() {
			if err := consumer.Start(ctx, feed.Notify); err != nil {
				log.Error("KAFKA", fmt.Sprintf("registration event consumer stopped: %v", err))
			}
		}()
		log.Info("KAFKA", "Kafka producer and feed consumer initialized")
	} else {
		log.Warn("KAFKA", "Kafka disabled, registration events only reach this instance's feed")
	}

	engine := admission.NewEngine(store, locker, publisher, log)
	engine.LockWait = cfg.Admission.LockWait
	if !cfg.Kafka.Enabled {
		engine.Notifier = feed
	}

	signer, err := receipt.NewSigner(cfg.Receipt.Secret, cfg.Receipt.TTL)
	if err != nil {
		log.Fatal("CONFIG", fmt.Sprintf("receipt signer: %v", err))
	}

	verifier, err := auth.NewOIDCVerifier(ctx, cfg.Auth.IssuerURL, cfg.Auth.ClientID, cfg.Auth.EmailClaim)
	if err != nil {
		log.Fatal("AUTH", fmt.Sprintf("OIDC provider setup failed: %v", err))
	}

	svc := service.NewService(store, engine, signer, export.NewExporter(""), log)
	handler := api.NewHandler(svc, feed, log)

	router, err := api.NewRouter(handler, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		PublicRate:     cfg.RateLimit.PublicRate,
		Verifier:       verifier,
		Admins:         admins,
		Health:         store.Ping,
	})
	if err != nil {
		log.Fatal("HTTP", fmt.Sprintf("router setup failed: %v", err))
	}

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Registration service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Registration service shutdown complete")
	}
}

// openDatabase connects to PostgreSQL, retrying while the database starts, or opens SQLite
// when DB_DRIVER=sqlite.
func openDatabase(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	if cfg.Driver == "sqlite" {
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to open SQLite: %v", err))
		}
		sqldb.SetMaxOpenConns(1)
		log.Info("DATABASE", fmt.Sprintf("Using SQLite database %s", cfg.DSN))
		return bun.NewDB(sqldb, sqlitedialect.New())
	}

	sqldb := database.OpenPostgres(cfg.DSN)
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	const maxRetries = 5
	var err error
	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		if err = sqldb.Ping(); err == nil {
			break
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	log.Info("DATABASE", "✅ PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func prepareSchema(ctx context.Context, cfg *config.Config, bunDB *bun.DB, store *db.DB, log *logger.Logger) {
	if cfg.Database.Driver == "sqlite" {
		if err := store.CreateSchema(ctx); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to create schema: %v", err))
		}
		return
	}
	if !cfg.Migrations.Auto {
		log.Info("MIGRATE", "Automatic migrations disabled")
		return
	}

	runner := migrations.NewRunner(bunDB.DB, migrations.Options{
		Dir:  cfg.Migrations.Dir,
		Seed: cfg.Migrations.Seed,
	}, log)
	if err := runner.Run(); err != nil {
		log.Fatal("MIGRATE", fmt.Sprintf("Failed to run migrations: %v", err))
	}
}
