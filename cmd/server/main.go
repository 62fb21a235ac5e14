package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/ogurasousui/company-registry/internal/adapters/jwttoken"
	"github.com/ogurasousui/company-registry/internal/adapters/repository/cache"
	"github.com/ogurasousui/company-registry/internal/adapters/repository/memory"
	"github.com/ogurasousui/company-registry/internal/adapters/repository/postgres"
	"github.com/ogurasousui/company-registry/internal/adapters/rest"
	"github.com/ogurasousui/company-registry/internal/adapters/rest/handler"
	"github.com/ogurasousui/company-registry/internal/core/auth"
	"github.com/ogurasousui/company-registry/internal/core/company"
	platformcache "github.com/ogurasousui/company-registry/internal/platform/cache"
	"github.com/ogurasousui/company-registry/internal/platform/config"
	pg "github.com/ogurasousui/company-registry/internal/platform/db/postgres"
	"github.com/ogurasousui/company-registry/internal/platform/logger"
	"github.com/ogurasousui/company-registry/internal/platform/metrics"
	"github.com/ogurasousui/company-registry/internal/platform/server"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load .env: %v", err)
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Error("server stopped with error", zap.Error(err))
		_ = zl.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	dbPool, err := pg.NewPool(ctx, cfg.Database, zl.Named("db"))
	if err != nil {
		return fmt.Errorf("initialize database pool: %w", err)
	}
	defer dbPool.Close()

	var companyRepo company.Repository = postgres.NewCompanyRepository(dbPool)

	redisClient, err := platformcache.NewClient(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		companyRepo = cache.NewCompanyRepository(companyRepo, redisClient, cfg.Cache.TTL, zl.Named("cache"))
		zl.Info("company cache enabled", zap.String("addr", cfg.Cache.Addr), zap.Duration("ttl", cfg.Cache.TTL))
	}

	txManager := pg.NewTransactionManager(dbPool,
		pg.WithIsolationLevel(pgx.TxIsoLevel(cfg.Database.IsolationLevel)),
		pg.WithLogger(zl.Named("tx")),
	)
	companySvc := company.NewService(companyRepo, nil, txManager)

	if cfg.Database.Seed {
		n, err := company.Seed(ctx, companyRepo, companySvc, company.DefaultSeed)
		if err != nil {
			return err
		}
		if n > 0 {
			zl.Info("seeded companies", zap.Int("count", n))
		}
	}

	clients, err := buildClients(cfg.Auth.Clients)
	if err != nil {
		return err
	}

	tokens := jwttoken.New(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TokenTTL)
	authSvc := auth.NewService(memory.NewClientRepository(clients), tokens, nil)

	m := metrics.New()

	router := rest.NewRouter(rest.RouterConfig{
		Logger:    zl,
		Companies: handler.NewCompanyHandler(companySvc, zl.Named("company"), m),
		Tokens:    handler.NewTokenHandler(authSvc, zl.Named("token")),
		Validator: tokens,
		Scope:     cfg.Auth.Scope,
		Metrics:   m,
		Ready:     dbPool.Ping,
	})

	return server.New(cfg.Server, router, zl).Run(ctx)
}

// buildClients は設定の平文シークレットを bcrypt でハッシュ化したクライアント一覧を返します。
func buildClients(cfgs []config.ClientConfig) ([]*auth.Client, error) {
	clients := make([]*auth.Client, 0, len(cfgs))
	for _, c := range cfgs {
		hash, err := auth.HashSecret(c.Secret)
		if err != nil {
			return nil, fmt.Errorf("hash secret for client %s: %w", c.ID, err)
		}
		clients = append(clients, &auth.Client{
			ID:         c.ID,
			Name:       c.Name,
			SecretHash: hash,
			Scopes:     c.Scopes,
		})
	}
	return clients, nil
}
