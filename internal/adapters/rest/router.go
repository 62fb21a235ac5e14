package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/ogurasousui/company-registry/internal/adapters/rest/handler"
	"github.com/ogurasousui/company-registry/internal/adapters/rest/middleware"
	"github.com/ogurasousui/company-registry/internal/platform/metrics"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// RouterConfig は HTTP ルーターの構成要素です。
type RouterConfig struct {
	Logger    *zap.Logger
	Companies *handler.CompanyHandler
	Tokens    *handler.TokenHandler
	Validator middleware.TokenValidator
	Scope     string
	Metrics   *metrics.Metrics
	// Ready が nil でなければ /readyz で依存先の疎通を確認します。
	Ready func(ctx context.Context) error
}

// NewRouter は API 全体のルーターを構築します。
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog(logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.Recoverer(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if cfg.Ready != nil {
			ctx, cancel := context.WithTimeout(req.Context(), readinessTimeout)
			defer cancel()
			if err := cfg.Ready(ctx); err != nil {
				logger.Warn("readiness check failed", zap.Error(err))
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	if cfg.Tokens != nil {
		cfg.Tokens.Register(r)
	}

	if cfg.Companies != nil {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(cfg.Validator, cfg.Scope, logger))
			cfg.Companies.Register(r)
		})
	}

	return r
}
