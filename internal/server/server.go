package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"todo-list/backend/internal/cache"
	"todo-list/backend/internal/config"
	"todo-list/backend/internal/database"
	"todo-list/backend/internal/monitoring"
	"todo-list/backend/internal/repositories"
	"todo-list/backend/internal/services"

	"github.com/gin-gonic/gin"
)

// Server owns every long-lived resource of the API process.
type Server struct {
	cfg     *config.Config
	pool    *database.DatabasePool
	cache   cache.Cache
	router  *gin.Engine
	tracing func(context.Context) error
}

func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens, err := services.NewTokenService(services.TokenConfig{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		TTL:      cfg.Auth.TokenTTL,
	})
	if err != nil {
		return nil, err
	}

	shutdownTracing, err := monitoring.SetupTracing(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return nil, err
	}

	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.GetDatabaseDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		LogLevel:        database.ParseLogLevel(cfg.Database.LogLevel),
	})
	if err != nil {
		shutdownTracing(ctx)
		return nil, err
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		shutdownTracing(ctx)
		return nil, err
	}

	s := &Server{cfg: cfg, pool: pool, tracing: shutdownTracing}

	metrics := monitoring.NewMetrics()
	health := monitoring.NewHealthChecker(0)
	health.Register("database", pool.Health)
	stats := map[string]monitoring.StatsFunc{"database": pool.Stats}

	authService := services.NewAuthService(
		repositories.NewUserRepository(pool.DB),
		services.NewPasswordHasher(cfg.Auth.BCryptCost),
		tokens,
	)

	var taskService services.TaskService = services.NewTaskService(repositories.NewTaskRepository(pool.DB))
	if cfg.Cache.Enabled {
		s.cache = newTaskCache(cfg)
		taskService = services.NewCachedTaskService(taskService, s.cache, cfg.Cache.TTL)
		health.Register("cache", s.cache.Health)
		stats["cache"] = s.cache.Stats
	}

	s.router = NewRouter(RouterDeps{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Auth:           authService,
		Tokens:         tokens,
		Tasks:          taskService,
		Metrics:        metrics,
		Health:         health,
		Stats:          stats,
	})

	return s, nil
}

func newTaskCache(cfg *config.Config) *cache.MultiLevelCache {
	var l2 cache.Cache
	if cfg.RedisEnabled() {
		l2 = cache.NewRedisCache(&cache.CacheConfig{
			Addr:         cfg.GetRedisAddr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		log.Printf("Task cache backed by redis at %s", cfg.GetRedisAddr())
	}
	return cache.NewMultiLevelCache(l2)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests
// within the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.GetServerAddr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s (environment=%s)", srv.Addr, s.cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) Close() error {
	var errs []error
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	errs = append(errs, s.pool.Close())

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	errs = append(errs, s.tracing(ctx))

	return errors.Join(errs...)
}
