package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/minileague/league-engine/internal/config"
	"github.com/minileague/league-engine/internal/dashboard"
	"github.com/minileague/league-engine/internal/entry"
	"github.com/minileague/league-engine/internal/metrics"
	"github.com/minileague/league-engine/internal/sheet"
	"github.com/minileague/league-engine/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.FromEnv(os.Getenv)
	if err != nil {
		slog.Error("invalid environment", "err", err)
		os.Exit(1)
	}

	// --- League settings ---
	league := config.Default()
	if cfg.LeagueFile != "" {
		league, err = config.Load(cfg.LeagueFile)
		if err != nil {
			slog.Error("league config load failed", "path", cfg.LeagueFile, "err", err)
			os.Exit(1)
		}
		slog.Info("league config loaded", "path", cfg.LeagueFile)
	}
	roster := league.Roster()
	slog.Info("league ready",
		"players", len(roster.Players),
		"tracks", len(league.Tracks),
		"default_bet", league.DefaultBet.String(),
	)

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	switch {
	case cfg.DatabaseURL != "":
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		pg := store.NewPostgresStore(pool)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			slog.Error("schema setup failed", "err", err)
			os.Exit(1)
		}
		st = pg
		slog.Info("connected to PostgreSQL")
	case cfg.LedgerFile != "":
		st = store.NewFileStore(cfg.LedgerFile, sheet.Columns(roster))
		slog.Info("using ledger file", "path", cfg.LedgerFile)
	default:
		slog.Warn("DATABASE_URL and LEDGER_FILE not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	// Wrap persistent stores with Redis read-through cache if configured.
	if cfg.RedisURL != "" && (cfg.DatabaseURL != "" || cfg.LedgerFile != "") {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		st = store.NewCachedStore(st, rdb, cfg.CacheTTL)
		slog.Info("Redis cache enabled", "ttl", cfg.CacheTTL.String())
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- WebSocket hub ---
	wsHub := dashboard.NewWSHub()
	go wsHub.Run(ctx)

	// --- Dashboard service ---
	drafts := entry.NewBook(cfg.DraftTTL)
	svc := dashboard.NewService(st, league, drafts, wsHub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"league-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	// The WebSocket route is long-lived, so the request timeout applies
	// to the JSON routes only.
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ws", wsHub.HandleWS)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			svc.Routes(r)
		})
	})

	// --- Server ---
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("league-engine listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down league-engine...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("league-engine stopped")
}
