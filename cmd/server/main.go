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
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/DenhamPreen/hot-potato/internal/api"
	"github.com/DenhamPreen/hot-potato/internal/chainhost"
	"github.com/DenhamPreen/hot-potato/internal/engine"
	"github.com/DenhamPreen/hot-potato/internal/indexer"
	"github.com/DenhamPreen/hot-potato/internal/metrics"
	"github.com/DenhamPreen/hot-potato/internal/wsbus"
)

// blockInterval is how often the simulated chain's block clock advances.
// Real deployments have no such knob — a real chain host reports whatever
// block number the network is actually on — but the demo server needs
// something to drive settle-block-delay maturation.
const blockInterval = 2 * time.Second

func main() {
	instanceID := uuid.NewString()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("instance_id", instanceID)
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// --- Round record store ---
	var idxStore indexer.Store
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		idxStore = indexer.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			idxStore = indexer.NewCachedStore(idxStore, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory round store (data will not persist)")
		idxStore = indexer.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Chain host ---
	contractAddr, err := chainhost.ParseAddress(envOrDefault("CONTRACT_ADDRESS", "0x0000000000000000000000000000000000000001"))
	if err != nil {
		slog.Error("invalid CONTRACT_ADDRESS", "err", err)
		os.Exit(1)
	}
	host := chainhost.NewSimulatedHost(contractAddr)

	go func() {
		ticker := time.NewTicker(blockInterval)
		defer ticker.Stop()
		for range ticker.C {
			host.AdvanceBlocks(1)
		}
	}()

	// --- Engine ---
	creatorAddr, err := chainhost.ParseAddress(envOrDefault("CREATOR_ADDRESS", "0x0000000000000000000000000000000000000002"))
	if err != nil {
		slog.Error("invalid CREATOR_ADDRESS", "err", err)
		os.Exit(1)
	}
	cfg := engine.Config{
		BaseEntryPrice:     mustAmount(envOrDefault("BASE_ENTRY_PRICE_WEI", "1000000000000000")),
		PriceMultiplierBps: mustUint64(envOrDefault("PRICE_MULTIPLIER_BPS", "11000")),
		KeeperReward:       mustAmount(envOrDefault("KEEPER_REWARD_WEI", "0")),
		CreatorFee:         mustAmount(envOrDefault("CREATOR_FEE_WEI", "0")),
		CreatorAddress:     creatorAddr,
	}

	metricsSink := metrics.NewSink()
	wsHub := wsbus.NewHub()
	go wsHub.Run()
	projector := indexer.NewProjector(idxStore, 2*time.Second)

	eng := engine.New(cfg, host, engine.MultiSink{metricsSink, wsHub, projector})
	apiSvc := api.NewService(eng, host, idxStore)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","service":"hot-potato","instance_id":%q}`, instanceID)
	})

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ws", wsHub.HandleWS)

		r.Post("/enter", apiSvc.Enter)
		r.Post("/settle", apiSvc.Settle)
		r.Post("/sponsor", apiSvc.Sponsor)
		r.Get("/sponsor", apiSvc.GetSponsor)
		r.Post("/creator", apiSvc.UpdateCreator)
		r.Post("/deposit", apiSvc.Deposit)
		r.Get("/state", apiSvc.State)
		r.Get("/rounds/{id}", apiSvc.GetRound)
	})

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("hot-potato listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down hot-potato...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("hot-potato stopped")
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func mustAmount(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		slog.Error("invalid wei amount in configuration", "value", s, "err", err)
		os.Exit(1)
	}
	return v
}

func mustUint64(s string) uint64 {
	v, err := uint256.FromDecimal(s)
	if err != nil || !v.IsUint64() {
		slog.Error("invalid integer in configuration", "value", s)
		os.Exit(1)
	}
	return v.Uint64()
}
