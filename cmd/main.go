package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"

	"rtb-bidder/internal/adapter/evaluator"
	httpadapter "rtb-bidder/internal/adapter/http"
	"rtb-bidder/internal/adapter/ledger"
	"rtb-bidder/internal/adapter/openrtb"
	"rtb-bidder/internal/adapter/pacing"
	"rtb-bidder/internal/adapter/postgres"
	"rtb-bidder/internal/adapter/pubsub"
	"rtb-bidder/internal/adapter/usecase"
	"rtb-bidder/internal/config"
	"rtb-bidder/internal/core/port"
	"rtb-bidder/internal/db"
)

// main loads configuration, optionally connects and migrates PostgreSQL,
// brings up a gateway and serves the exchange and admin endpoints until
// SIGINT or SIGTERM, then drains the gateway.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := cfg.Log.New(os.Stdout).With(slog.String("env", cfg.Env))
	if err = run(cfg, logger); err != nil {
		logger.Error("bidder stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.New()

	scorer, err := evaluator.NewScorer(cfg.Auction.Scorer, cfg.Auction.CTR, cfg.Auction.FloorMarkup)
	if err != nil {
		return err
	}

	var repo port.CampaignRepository
	if cfg.Psql.Enabled {
		if cfg.Psql.RunMigrations {
			if err = db.Migrate(cfg.Psql.Addr.String()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("migrations applied successfully")
		}

		pool, err := db.NewPostgresPool(ctx, cfg.Psql)
		if err != nil {
			return fmt.Errorf("database connection: %w", err)
		}
		defer pool.Close()

		pgRepo := postgres.NewCampaignRepository(pool)
		if cfg.Psql.Seed {
			if err = db.Seed(ctx, pgRepo, clk.Now()); err != nil {
				return err
			}
			logger.Info("demo campaigns seeded")
		}
		repo = pgRepo
	}

	rt := usecase.NewRuntime()
	h, err := rt.Initialize(ctx, usecase.Bootstrap{
		Auction: usecase.Options{
			DefaultTimeout:         cfg.Auction.DefaultTimeout,
			SafetyMargin:           cfg.Auction.SafetyMargin,
			MaxCandidates:          cfg.Auction.MaxCandidates,
			MaxReservationAttempts: cfg.Auction.MaxReservationAttempts,
		},
		Ledger: ledger.Options{
			TTL:           cfg.Ledger.ReservationTTL,
			SweepInterval: cfg.Ledger.SweepInterval,
			Retention:     cfg.Ledger.Retention,
		},
		Pacing: pacing.Config{Ceiling: cfg.Pacing.Ceiling, Burst: cfg.Pacing.Burst},
		Scorer: scorer,
		Repo:   repo,
		Clock:  clk,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	gw, _ := rt.Gateway(h)

	limiter := httpadapter.NewRateLimiter(cfg.Admin.RPS, cfg.Admin.Burst, clk)
	go limiter.Run(ctx)

	handler := httpadapter.NewHandler(httpadapter.Deps{
		Bidder:  gw,
		Admin:   gw,
		Agents:  rt.Agents(h),
		Codec:   openrtb.Codec{NoticeBaseURL: cfg.Auction.NoticeBaseURL, Seat: cfg.Auction.Seat},
		Limiter: limiter,
		Clock:   clk,
		Logger:  logger.With(slog.String("component", "http")),
		Ready:   func() bool { return !gw.Closed() },
	})
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      handler.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	var sub *pubsub.Subscriber
	if cfg.PubSub.Enabled {
		sub = pubsub.NewSubscriber(cfg.PubSub, gw, clk, logger.With(slog.String("component", "pubsub")))
		if err = sub.Connect(ctx); err != nil {
			_ = rt.Shutdown(context.Background(), h)
			return err
		}
		go func() {
			if err := sub.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("pubsub subscriber stopped", slog.Any("error", err))
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.Int("port", int(cfg.HTTP.Port)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err = <-serveErr:
		logger.Error("server error", slog.Any("error", err))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}
	if sub != nil {
		if err := sub.Close(); err != nil {
			logger.Error("pubsub close error", slog.Any("error", err))
		}
	}
	if err := rt.Shutdown(shutdownCtx, h); err != nil {
		return fmt.Errorf("gateway shutdown: %w", err)
	}
	logger.Info("server gracefully stopped")
	return err
}
