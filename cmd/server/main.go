package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ndtvumkp-dev/loto-mien-tay/internal/config"
	"github.com/ndtvumkp-dev/loto-mien-tay/internal/deck"
	"github.com/ndtvumkp-dev/loto-mien-tay/internal/httpapi"
	"github.com/ndtvumkp-dev/loto-mien-tay/internal/logging"
	"github.com/ndtvumkp-dev/loto-mien-tay/internal/registry"
	"github.com/ndtvumkp-dev/loto-mien-tay/internal/room"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := deck.Build(rand.New(rand.NewSource(time.Now().UnixNano())))
	reg := registry.New(ctx, d, room.Config{
		CallInterval:        cfg.CallInterval,
		ClearTicketsOnReset: cfg.ResetClearsTickets,
	}, logger)
	defer reg.Shutdown()

	// Build the router *with* the registry injected
	handler := httpapi.SetupRoutes(reg, cfg.AllowedOrigins, logger)

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infow("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatalw("server exited", "error", err)
	}
	logger.Infow("server stopped")
}
