package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/mindless-backend/internal/config"
	"github.com/DoyleJ11/mindless-backend/internal/engine"
	"github.com/DoyleJ11/mindless-backend/internal/httpapi"
	"github.com/DoyleJ11/mindless-backend/internal/hub"
	"github.com/DoyleJ11/mindless-backend/internal/lobby"
	"github.com/DoyleJ11/mindless-backend/internal/logging"
	"github.com/DoyleJ11/mindless-backend/internal/store"
	"github.com/DoyleJ11/mindless-backend/internal/themes"
	"github.com/DoyleJ11/mindless-backend/internal/ws"
)

const shutdownGrace = 5 * time.Second

func main() {
	cfg := &config.Config{}
	cobra.CheckErr(config.NewCommand(cfg, run).Execute())
}

func run(parent context.Context, cfg *config.Config) (err error) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := logging.New(cfg.LogLevel, cfg.Dev)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	catalog, err := themes.Load(cfg.ThemesFile)
	if err != nil {
		return err
	}

	rooms, archive, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, store.CloseAll(rooms, archive))
	}()

	h := hub.NewHub(context.WithoutCancel(ctx), lobby.Deps{
		Engine:  engine.NewEngine(catalog),
		Store:   rooms,
		Archive: archive,
		Logger:  log,
	})

	deps := httpapi.Deps{
		Hub:    h,
		Logger: log,
		WS: ws.Options{
			RateLimit:      rate.Limit(cfg.RateLimit),
			RateBurst:      cfg.RateBurst,
			OriginPatterns: cfg.AllowedOrigins,
		},
	}
	if a, ok := archive.(*store.HistoryArchive); ok {
		deps.History = a
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpapi.SetupRoutes(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store), zap.Int("themes", len(catalog.Themes)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sweep(gctx, h, cfg.SweepInterval, cfg.RoomMaxAge, log)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return multierr.Combine(srv.Shutdown(sctx), h.Shutdown(sctx))
	})

	return g.Wait()
}

func openStores(ctx context.Context, cfg *config.Config) (store.RoomStore, store.Archive, error) {
	var rooms store.RoomStore = store.NewMemoryStore()
	if cfg.Store == config.StorePostgres {
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		rooms = pg
	}

	var archive store.Archive = store.NopArchive{}
	if cfg.Archive {
		a, err := store.NewHistoryArchive(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, multierr.Append(err, rooms.Close())
		}
		archive = a
	}
	return rooms, archive, nil
}

func sweep(ctx context.Context, h *hub.Hub, every, maxAge time.Duration, log *zap.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := h.Sweep(ctx, maxAge); err != nil && ctx.Err() == nil {
				log.Error("sweep rooms", zap.Error(err))
			}
		}
	}
}
