package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"fieldops-map-backend/internal/airtable"
	"fieldops-map-backend/internal/api"
	"fieldops-map-backend/internal/db"
	"fieldops-map-backend/internal/events"
	"fieldops-map-backend/internal/filter"
	"fieldops-map-backend/internal/logging"
	"fieldops-map-backend/internal/normalize"
	"fieldops-map-backend/internal/poller"
	"fieldops-map-backend/internal/snapshot"
	"fieldops-map-backend/internal/store"
)

const shutdownTimeout = 5 * time.Second

type ServeCmd struct {
	flags *Flags
}

func NewServeCmd(flags *Flags) *ServeCmd {
	return &ServeCmd{flags: flags}
}

// Command returns the serve command; main also uses it as the default action.
func (cmd *ServeCmd) Command() *cli.Command {
	return &cli.Command{
		Name:        "serve",
		Usage:       "Run the poller and the HTTP API",
		UsageText:   "fieldmapd serve",
		Description: "Starts the background poller, the notification workers and the HTTP server until SIGINT or SIGTERM.",
		Action:      cmd.run,
	}
}

func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, cmd.Command())
	return app
}

func (cmd *ServeCmd) run(ctx context.Context, _ *cli.Command) error {
	cfg := cmd.flags.Config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	loc, err := cfg.Dashboard.Location()
	if err != nil {
		return err
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}
	appStore := store.NewGormStore(gormDB)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		p, err := events.Dial(cfg.Events.URL, cfg.Events.Exchange)
		if err != nil {
			log.Warn().Err(err).Msg("event publishing disabled")
		} else {
			publisher = p
		}
	}
	defer publisher.Close()

	client := airtable.NewClient(cfg.Airtable)
	snapshots := snapshot.New(client, cfg.Poller.SnapshotTTL)
	normalizer := normalize.New(loc, logging.Component("normalize"))

	svc := poller.NewService(cfg, appStore, client, snapshots, normalizer, publisher)
	go svc.Run(ctx)

	var push *webpush.Options
	if cfg.Push.Enabled() {
		push = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		log.Warn().Msg("VAPID keys not configured; push notifications disabled")
	}

	router := api.NewRouter(cfg.Server, api.Deps{
		Store:      appStore,
		Live:       client,
		Snapshots:  snapshots,
		Normalizer: normalizer,
		Filter:     filter.NewEngine(loc),
		Dashboard:  cfg.Dashboard,
		Webpush:    push,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received, stopping services")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	log.Info().Msg("server gracefully stopped")
	return nil
}
