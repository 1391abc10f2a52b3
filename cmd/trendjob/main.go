package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/marketdiscovery/internal/adapters/database"
	"github.com/zatekoja/marketdiscovery/internal/application/services"
	"github.com/zatekoja/marketdiscovery/internal/domain/repositories"
	"github.com/zatekoja/marketdiscovery/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/marketdiscovery/internal/infrastructure/observability"
	"github.com/zatekoja/marketdiscovery/pkg/config"
)

func main() {
	var maintenanceFlag string
	flag.StringVar(&maintenanceFlag, "maintenance-interval", "1h", "interval between retention and session sweeps")
	flag.Parse()

	maintenanceInterval, err := time.ParseDuration(maintenanceFlag)
	if err != nil || maintenanceInterval <= 0 {
		log.Fatal().Str("interval", maintenanceFlag).Msg("Invalid maintenance interval")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	env := os.Getenv("ENV")
	if env == "" {
		env = "production"
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-trendjob", env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName+"-trendjob", cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
		}
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	eventLog := database.NewEventLogAdapter(pgClient)
	trending := database.NewTrendingAdapter(pgClient)
	sessions := services.NewSessionService(database.NewSessionAdapter(pgClient), cfg.Session)
	detector := services.NewTrendDetector(eventLog, trending, cfg.Trends)

	go detector.Run(ctx)
	go runMaintenance(ctx, maintenanceInterval, eventLog, sessions, cfg.Retention)

	log.Info().
		Dur("refresh_interval", cfg.Trends.RefreshInterval).
		Dur("maintenance_interval", maintenanceInterval).
		Msg("Trend job started")

	<-ctx.Done()
	log.Info().Msg("Trend job shutting down")
}

// runMaintenance sweeps expired sessions and purges events past the retention
// window. Both operations are idempotent, so a failed sweep is only logged and
// retried on the next tick.
func runMaintenance(ctx context.Context, interval time.Duration, eventLog repositories.EventLogRepository, sessions *services.SessionService, retention config.RetentionConfig) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		sweep(ctx, eventLog, sessions, retention)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sweep(ctx context.Context, eventLog repositories.EventLogRepository, sessions *services.SessionService, retention config.RetentionConfig) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retention.EventLogRetentionDays)
	purged, err := eventLog.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		log.Warn().Err(err).Msg("Event log purge failed")
	} else if purged > 0 {
		log.Info().Int64("purged", purged).Time("cutoff", cutoff).Msg("Purged old interaction events")
	}

	closed, err := sessions.CloseExpired(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Session sweep failed")
	} else if closed > 0 {
		log.Info().Int64("closed", closed).Msg("Closed inactive search sessions")
	}
}
