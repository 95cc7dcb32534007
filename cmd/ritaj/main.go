// Command ritaj runs the Ritaj Cafe ordering assistant: the voice agent and
// WhatsApp webhooks, the admin API and the background janitor.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/api"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/calendar"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/flow"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/genai"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/lockfile"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/messaging"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/ordering"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/scheduler"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/store"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/twiliowhatsapp"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/whatsapp"
)

const shutdownTimeout = 15 * time.Second

func main() {
	initializeLogger(os.Getenv("LOG_LEVEL"))

	config, err := loadEnvironmentConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	initializeLogger(config.LogLevel)

	flags, err := parseCommandLineFlags(config, os.Args[1:])
	if err != nil {
		slog.Error("Failed to parse flags", "error", err)
		os.Exit(2)
	}

	if err := run(config, flags); err != nil {
		slog.Error("Ritaj exited with error", "error", err)
		os.Exit(1)
	}
}

func run(config Config, flags Flags) error {
	if err := ensureDirectoriesExist(flags); err != nil {
		return err
	}

	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Warn("Failed to release state lock", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(*flags.dbDSN)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Warn("Failed to close store", "error", err)
		}
	}()
	if config.SeedMenu {
		n, err := store.SeedMenu(ctx, st, store.DemoMenu())
		if err != nil {
			return fmt.Errorf("failed to seed menu: %w", err)
		}
		slog.Info("Menu seed checked", "inserted", n)
	}

	days, err := calendar.NewZoneResolver(config.Timezone)
	if err != nil {
		return fmt.Errorf("invalid restaurant timezone: %w", err)
	}

	model, err := genai.NewClient(buildGenAIOptions(config, flags)...)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}

	ledger := ordering.NewLedger(st, ordering.WithDisplayLocation(days.Location()))
	catalog := ordering.NewCatalog(st, days)
	dispatcher := flow.NewDispatcher(ledger, days, buildDispatcherOptions(config, flags)...)
	loop := flow.NewLoop(model, dispatcher)
	factory, err := flow.NewSessionFactory(loop, flow.NewMenuPrompt(catalog))
	if err != nil {
		return fmt.Errorf("failed to create session factory: %w", err)
	}
	registry := flow.NewRegistry(factory, buildRegistryOptions(flags)...)
	bindings := flow.NewCallBindings(flow.WithBindingTTL(*flags.callTTL))

	msgService, err := buildMessagingService(*flags.whatsappBackend, flags)
	if err != nil {
		return err
	}
	if err := msgService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start messaging service: %w", err)
	}
	defer func() {
		if err := msgService.Stop(); err != nil {
			slog.Warn("Failed to stop messaging service", "error", err)
		}
	}()

	responses := messaging.NewResponseHandler(msgService, registry.Chat, messaging.WithDeduplicator(st))
	responses.Start(ctx)
	messaging.DrainReceipts(ctx, msgService)

	server := api.NewServer(api.Deps{
		Registry:  registry,
		Bindings:  bindings,
		Ledger:    ledger,
		Days:      days,
		Store:     st,
		Messaging: msgService,
		Responses: responses,
	}, buildAPIOptions(config, flags)...)

	janitor := flow.NewJanitor(flow.DefaultJanitorInterval, registry, bindings, server.Limiter())
	janitor.Start()
	defer janitor.Stop()

	sched, err := buildScheduler(ctx, days, registry, st)
	if err != nil {
		return err
	}
	defer sched.Stop()

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start() }()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("API server shutdown failed", "error", err)
	}
	return <-serveErr
}

// buildScheduler registers the calendar-bound jobs: sessions rebuild their
// system prompt when the restaurant's day changes, and old dedup rows are purged.
func buildScheduler(ctx context.Context, days *calendar.ZoneResolver, registry *flow.Registry, st store.Store) (*scheduler.Scheduler, error) {
	sched := scheduler.NewScheduler(scheduler.WithLocation(days.Location()))
	dedup := store.NewDedupSweeper(st, store.DefaultDedupRetention)
	jobs := []struct {
		name, spec string
		task       func()
	}{
		{"day-rollover", scheduler.DayRolloverSpec, func() {
			if _, err := registry.RefreshAll(ctx); err != nil {
				slog.Warn("Day rollover refresh incomplete", "error", err, "day", days.CurrentDay())
			}
		}},
		{"dedup-purge", scheduler.DedupPurgeSpec, func() { dedup.Sweep() }},
	}
	for _, job := range jobs {
		if err := sched.AddJob(job.name, job.spec, job.task); err != nil {
			sched.Stop()
			return nil, fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
	}
	return sched, nil
}

// buildMessagingService selects the outbound WhatsApp transport.
func buildMessagingService(backend string, flags Flags) (messaging.Service, error) {
	switch backend {
	case BackendTwilio:
		client, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, fmt.Errorf("failed to create Twilio client: %w", err)
		}
		return messaging.NewTwilioService(client), nil
	case BackendWhatsmeow:
		client, err := whatsapp.NewClient(buildWhatsAppOptions(flags)...)
		if err != nil {
			return nil, fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
		return messaging.NewWhatsAppService(client), nil
	case BackendNone:
		slog.Warn("Messaging backend disabled; outbound messages are only logged")
		return messaging.NewLogService(), nil
	default:
		svc, err := messaging.NewCloudAPIService()
		if err != nil {
			return nil, fmt.Errorf("failed to create WhatsApp Cloud API service: %w", err)
		}
		return svc, nil
	}
}
