package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/t77yq/energy-dashboard/internal/api"
	"github.com/t77yq/energy-dashboard/internal/config"
	"github.com/t77yq/energy-dashboard/internal/handler"
	"github.com/t77yq/energy-dashboard/internal/logging"
	"github.com/t77yq/energy-dashboard/internal/metrics"
	"github.com/t77yq/energy-dashboard/internal/monitor"
	"github.com/t77yq/energy-dashboard/internal/scheduler"
	"github.com/t77yq/energy-dashboard/internal/seed"
	"github.com/t77yq/energy-dashboard/internal/service"
	"github.com/t77yq/energy-dashboard/internal/storage"
	"github.com/t77yq/energy-dashboard/internal/usage"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to ./config/config.yaml)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Seed the stores
	data := seed.Default()
	if cfg.Seed.File != "" {
		data, err = seed.LoadFile(cfg.Seed.File)
		if err != nil {
			logger.Fatal("Failed to load seed file", zap.String("path", cfg.Seed.File), zap.Error(err))
		}
	}

	alerts, err := monitor.NewAlertStore(logger, data.Alerts)
	if err != nil {
		logger.Fatal("Failed to create alert store", zap.Error(err))
	}
	notifications, err := monitor.NewNotificationStore(logger, data.Notifications)
	if err != nil {
		logger.Fatal("Failed to create notification store", zap.Error(err))
	}

	prefs, err := cfg.NotificationPreferences()
	if err != nil {
		logger.Fatal("Invalid notification preferences", zap.Error(err))
	}
	preferences := monitor.NewPreferencesStore(logger, prefs)

	host := monitor.NewHostSampler(cfg.App.HostSampleInterval, logger)
	if err := host.Start(ctx); err != nil {
		logger.Fatal("Failed to start host sampler", zap.Error(err))
	}

	recorder := metrics.NewRecorder()
	detachMetrics := recorder.Attach(alerts, notifications)
	defer detachMetrics()

	// Create alert history storage
	history, err := storage.NewSQLiteAlertHistory(logger, cfg.Storage.HistoryPath)
	if err != nil {
		logger.Fatal("Failed to create alert history storage", zap.Error(err))
	}
	defer history.Close()

	historyRecorder := storage.NewHistoryRecorder(history, logger)
	// Stopped explicitly once every writer is gone
	historyRecorder.Start(context.Background())
	detachHistory := historyRecorder.Attach(alerts)

	// Optional NATS fan-out, remote commands and periodic summaries
	var (
		js        nats.JetStreamContext
		busSink   scheduler.DigestSink
		commands  *service.CommandListener
		collector *monitor.MetricsCollector
		detachBus = func() {}
	)
	if cfg.NATS.Enabled {
		nc := connectNATS(cfg, logger)
		defer nc.Close()

		js, err = nc.JetStream(
			nats.PublishAsyncMaxPending(256),
			nats.PublishAsyncErrHandler(func(_ nats.JetStream, msg *nats.Msg, err error) {
				logger.Error("Failed to store event",
					zap.String("subject", msg.Subject),
					zap.Error(err))
			}),
		)
		if err != nil {
			logger.Fatal("Failed to create JetStream context", zap.Error(err))
		}

		publisher := service.NewEventPublisher(js, logger)
		if err := publisher.EnsureStream(); err != nil {
			logger.Fatal("Failed to create event stream", zap.Error(err))
		}
		detachBus = publisher.Attach(alerts, notifications)
		busSink = publisher

		commands = service.NewCommandListener(nc, alerts, notifications, logger)
		if err := commands.Start(); err != nil {
			logger.Fatal("Failed to start command listener", zap.Error(err))
		}

		collector = monitor.NewMetricsCollector(js, cfg.NATS.SummaryInterval, alerts, notifications, logger)
		collector.SetHostSampler(host)
		if err := collector.Start(ctx); err != nil {
			logger.Fatal("Failed to start summary collector", zap.Error(err))
		}
	}

	notifier := handler.NewNotificationHandler(logger, cfg.Delivery)
	sink := scheduler.MultiSink(busSink, recorder.InstrumentSink(notifier))

	digests := scheduler.NewDigestScheduler(alerts, notifications, preferences, sink, logger)
	if cfg.Digest.Enabled {
		if _, err := digests.AddSchedule("alert-digest", cfg.Digest.Expression); err != nil {
			logger.Fatal("Failed to add digest schedule", zap.Error(err))
		}
	}
	digests.Start()

	hub := api.NewHub(ctx, logger)
	go hub.Run()
	detachHub := hub.Attach(alerts, notifications)

	server := api.NewServer(api.Deps{
		Alerts:        alerts,
		Notifications: notifications,
		Preferences:   preferences,
		Usage:         usage.NewSelector(),
		History:       history,
		Digests:       digests,
		Metrics:       recorder,
		Hub:           hub,
		Host:          host,
	}, logger)
	serverErr := server.Start(cfg.HTTP.Addr, cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout)

	// Setup signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		case err, ok := <-serverErr:
			if ok {
				logger.Error("HTTP server failed", zap.Error(err))
			}
		}
		cancel()
	}()

	// Cleanup old transition history
	go func() {
		cleanupTicker := time.NewTicker(cfg.Storage.CleanupInterval)
		defer cleanupTicker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-cleanupTicker.C:
				cutoff := time.Now().Add(-cfg.Storage.Retention)
				if _, err := history.DeleteBefore(ctx, cutoff); err != nil {
					logger.Error("Failed to cleanup old alert history", zap.Error(err))
				}
			}
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown incomplete", zap.Error(err))
	}
	if commands != nil {
		commands.Stop()
	}
	digests.Stop()
	if collector != nil {
		collector.Stop()
	}

	detachHub()
	hub.Stop()
	detachBus()
	if js != nil {
		select {
		case <-js.PublishAsyncComplete():
		case <-shutdownCtx.Done():
			logger.Warn("Pending events were not acknowledged before shutdown")
		}
	}
	detachHistory()
	historyRecorder.Stop()

	logger.Info("Server shutting down gracefully")
}

// connectNATS connects with retry, exiting when every attempt fails
func connectNATS(cfg *config.Config, logger *zap.Logger) *nats.Conn {
	opts := []nats.Option{
		nats.Name(cfg.App.Name),
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.ReconnectWait(cfg.NATS.ReconnectWait),
		nats.Timeout(cfg.NATS.ConnectTimeout),
		nats.PingInterval(20 * time.Second),
		nats.MaxPingsOutstanding(5),
		nats.ReconnectBufSize(5 * 1024 * 1024), // 5MB
		nats.DrainTimeout(30 * time.Second),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logger.Error("NATS connection error",
				zap.String("subject", subject),
				zap.Error(err))
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected",
				zap.String("url", nc.ConnectedUrl()))
		}),
	}

	var (
		nc  *nats.Conn
		err error
	)
	for i := 0; i < cfg.NATS.ConnectRetries; i++ {
		nc, err = nats.Connect(cfg.NATS.URL, opts...)
		if err == nil {
			break
		}
		logger.Warn("Failed to connect to NATS, retrying...",
			zap.Int("attempt", i+1),
			zap.Error(err))
		time.Sleep(time.Second * time.Duration(i+1))
	}
	if nc == nil {
		logger.Fatal("Failed to connect to NATS after retries", zap.Error(err))
	}

	logger.Info("Connected to NATS successfully",
		zap.String("url", nc.ConnectedUrl()))
	return nc
}
