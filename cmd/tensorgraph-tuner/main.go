// tensorgraph-tuner — периодический автотюнинг графа.
//
// Tuner:
//   - По cron-расписанию (TUNER_CRON) проходит граф из TUNER_MANIFEST в фазе autotune
//   - Кэширует выбранные реализации в PostgreSQL (DB_URL, DB_MAX_CONNS)
//   - Публикует события диспетчеризации и итоги проходов в RabbitMQ (RABBITMQ_URL)
//   - Экспортирует /metrics, /healthz и служебный API на TUNER_PORT
//
// Без PostgreSQL кэш живёт в памяти процесса, без RabbitMQ события не публикуются.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/tensorgraph/internal/api"
	"github.com/shaiso/tensorgraph/internal/backend"
	"github.com/shaiso/tensorgraph/internal/graph"
	"github.com/shaiso/tensorgraph/internal/mq"
	"github.com/shaiso/tensorgraph/internal/repo"
	"github.com/shaiso/tensorgraph/internal/scheduler"
	"github.com/shaiso/tensorgraph/internal/telemetry"
	"github.com/shaiso/tensorgraph/internal/tuner"
	"github.com/shaiso/tensorgraph/internal/tuning"
)

const defaultWorkspace = 64 << 20

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting tensorgraph-tuner")

	manifestPath := os.Getenv("TUNER_MANIFEST")
	if manifestPath == "" {
		logger.Error("TUNER_MANIFEST is required")
		os.Exit(1)
	}

	expr := os.Getenv("TUNER_CRON")
	if expr == "" {
		expr = "@every 1h"
	}

	workspace := int64(defaultWorkspace)
	if v := os.Getenv("TUNER_WORKSPACE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			logger.Error("invalid TUNER_WORKSPACE", "value", v)
			os.Exit(1)
		}
		workspace = n
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = telemetry.WithLogger(ctx, logger)

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	// PostgreSQL
	var store tuning.Store = tuning.NewMemoryStore()
	poolCfg, err := repo.PoolConfigFromEnv("tensorgraph-tuner")
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(1)
	}
	pool, err := repo.NewPool(ctx, poolCfg)
	if err != nil {
		logger.Warn("database not available, caching selections in memory", "error", err)
	} else {
		defer pool.Close()
		tuneRepo := repo.NewTuneRepo(pool)
		if err := tuneRepo.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		store = tuneRepo
		logger.Info("database connected")
	}

	// RabbitMQ
	observers := []graph.Observer{metrics}
	var sender mq.Sender
	mqConn, err := mq.Dial(mq.URLFromEnv(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, events disabled", "error", err)
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		publisher := mq.NewPublisher(mqConn, logger)
		sender = publisher
		observers = append(observers, mq.NewEventSink(mq.SinkConfig{Sender: publisher, FailuresOnly: true, Logger: logger}))
	}

	tn, err := tuner.New(tuner.Config{
		ManifestPath: manifestPath,
		Workspace:    workspace,
		Autotuner: tuning.New(tuning.Config{
			Inner:    backend.NewRegistry(),
			Store:    store,
			Observer: metrics,
			Logger:   logger,
		}),
		Observers: observers,
		Sender:    sender,
	})
	if err != nil {
		logger.Error("failed to create tuner", "error", err)
		os.Exit(1)
	}

	sched, err := scheduler.New(scheduler.Config{
		Expr:       expr,
		Job:        tn.Pass,
		RunOnStart: true,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}

	// HTTP: /healthz, /metrics и служебный API
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	api.NewHandler(api.Config{Tuner: tn, Store: store, Logger: logger}).RegisterRoutes(mux)

	addr := ":8082"
	if v := os.Getenv("TUNER_PORT"); v != "" {
		addr = ":" + v
	}
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
		// Запросы наследуют логгер и отмену процесса
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
	}

	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
