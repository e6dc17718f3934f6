package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teoneo-site/teoneo-courses/internal/cache"
	"github.com/teoneo-site/teoneo-courses/internal/catalog"
	"github.com/teoneo-site/teoneo-courses/internal/config"
	"github.com/teoneo-site/teoneo-courses/internal/daemon"
	"github.com/teoneo-site/teoneo-courses/internal/grader"
	"github.com/teoneo-site/teoneo-courses/internal/grading"
	"github.com/teoneo-site/teoneo-courses/internal/progress"
	"github.com/teoneo-site/teoneo-courses/internal/queue"
	"github.com/teoneo-site/teoneo-courses/internal/seed"
	"github.com/teoneo-site/teoneo-courses/internal/storage/postgres"
)

func main() {
	seedPath := flag.String("seed", "", "apply a YAML task pack and exit")
	flag.Parse()

	if err := run(*seedPath); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func run(seedPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	setupLogging(cfg.Debug)

	ctx := context.Background()

	// Relational store
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()
	if err := db.Ensure(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	taskStore := postgres.NewTaskStore(db)
	progressStore := postgres.NewProgressStore(db)

	if seedPath != "" {
		pack, err := seed.Load(seedPath)
		if err != nil {
			return fmt.Errorf("load seed pack: %w", err)
		}
		if err := seed.Apply(ctx, taskStore, pack, nil); err != nil {
			return fmt.Errorf("apply seed pack: %w", err)
		}
		return nil
	}

	// Shared cache; a missing Redis degrades to an in-process cache rather
	// than blocking startup.
	var cacheClient cache.Cache
	redisCache, err := cache.NewRedis(ctx, cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		slog.Warn("redis unavailable, using in-process cache", "error", err)
		cacheClient = cache.NewMemory()
	} else {
		cacheClient = redisCache
		defer redisCache.Close()
	}

	// AI grading client
	gradingClient := grader.NewResilient(grader.NewHTTPClient(grader.HTTPConfig{
		BaseURL: cfg.GraderURL,
		Token:   cfg.GraderToken,
		Model:   cfg.GraderModel,
		Timeout: cfg.GraderTimeout,
	}), grader.ResilientConfig{})

	invalidator := cache.NewInvalidator(cacheClient)
	strategies := grading.NewSelector(gradingClient)

	// Async grading path: AMQP when a broker is configured, otherwise
	// in-process goroutines.
	var (
		dispatcher     queue.Dispatcher
		queueConn      *queue.Connection
		consumer       *queue.Consumer
		inProcess      *queue.InProcess
		queueConnected func() bool
	)

	// The handler needs the service; the service needs the dispatcher. The
	// indirection below breaks the cycle.
	var svc *progress.Service
	handler := func(ctx context.Context, job *queue.GradingJob) (*queue.GradingEvent, error) {
		return svc.HandleGradingJob(ctx, job)
	}

	if cfg.RabbitMQURL != "" {
		queueConn, err = queue.NewConnection(cfg.RabbitMQURL)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer queueConn.Close()

		producer := queue.NewProducer(queueConn)
		dispatcher = producer
		consumer = queue.NewConsumer(queueConn, handler, queue.ConsumerConfig{
			Workers: cfg.Workers,
		})
		queueConnected = queueConn.IsConnected
	} else {
		slog.Info("no broker configured, grading in-process")
		inProcess = queue.NewInProcess(handler, 0, nil)
		dispatcher = inProcess
	}

	svc = progress.NewService(
		progressStore,
		taskStore,
		cacheClient,
		invalidator,
		strategies,
		dispatcher,
		slog.Default(),
	)
	catalogSvc := catalog.NewService(taskStore, cacheClient, slog.Default())

	var verifier daemon.IdentityVerifier = daemon.NewGatewayVerifier("")
	if cfg.Debug {
		verifier = daemon.DebugVerifier{}
	}

	server := daemon.NewServer(daemon.ServerConfig{
		Config:         cfg,
		Progress:       svc,
		Catalog:        catalogSvc,
		Cache:          cacheClient,
		Verifier:       verifier,
		QueueConnected: queueConnected,
	})

	if consumer != nil {
		if err := consumer.Start(ctx); err != nil {
			return fmt.Errorf("start consumer: %w", err)
		}
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		slog.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		if consumer != nil {
			consumer.Stop()
		}
		if inProcess != nil {
			inProcess.Wait()
		}
		close(done)
	}()

	if err := server.Start(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	slog.Info("daemon stopped")
	return nil
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
