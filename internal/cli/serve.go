package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"renthub/internal/api"
	"renthub/internal/api/middleware"
	"renthub/internal/audit"
	"renthub/internal/cache"
	"renthub/internal/config"
	"renthub/internal/db"
	"renthub/internal/logging"
	"renthub/internal/services"
	"renthub/internal/storage"
	"renthub/internal/tasks"
)

// Run modes.
const (
	modeAPI = "api"
	modeBG  = "bg"
	modeAll = "all"
)

func newServeCmd() *cobra.Command {
	var runMode string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and/or the background worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch runMode {
			case modeAPI, modeBG, modeAll:
			default:
				return fmt.Errorf("invalid run mode %q: expected api, bg or all", runMode)
			}
			cfg, err := config.Load(runMode)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return serve(cfg)
		},
	}
	cmd.Flags().StringVarP(&runMode, "mode", "m", modeAll, "run mode: 'api', 'bg' (background tasks) or 'all'")
	return cmd
}

// auditSinkDeps are the primary sinks an audit pipeline can be built from.
type auditSinkDeps struct {
	store audit.EventInserter
	queue audit.EventEnqueuer
}

// buildAuditSink picks the primary sink for AUDIT_MODE and fans out to the optional extras.
// The returned closer releases the extras.
func buildAuditSink(cfg *config.Config, deps auditSinkDeps) (audit.Sink, func(), error) {
	var primary audit.Sink
	switch cfg.AuditMode {
	case config.AuditModeQueue:
		primary = audit.NewQueueSink(deps.queue)
	default:
		primary = audit.NewStoreSink(deps.store)
	}

	extras := []audit.Sink{}
	closers := []func(){}
	if cfg.DevMode {
		extras = append(extras, audit.NewLogSink(slog.Default()))
	}
	if cfg.AuditAMQPURL != "" {
		amqpSink, err := audit.NewAMQPSink(cfg.AuditAMQPURL, cfg.AuditAMQPQueue)
		if err != nil {
			return nil, nil, err
		}
		extras = append(extras, amqpSink)
		closers = append(closers, func() {
			if err := amqpSink.Close(); err != nil {
				slog.Warn("Error closing AMQP audit sink", "error", err)
			}
		})
	}
	if len(extras) == 0 {
		return primary, func() {}, nil
	}

	fanout := audit.NewFanoutSink(cfg.AuditFanoutWorkers, append([]audit.Sink{primary}, extras...)...)
	closers = append(closers, fanout.Close)
	return fanout, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}

// buildEstimateCache wires the shared L2 chosen by ESTIMATE_CACHE_BACKEND under the local LRU.
func buildEstimateCache(cfg *config.Config, redisRemote cache.Remote) *cache.EstimateCache {
	switch cfg.EstimateCacheBackend {
	case "memcached":
		return cache.NewEstimateCache(cache.NewMemcacheRemote(strings.Split(cfg.MemcachedAddr, ",")...), cfg.EstimateCacheTTL)
	case "local":
		return cache.NewEstimateCache(nil, cfg.EstimateCacheTTL)
	default:
		return cache.NewEstimateCache(redisRemote, cfg.EstimateCacheTTL)
	}
}

func serve(cfg *config.Config) error {
	logging.Setup(cfg.DevMode)

	// Initialize Database
	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			slog.Error("Error disconnecting from MongoDB", "error", err)
		}
	}()

	// Initialize Cache (Redis)
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			slog.Error("Error disconnecting from Redis", "error", err)
		}
	}()

	// Repositories
	properties := db.NewPropertyRepository(mongoDb)
	applications := db.NewApplicationRepository(mongoDb)
	payments := db.NewPaymentRepository(mongoDb)
	events := db.NewEventLogRepository(mongoDb)

	// Initialize Task Client
	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()

	sink, closeSink, err := buildAuditSink(cfg, auditSinkDeps{store: events, queue: taskClient})
	if err != nil {
		return fmt.Errorf("failed to set up audit sink: %w", err)
	}
	defer closeSink()
	recorder := audit.NewRecorder(sink)

	// Payment proofs are optional; without S3 only cash payments can be submitted.
	var proofs services.IProofStorage
	if cfg.S3Enabled() {
		s3Storage, err := storage.NewS3Storage(context.Background(), cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		proofs = s3Storage
	} else {
		slog.Warn("AWS_S3_BUCKET/AWS_REGION not set: payment proof uploads are disabled")
	}

	estimateCache := buildEstimateCache(cfg, cache.NewRedisRemote(redisClient))
	defer estimateCache.Stop()

	// Initialize Services
	gate := services.NewPropertyGate(properties)
	applicationService := services.NewApplicationService(applications, gate, recorder)
	svc := api.Services{
		Estimates:    services.NewEstimateService(gate, estimateCache),
		Applications: applicationService,
		Payments:     services.NewPaymentService(payments, applications, gate, proofs, recorder),
		Availability: services.NewAvailabilityService(applications, gate, recorder),
		EventLogs:    services.NewEventLogService(events),
	}

	// WaitGroup for managing goroutines
	var wg sync.WaitGroup
	// Channel to signal shutdown from Service API
	shutdownChan := make(chan struct{}, 1)
	// Listener failures end the process through the same path as a signal.
	fatalChan := make(chan error, 3)

	listen := func(name string, srv *http.Server) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slog.Info(name+" listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fatalChan <- fmt.Errorf("%s: %w", name, err)
			}
			slog.Info(name + " stopped")
		}()
	}

	// Start Service API (always runs)
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(shutdownChan),
	}
	listen("Service API", serviceSrv)

	var (
		mainApiSrv        *http.Server
		rateLimiter       *middleware.RateLimiterMiddleware
		backgroundTaskSrv *asynq.Server
		scheduler         *asynq.Scheduler
	)

	slog.Info("Starting application", "mode", cfg.RunMode)

	apiMode := func() error {
		rateLimiter = middleware.NewRateLimiterMiddleware(cfg)
		mainApiSrv = &http.Server{
			Addr:              ":" + cfg.ApiPort,
			Handler:           api.SetupRouter(cfg, svc, rateLimiter),
			ReadHeaderTimeout: 10 * time.Second,
		}
		listen("Main API", mainApiSrv)
		return nil
	}

	bgMode := func() error {
		var mux *asynq.ServeMux
		backgroundTaskSrv, mux = tasks.SetupServer(redisClient, tasks.NewTaskProcessor(events))
		if err := backgroundTaskSrv.Start(mux); err != nil {
			return fmt.Errorf("failed to start background task server: %w", err)
		}
		scheduler, err = tasks.NewScheduler(redisClient, services.DefaultEventRetention)
		if err != nil {
			return err
		}
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		slog.Info("Background worker started")
		return nil
	}

	var startErr error
	switch cfg.RunMode {
	case modeAPI:
		startErr = apiMode()
	case modeBG:
		startErr = bgMode()
	case modeAll:
		if startErr = apiMode(); startErr == nil {
			startErr = bgMode()
		}
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	if startErr != nil {
		runErr = startErr
	} else {
		select {
		case sig := <-quit:
			slog.Info("Received signal, shutting down gracefully", "signal", sig.String())
		case <-shutdownChan:
			slog.Info("Shutdown requested via Service API")
		case runErr = <-fatalChan:
			slog.Error("Server failed, shutting down", "error", runErr)
		}
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		slog.Error("Service API server shutdown error", "error", err)
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			slog.Error("Main API server shutdown error", "error", err)
		}
	}
	if rateLimiter != nil {
		rateLimiter.Stop()
	}
	if scheduler != nil {
		scheduler.Shutdown()
	}
	if backgroundTaskSrv != nil {
		backgroundTaskSrv.Shutdown()
	}

	wg.Wait()
	slog.Info("Server gracefully stopped")
	return runErr
}
