package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cliphub/internal/database"
	"cliphub/internal/filesystem"
	"cliphub/internal/handlers"
	"cliphub/internal/indexer"
	"cliphub/internal/ingest"
	"cliphub/internal/logging"
	"cliphub/internal/media"
	"cliphub/internal/memory"
	"cliphub/internal/metrics"
	"cliphub/internal/middleware"
	"cliphub/internal/notify"
	"cliphub/internal/pipeline"
	"cliphub/internal/startup"
	"cliphub/internal/storage"
	"cliphub/internal/workers"

	"github.com/gorilla/mux"
)

const (
	// shutdownTimeout bounds the whole graceful shutdown, including the
	// thumbnail queue drain.
	shutdownTimeout = 30 * time.Second

	// statsInterval is how often library gauges are refreshed.
	statsInterval = time.Minute

	// maxPipelineWorkers caps PIPELINE_WORKERS and the CPU-derived default.
	maxPipelineWorkers = 16
)

// components holds everything that needs stopping on shutdown.
type components struct {
	db        *database.Database
	queue     *pipeline.Queue
	monitor   *memory.Monitor
	collector *metrics.Collector
	indexer   *indexer.Indexer
	vips      bool
}

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	metrics.AppInfo.WithLabelValues(startup.Version, startup.Commit, startup.GoVersion).Set(1)

	c := &components{}

	if config.Resizer == "vips" {
		if err := media.InitVips(); err != nil {
			logging.Warn("libvips initialization failed: %v", err)
		} else {
			c.vips = true
		}
	}

	dbStart := time.Now()
	c.db, err = database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	artifacts, err := storage.NewManager(storage.Layout{
		Dir:       config.ThumbnailDir,
		URLPrefix: config.ThumbnailURLPrefix,
	})
	if err != nil {
		startup.LogFatal("Failed to initialize thumbnail storage: %v", err)
	}

	prober := media.DefaultProber(config.FFprobePath)
	orch, err := pipeline.NewOrchestrator(pipeline.Deps{
		Store:     c.db,
		Storage:   artifacts,
		Prober:    prober,
		Extractor: media.FFmpegExtractor{Path: config.FFmpegPath},
		Resizer:   media.NewResizer(config.Resizer),
		Notifier:  notify.New(config.DiscordWebhookURL, config.FrontendURL, config.BackendURL),
	})
	if err != nil {
		startup.LogFatal("Failed to initialize thumbnail pipeline: %v", err)
	}

	c.monitor = memory.NewMonitor(memory.DefaultConfig())
	c.monitor.Start()

	workerCount := workers.Resolve(config.PipelineWorkers, maxPipelineWorkers)
	startup.LogPipelineInit(startup.PipelineInfo{
		Workers:     workerCount,
		QueueSize:   config.PipelineQueueSize,
		Resizer:     resizerName(config.Resizer, c.vips),
		FFmpegPath:  config.FFmpegPath,
		FFprobePath: config.FFprobePath,
		Notify:      config.DiscordWebhookURL != "",
	})
	c.queue = pipeline.NewQueue(orch, pipeline.QueueConfig{
		Workers: workerCount,
		Size:    config.PipelineQueueSize,
		Gate:    c.monitor,
	})
	c.queue.Start()
	startup.LogPipelineStarted()

	svc, err := ingest.NewService(ingest.Config{
		UploadDir:          config.UploadDir,
		MaxUploadSize:      config.MaxUploadSize,
		AcceptedExtensions: config.AcceptedExtensions,
		NotifyOnUpload:     config.NotifyOnUpload,
	}, c.db, prober, c.queue, artifacts)
	if err != nil {
		startup.LogFatal("Failed to initialize upload service: %v", err)
	}

	c.collector = metrics.NewCollector(c.db, statsInterval)
	c.collector.Start()

	c.indexer = indexer.New(c.db, config.ThumbnailDir, config.ArtifactScanInterval)
	c.indexer.Start()
	startup.LogArtifactIndexInit(config.ArtifactScanInterval)

	h := handlers.New(c.db, svc, c.queue)
	router := setupRouter(h, config)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	srv := newServer(":"+config.Port, wrapLogging(router, config))

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(":"+config.MetricsPort, h)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, c)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}

	// ListenAndServe returns as soon as Shutdown starts; wait for the rest.
	<-shutdownDone
}

var shutdownDone = make(chan struct{})

// setupRouter builds the API router with the metrics middleware installed
// on it, so request labels use route templates.
func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	metricsConfig := middleware.DefaultMetricsConfig()
	metricsConfig.StaticPrefix = staticPrefix(config.ThumbnailURLPrefix)

	return handlers.NewRouter(h, handlers.RouterConfig{
		ThumbnailDir:       config.ThumbnailDir,
		ThumbnailURLPrefix: config.ThumbnailURLPrefix,
		Middleware:         []mux.MiddlewareFunc{middleware.Metrics(metricsConfig)},
	})
}

// wrapLogging applies the access log outside the router so unmatched
// requests are logged too.
func wrapLogging(next http.Handler, config *startup.Config) http.Handler {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.StaticPrefix = staticPrefix(config.ThumbnailURLPrefix)
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	return middleware.Logger(loggingConfig)(next)
}

func staticPrefix(urlPrefix string) string {
	return "/" + strings.Trim(urlPrefix, "/") + "/"
}

func resizerName(requested string, vipsReady bool) string {
	if requested == "vips" && vipsReady {
		return "vips"
	}
	return "imaging"
}

// newServer returns the API server. WriteTimeout stays 0 because uploads
// of up to MAX_UPLOAD_SIZE are streamed through the handler.
func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}
}

func newMetricsServer(addr string, h *handlers.Handlers) *http.Server {
	serveMux := http.NewServeMux()
	serveMux.Handle("/metrics", h.MetricsHandler())
	serveMux.HandleFunc("/health", h.LivenessCheck)

	return &http.Server{
		Addr:         addr,
		Handler:      serveMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

func handleShutdown(srv, metricsSrv *http.Server, c *components) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var sig os.Signal
	for sig = range sigChan {
		if sig != syscall.SIGHUP {
			break
		}
		// SIGHUP requests an artifact scan outside the schedule
		logging.Info("Received %s, scanning thumbnail directory", sig)
		c.indexer.TriggerIndex()
	}

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdown(ctx, srv, metricsSrv, c)
	close(shutdownDone)
}

// shutdown stops accepting uploads first so no new jobs arrive, then
// drains the thumbnail queue before closing the database it writes to.
func shutdown(ctx context.Context, srv, metricsSrv *http.Server, c *components) {
	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if c.queue != nil {
		startup.LogShutdownStep("Draining thumbnail queue")
		if err := c.queue.Stop(ctx); err != nil {
			logging.Warn("Thumbnail queue did not drain: %v", err)
		} else {
			startup.LogShutdownStepComplete("Thumbnail queue drained")
		}
	}

	if c.monitor != nil {
		c.monitor.Stop()
	}

	if c.indexer != nil {
		c.indexer.Stop()
	}

	if c.collector != nil {
		startup.LogShutdownStep("Stopping metrics collector")
		c.collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	if c.db != nil {
		startup.LogShutdownStep("Closing database")
		if err := c.db.Close(); err != nil {
			logging.Warn("Database close error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Database closed")
		}
	}

	if c.vips {
		media.ShutdownVips()
	}

	startup.LogShutdownComplete()
}
