package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"adboard/market/internal/api"
	"adboard/market/internal/auth"
	"adboard/market/internal/cache"
	"adboard/market/internal/config"
	"adboard/market/internal/db"
	"adboard/market/internal/notify"
	"adboard/market/internal/services"
	"adboard/market/internal/storage"
	"adboard/market/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

// blobBackend is what the configured blob store offers: writing for the sell
// flow and, for GridFS, reading for the image route.
type blobBackend struct {
	store  storage.BlobStore
	reader storage.BlobReader
}

func setupLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Invalid LOG_LEVEL %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func openBlobBackend(cfg *config.Config, mongoDb *mongo.Database) (blobBackend, error) {
	if cfg.BlobBackend == config.BlobBackendGridFS {
		gridfsStore, err := storage.NewGridFSStorage(mongoDb, cfg.GridFSBucket, cfg.PublicBaseURL)
		if err != nil {
			return blobBackend{}, err
		}
		return blobBackend{store: gridfsStore, reader: gridfsStore}, nil
	}
	s3Client, err := storage.NewS3Client(cfg)
	if err != nil {
		return blobBackend{}, err
	}
	return blobBackend{store: storage.NewS3Storage(cfg, s3Client)}, nil
}

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	setupLogging(cfg)

	// Initialize Database
	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Errorf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.EnsureIndexes(indexCtx, mongoDb, cfg.ListingsCollection, cfg.UsersCollection); err != nil {
		cancelIndex()
		log.Fatalf("Failed to ensure indexes: %v", err)
	}
	cancelIndex()

	// Initialize Cache (Redis)
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Errorf("Error disconnecting from Redis: %v", err)
		}
	}()

	blobs, err := openBlobBackend(cfg, mongoDb)
	if err != nil {
		log.Fatalf("Failed to initialize %s blob storage: %v", cfg.BlobBackend, err)
	}
	log.Infof("Using %s blob storage", cfg.BlobBackend)

	// Background loops stop when ctx is cancelled during shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// WaitGroup for managing goroutines
	var wg sync.WaitGroup

	// Channel to signal shutdown from Service API
	shutdownChan := make(chan struct{}, 1)

	var mainApiSrv *http.Server
	var backgroundTaskSrv *asynq.Server
	var taskClient *asynq.Client
	var registry *services.SessionRegistry
	var provider *auth.SessionProvider

	log.Infof("Starting application in '%s' mode...", cfg.RunMode)

	apiMode := func() {
		log.Info("Starting main API server...")
		redisNotifier := notify.NewRedisNotifier(redisClient, cfg.NotificationTTL)
		notifier := notify.NewCompositeNotifier(notify.LoggingNotifier{}, redisNotifier)

		provider = auth.NewSessionProvider(mongoDb, cfg.UsersCollection, redisClient, cfg.JwtSecret, cfg.JwtTTL)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := provider.Run(ctx); err != nil {
				log.Errorf("Session change listener stopped: %v", err)
			}
		}()

		registry = services.NewSessionRegistry(provider, cfg.SessionIdleTTL)
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.Run(ctx, time.Minute)
		}()

		var cleanup services.IOrphanBlobScheduler
		if cfg.OrphanBlobCleanup {
			taskClient = tasks.NewClient(redisClient)
			cleanup = tasks.NewScheduler(taskClient)
			log.Info("Orphaned image cleanup enabled")
		}

		documents := db.NewMongoStore(mongoDb, cfg.BackendTimeout)
		writer := services.NewListingWriter(documents, blobs.store, notifier, cfg.ListingsCollection, cleanup)

		mainApiRouter := api.SetupRouter(ctx, cfg, api.RouterDeps{
			Sessions:  registry,
			Documents: documents,
			Writer:    writer,
			Inbox:     redisNotifier,
			Images:    blobs.reader,
		})
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: mainApiRouter,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Infof("Main API listening on :%s", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Main API ListenAndServe error: %v", err)
			}
			log.Info("Main API server stopped.")
		}()
	}

	bgMode := func() {
		log.Info("Starting background worker...")
		processor := tasks.NewTaskProcessor(blobs.store)
		var mux *asynq.ServeMux
		backgroundTaskSrv, mux = tasks.SetupServer(redisClient, processor, 5)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := backgroundTaskSrv.Run(mux); err != nil {
				log.Fatalf("Background task server error: %v", err)
			}
			log.Info("Background task server stopped.")
		}()
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		log.Fatalf("Invalid run mode specified in config: %s.", cfg.RunMode)
	}

	// Start Service API (always runs)
	var sessionStats api.SessionCounter
	var observerStats api.ObserverCounter
	if registry != nil {
		sessionStats, observerStats = registry, provider
	}
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(shutdownChan, sessionStats, observerStats),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Infof("Service API listening on :%s", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Service API ListenAndServe error: %v", err)
		}
		log.Info("Service API server stopped.")
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Infof("Received signal: %s. Shutting down gracefully...", sig)
	case <-shutdownChan:
		log.Info("Shutdown requested via Service API. Shutting down gracefully...")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Errorf("Service API server shutdown error: %v", err)
	}
	if mainApiSrv != nil {
		log.Info("Shutting down Main API server...")
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Errorf("Main API server shutdown error: %v", err)
		}
	}
	if backgroundTaskSrv != nil {
		log.Info("Shutting down Background Task server...")
		backgroundTaskSrv.Shutdown()
	}

	// Stops the session listener, the registry reaper and the rate limiter cleanup.
	cancel()
	if taskClient != nil {
		if err := taskClient.Close(); err != nil {
			log.Errorf("Error closing task client: %v", err)
		}
	}

	log.Info("Waiting for servers to stop...")
	wg.Wait()
	log.Info("Server gracefully stopped")
}
