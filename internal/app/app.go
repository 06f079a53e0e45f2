package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aoi01/fridgesnap/internal/alerts"
	"github.com/aoi01/fridgesnap/internal/cache"
	"github.com/aoi01/fridgesnap/internal/config"
	"github.com/aoi01/fridgesnap/internal/controllers"
	"github.com/aoi01/fridgesnap/internal/dbkeeper"
	"github.com/aoi01/fridgesnap/internal/filekeeper"
	"github.com/aoi01/fridgesnap/internal/gemini"
	"github.com/aoi01/fridgesnap/internal/logger"
	"github.com/aoi01/fridgesnap/internal/objectstore"
	"github.com/aoi01/fridgesnap/internal/recipes"
	"github.com/aoi01/fridgesnap/internal/retry"
	"github.com/aoi01/fridgesnap/internal/storage"
)

type Server struct {
	Log *logger.Logger

	srv     *http.Server
	ctx     context.Context
	option  *config.Options
	storage *storage.MemoryStorage
	cache   cache.Cache
	hub     *alerts.Hub

	mu      sync.Mutex
	stopped bool
}

// NewServer creates a new Server instance with the provided context
func NewServer(ctx context.Context) *Server {
	// create and initialize a new option instance
	option := config.NewOptions()
	option.ParseFlags()

	// get a new logger
	nLogger, err := logger.NewLogger(option.LogLevel())
	if err != nil {
		log.Fatalln(err)
	}

	return &Server{
		Log:    nLogger,
		ctx:    ctx,
		option: option,
	}
}

// Serve wires every component and blocks until the server stops.
func (server *Server) Serve() {
	option := server.option

	keeper, err := server.newKeeper()
	if err != nil {
		server.Log.Error("failed to open storage", zap.Error(err))
		return
	}

	store, err := storage.NewMemoryStorage(server.ctx, keeper, server.Log.Named("storage"))
	if err != nil {
		server.Log.Error("failed to load household data", zap.Error(err))
		keeper.Close()
		return
	}

	policy := retry.DefaultPolicy()
	policy.MaxRetries = option.APIMaxRetries()

	assistant := gemini.NewClient(option.GeminiBaseURL(), option.GeminiModel(), option.GeminiAPIKey(),
		policy, server.Log.Named("gemini"))
	if !assistant.Configured() {
		server.Log.Warn("GEMINI_API_KEY is not set, receipt and recipe generation will fail")
	}

	recipeCache := server.newCache()
	finder := recipes.NewClient(option.RecipeAPIURL(), option.RecipeAppID(), recipeCache,
		option.RecipeCacheTTL(), policy, server.Log.Named("recipes"))

	hub := alerts.NewHub(server.Log.Named("alerts"))
	go alerts.NewScanner(store, hub, option.AlertInterval(), server.Log.Named("alerts")).Run(server.ctx)

	opts := []controllers.Option{controllers.WithAlerts(http.HandlerFunc(hub.ServeWS))}
	if option.S3Bucket() != "" {
		archive, err := objectstore.NewArchive(server.ctx, objectstore.Settings{
			Endpoint:  option.S3Endpoint(),
			Region:    option.S3Region(),
			Bucket:    option.S3Bucket(),
			AccessKey: option.S3AccessKey(),
			SecretKey: option.S3SecretKey(),
		})
		if err != nil {
			server.Log.Warn("receipt archiving disabled", zap.Error(err))
		} else {
			opts = append(opts, controllers.WithReceiptArchive(archive))
		}
	}

	basecontr := controllers.NewBaseController(store, assistant, finder, server.Log, opts...)

	server.mu.Lock()
	server.storage = store
	server.cache = recipeCache
	server.hub = hub
	// configure and start the server
	server.srv = startServer(basecontr.Route(), option.RunAddr())
	stopped := server.stopped
	server.mu.Unlock()
	if stopped {
		server.release()
		return
	}

	server.Log.Info("server started", zap.String("addr", option.RunAddr()))
	if err := server.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		server.Log.Error("server stopped", zap.Error(err))
	}
}

// Shutdown stops accepting requests, waits up to timeout for the running
// ones and releases storage and caches.
func (server *Server) Shutdown(timeout time.Duration) {
	server.mu.Lock()
	server.stopped = true
	srv := server.srv
	server.mu.Unlock()

	if srv == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		server.Log.Error("server shutdown error", zap.Error(err))
	}
	server.release()
	server.Log.Info("server stopped gracefully")
}

func (server *Server) release() {
	if server.hub != nil {
		server.hub.Close()
	}
	if server.storage != nil {
		server.storage.Close()
	}
	if server.cache != nil {
		if err := server.cache.Close(); err != nil {
			server.Log.Warn("failed to close cache", zap.Error(err))
		}
	}
	_ = server.Log.Sync()
}

// newKeeper opens Postgres when a DSN is configured and the JSON data file
// otherwise.
func (server *Server) newKeeper() (storage.Keeper, error) {
	option := server.option
	if option.DataBaseDSN() != "" {
		return dbkeeper.NewDBKeeper(server.ctx, option.DataBaseDSN, option.MigrationsDir(), server.Log.Named("dbkeeper"))
	}
	server.Log.Info("using file storage", zap.String("path", option.DataFile()))
	return filekeeper.NewFileKeeper(option.DataFile(), server.Log.Named("filekeeper"))
}

func (server *Server) newCache() cache.Cache {
	option := server.option
	if option.RedisAddr() == "" {
		return cache.NewMemoryCache()
	}
	rc, err := cache.NewRedisCache(server.ctx, option.RedisAddr(), option.RedisPassword(), option.RedisDB(), server.Log.Named("cache"))
	if err != nil {
		server.Log.Warn("redis is unavailable, caching recipes in memory", zap.Error(err))
		return cache.NewMemoryCache()
	}
	return rc
}

func startServer(router http.Handler, address string) *http.Server {
	return &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
