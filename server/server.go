package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trackanalyzer/cache"
	"trackanalyzer/config"
	"trackanalyzer/core/auth"
	"trackanalyzer/db"
	"trackanalyzer/gateway"
	"trackanalyzer/logger"
	"trackanalyzer/repository"
	"trackanalyzer/storage"

	"github.com/gorilla/mux"
)

// Start initializes the backing stores and runs the HTTP server until
// interrupted.
func Start() {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogOutputPath,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("Failed to initialize MinIO", logger.ErrorField(err))
	}

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.CloseDB()

	// GORM is only used for schema migration; all query traffic goes through
	// the database/sql repositories.
	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("Failed to connect GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to migrate schema", logger.ErrorField(err))
	}

	// Redis only backs the signed-URL cache; the server runs without it.
	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Warn("Redis unavailable, signed URLs will not be cached", logger.ErrorField(err))
	} else {
		defer cache.CloseRedis()
	}

	trackRepo := repository.NewMySQLTrackRepository(db.DB)
	readingRepo := repository.NewMySQLReadingRepository(db.DB)
	userRepo := repository.NewMySQLUserRepository(db.DB)

	photoStore := storage.NewPhotoStore(storage.GetMinioClient(), cfg.PhotoBucket)
	urlCache := cache.NewSignedURLCache(cache.RedisClient)

	gw := gateway.New(trackRepo, readingRepo, photoStore, urlCache,
		storage.ObjectKey, storage.ContentTypeFor)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry)
	apiHandler := NewAPIHandler(gw, userRepo, tokens, cfg)

	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Auth
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)

	// Tracks
	router.HandleFunc("/api/tracks", apiHandler.AuthMiddleware(apiHandler.GetTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks", apiHandler.AuthMiddleware(apiHandler.CreateTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteTrackHandler)).Methods(http.MethodDelete)

	// Readings
	router.HandleFunc("/api/tracks/{id}/readings", apiHandler.AuthMiddleware(apiHandler.GetReadingsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}/readings", apiHandler.AuthMiddleware(apiHandler.CreateReadingHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/readings/{id}", apiHandler.AuthMiddleware(apiHandler.GetReadingHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/readings/{id}", apiHandler.AuthMiddleware(apiHandler.UpdateReadingHandler)).Methods(http.MethodPatch)
	router.HandleFunc("/api/readings/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteReadingHandler)).Methods(http.MethodDelete)

	// Photos
	router.HandleFunc("/api/readings/{id}/photos/{lane}", apiHandler.AuthMiddleware(apiHandler.UploadPhotoHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/photos/url", apiHandler.AuthMiddleware(apiHandler.SignedURLHandler)).Methods(http.MethodGet)

	server.Handler = router

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}
