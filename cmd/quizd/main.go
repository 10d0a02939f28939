package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	api "github.com/mind-engage/quizd/internal/api/http"
	"github.com/mind-engage/quizd/internal/config"
	"github.com/mind-engage/quizd/internal/db"
	"github.com/mind-engage/quizd/internal/grading"
	"github.com/mind-engage/quizd/internal/logger"
	"github.com/mind-engage/quizd/internal/metrics"
	"github.com/mind-engage/quizd/internal/quiz"
	"github.com/mind-engage/quizd/internal/storage"
	syncx "github.com/mind-engage/quizd/internal/sync"
)

func main() {
	cfgDir := flag.String("config", ".", "directory holding an optional config.yaml")
	flag.Parse()

	cfg, err := config.Load(*cfgDir)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logr, err := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Dev: cfg.Mode == config.ModeOffline})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logr.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	driver := db.Driver(cfg.DBDriver)
	dbh, err := db.Open(openCtx, driver, cfg.DBDSN)
	cancel()
	if err != nil {
		logr.Fatal("db open failed", zap.Error(err))
	}
	defer dbh.Close()

	events := syncx.NewEventRepo(dbh, driver, cfg.SiteID)
	store := quiz.NewSQLStore(dbh, driver, events)

	// --- Blobs ---
	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		logr.Fatal("blob store", zap.Error(err))
	}

	// --- Service ---
	m := metrics.New()
	grader := grading.NewDefaultGrader(
		grading.WithNumericTolerance(cfg.NumericTolerance),
		grading.WithMaxEditDistance(cfg.TextMaxEditDistance),
	)
	svc := quiz.NewService(store, grader,
		quiz.WithSampler(quiz.NewRandomSampler(cfg.SamplerSeed)),
		quiz.WithBlobStore(blobs),
		quiz.WithLogger(logr.Named("quiz")),
		quiz.WithObserver(m),
	)

	var limiter *api.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Idempotent-Replay"},
		AllowCredentials: cfg.Mode == config.ModeOnline,
		MaxAge:           300,
	}))
	r.Mount("/", api.Routes(api.Deps{
		Service:     svc,
		Blobs:       blobs,
		Events:      events,
		Metrics:     m,
		Log:         logr.Named("http"),
		PlayLimiter: limiter,
		Ready:       dbh.PingContext,
	}))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("mode", string(cfg.Mode)),
			zap.String("db", cfg.DBDriver),
			zap.String("blob", cfg.BlobDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("shutdown", zap.Error(err))
	}
}

func openBlobs(ctx context.Context, cfg config.Config) (storage.BlobStore, error) {
	if cfg.BlobDriver == "minio" {
		return storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	}
	return storage.NewFSStore(cfg.BlobBasePath)
}
