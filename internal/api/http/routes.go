package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mind-engage/quizd/internal/metrics"
	"github.com/mind-engage/quizd/internal/quiz"
	"github.com/mind-engage/quizd/internal/storage"
	syncx "github.com/mind-engage/quizd/internal/sync"
)

type Deps struct {
	Service *quiz.Service
	Blobs   storage.BlobStore
	Events  *syncx.EventRepo
	Metrics *metrics.Metrics
	Log     *zap.Logger

	// PlayLimiter throttles /play; nil disables it.
	PlayLimiter *RateLimiter
	// Ready reports whether dependencies (DB) are reachable.
	Ready func(ctx context.Context) error
}

// Routes builds the API router. CORS is left to the caller.
func Routes(d Deps) chi.Router {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Use(RequestLogger(d.Log))
	r.Use(middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(middleware.Timeout(30 * time.Second))

	svc := d.Service

	r.Route("/questions", func(qr chi.Router) {
		qr.Get("/", ListQuestionsHandler(svc))
		qr.Post("/", CreateQuestionHandler(svc))
		qr.Get("/{questionID}", GetQuestionHandler(svc))
		qr.Put("/{questionID}", UpdateQuestionHandler(svc))
		qr.Delete("/{questionID}", DeleteQuestionHandler(svc))
	})
	r.Get("/categories", ListCategoriesHandler(svc))
	r.Post("/categories", CreateCategoryHandler(svc))

	r.Route("/play", func(pr chi.Router) {
		if d.PlayLimiter != nil {
			pr.Use(d.PlayLimiter.Middleware)
		}
		pr.Post("/start", StartAttemptHandler(svc))
		pr.Post("/submit/{attemptID}", SubmitAttemptHandler(svc))
	})

	r.Get("/attempts", ListAttemptsHandler(svc))
	r.Get("/attempts/export.csv", ExportAttemptsCSVHandler(svc))
	r.Get("/attempts/{attemptID}", GetAttemptHandler(svc))

	if d.Events != nil {
		r.Get("/events", ListEventsHandler(d.Events))
	}
	if d.Blobs != nil {
		r.Route("/assets", func(ar chi.Router) {
			MountAssets(ar, d.Blobs)
		})
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	return r
}
