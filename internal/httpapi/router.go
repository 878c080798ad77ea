// Package httpapi exposes the directory service over HTTP.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/YoadTamar/aws-hw2/directory"
	"github.com/YoadTamar/aws-hw2/internal/metrics"
)

// Info is the configuration echoed by GET /.
type Info struct {
	CacheEnabled bool   `json:"USE_CACHE"`
	StoreDriver  string `json:"STORE_DRIVER"`
	TableName    string `json:"TABLE_NAME"`
	AWSRegion    string `json:"AWS_REGION"`
	CacheBackend string `json:"CACHE_BACKEND"`
}

// Handler serves the record routes.
type Handler struct {
	svc      *directory.Service
	info     Info
	validate *validator.Validate
	logger   *zap.Logger
	metrics  *metrics.Recorder
}

func NewHandler(svc *directory.Service, info Info, logger *zap.Logger, recorder *metrics.Recorder) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:      svc,
		info:     info,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		metrics:  recorder,
	}
}

// Routes builds the router with its middleware chain.
func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(requestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(accessLog(h.logger, h.metrics))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.respondError(w, r, routeNotFound(r.URL.Path))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.respondError(w, r, methodNotAllowed(r.Method))
	})

	router.Get("/", h.configEcho)
	router.Get("/healthz", h.health)
	router.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	router.Route("/records", func(r chi.Router) {
		r.Post("/", h.createRecord)
		r.Post("/rating", h.submitRating)
		r.Get("/category/{category}", h.listByCategory)
		r.Get("/region/{region}", h.listByRegion)
		r.Get("/region/{region}/category/{category}", h.listByRegionAndCategory)
		r.Get("/{name}", h.getRecord)
		r.Delete("/{name}", h.deleteRecord)
	})

	return router
}
