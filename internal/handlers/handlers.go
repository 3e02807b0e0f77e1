package handlers

import (
	"CodeDrop/internal/config"
	"CodeDrop/internal/middleware"
	"CodeDrop/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	exchangeService *service.ExchangeService,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithRequestID)
	r.Use(middleware.WithMetrics)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithGzip)

	// Handlers
	exchangeHandler := NewExchangeHandler(exchangeService, logger, config)

	// Exchange routes
	r.Route("/api/exchanges", func(r chi.Router) {
		r.Post("/", exchangeHandler.CreateFromData)
		r.Post("/files", exchangeHandler.CreateFromFiles)
		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", exchangeHandler.Get)
			r.Post("/verify", exchangeHandler.Verify)
			r.Get("/items/{index}", exchangeHandler.Consume)
			r.Delete("/", exchangeHandler.Delete)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return &Handler{Router: r}
}
