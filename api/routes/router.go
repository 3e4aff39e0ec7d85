package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/treumlabs/signalcast/api/controllers"
	"github.com/treumlabs/signalcast/api/middleware"
	"github.com/treumlabs/signalcast/pkg/config"
	"github.com/treumlabs/signalcast/pkg/logger"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	Queue    controllers.QueueService
	Health   map[string]controllers.Pinger
	Registry prometheus.Gatherer
}

// NewRouter assembles the admin API.
func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.Health))
	})

	if params.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/queue", func(r chi.Router) {
		r.Post("/", controllers.QueueAdd(params.Queue, logg))
		r.Post("/process", controllers.QueueProcess(params.Queue, logg))
		r.Get("/status", controllers.QueueStatus(params.Queue, logg))
		r.Get("/pending", controllers.QueuePending(params.Queue, logg))
		r.Post("/{itemID}/approve", controllers.QueueApprove(params.Queue, logg))
		r.Post("/{itemID}/reject", controllers.QueueReject(params.Queue, logg))
		r.Delete("/old", controllers.QueueCleanup(params.Queue, logg))
	})

	return r
}
