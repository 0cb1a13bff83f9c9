package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gammaflow-intel/backend-go/internal/config"
	"gammaflow-intel/backend-go/internal/handlers"
	"gammaflow-intel/backend-go/internal/services"
)

func NewRouter(cfg config.Config, cache services.Cache, chain *services.ChainClient, aggs *services.AggsClient, bias *services.BiasService, scan *services.ScanService) http.Handler {
	api := handlers.New(cfg, cache, chain, aggs, bias, scan)

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/health", api.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/bias/{symbol}", api.Bias).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/gamma/{symbol}", api.Gamma).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/flow/{symbol}", api.Flow).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/vwap/{symbol}", api.VWAP).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/scan/unusual", api.ScanUnusual).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	h := http.Handler(r)
	h = withMetrics(h)
	h = withRecovery(h)
	h = withLogging(h)
	h = withRateLimit(cfg.RateLimitPerMin)(h)
	h = withCORS(h)
	return h
}
