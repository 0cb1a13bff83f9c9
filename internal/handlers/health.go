package handlers

import (
	"net/http"
	"os"

	"gammaflow-intel/backend-go/internal/models"
)

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	deps := []string{}
	missing := []string{}
	depsStatus := map[string]models.DepStatus{}

	ctx, cancel := contextTimeout(r.Context(), a.cfg.RequestTimeout)
	defer cancel()

	// One cheap snapshot fetch doubles as the provider probe; the chain
	// cache absorbs it when traffic is flowing.
	if len(a.cfg.ScanUniverse) > 0 {
		snap, health := a.chain.Snapshot(ctx, a.cfg.ScanUniverse[0])
		if health.Error != "" && len(snap.Contracts) == 0 {
			missing = append(missing, "market_data_unreachable")
			depsStatus["market_data"] = models.DepStatus{Ok: false, Error: health.Error}
		} else {
			deps = append(deps, "market_data")
			depsStatus["market_data"] = models.DepStatus{Ok: true}
		}
	}

	resp := models.HealthResponse{
		Ok:          len(missing) == 0,
		TsISO:       nowISO(),
		Service:     "backend-go",
		Version:     os.Getenv("SERVICE_VERSION"),
		Deps:        deps,
		DepsStatus:  depsStatus,
		DataMissing: missing,
		Env: map[string]bool{
			"MARKET_API_KEY":  os.Getenv("MARKET_API_KEY") != "",
			"MARKET_BASE_URL": os.Getenv("MARKET_BASE_URL") != "",
			"REDIS_URL":       os.Getenv("REDIS_URL") != "",
		},
	}
	writeJSON(w, http.StatusOK, resp)
}
