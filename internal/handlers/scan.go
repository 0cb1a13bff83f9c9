package handlers

import (
	"net/http"

	"gammaflow-intel/backend-go/internal/services"
)

// ScanUnusual serves the ranked unusual-candidate list. Query params:
// min_score, type (call|put), symbols (comma list), limit.
func (a *API) ScanUnusual(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.ScanFilter{
		MinScore:   parseIntParam(q.Get("min_score"), 0, 0, 100),
		OptionType: parseOptionType(q.Get("type")),
		Universe:   parseSymbols(q.Get("symbols"), a.cfg.MaxUniverse),
		Limit:      parseIntParam(q.Get("limit"), 100, 1, 500),
	}

	ctx, cancel := contextTimeout(r.Context(), a.cfg.ScanTimeout)
	defer cancel()
	writeJSON(w, http.StatusOK, a.scan.Scan(ctx, filter))
}
