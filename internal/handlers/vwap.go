package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// VWAP serves the raw VWAP context for an underlying. Unlike the engines,
// which degrade to neutral on missing data, this endpoint surfaces upstream
// failures directly so the dashboard can show why the context panel is empty.
func (a *API) VWAP(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if symbol == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "symbol required"})
		return
	}

	ctx, cancel := contextTimeout(r.Context(), a.cfg.RequestTimeout)
	defer cancel()

	vwapCtx, spot, err := a.aggs.VWAPContext(ctx, symbol)
	if err != nil {
		writeUpstreamError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":  symbol,
		"tsISO":   nowISO(),
		"spot":    spot,
		"context": vwapCtx,
	})
}
