package handlers

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Bias serves the per-underlying verdict. Responses carry an ETag over the
// payload so polling clients can cheaply skip unchanged verdicts.
func (a *API) Bias(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if symbol == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "symbol required"})
		return
	}

	ctx, cancel := contextTimeout(r.Context(), a.cfg.RequestTimeout)
	defer cancel()

	resp := a.bias.Evaluate(ctx, symbol)

	payload, _ := json.Marshal(resp)
	sum := sha1.Sum(payload)
	etag := hex.EncodeToString(sum[:])
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) Gamma(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if symbol == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "symbol required"})
		return
	}

	ctx, cancel := contextTimeout(r.Context(), a.cfg.RequestTimeout)
	defer cancel()
	writeJSON(w, http.StatusOK, a.bias.Gamma(ctx, symbol))
}

func (a *API) Flow(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if symbol == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "symbol required"})
		return
	}

	ctx, cancel := contextTimeout(r.Context(), a.cfg.RequestTimeout)
	defer cancel()
	writeJSON(w, http.StatusOK, a.bias.Flow(ctx, symbol))
}

func contextTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
