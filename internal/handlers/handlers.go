package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gammaflow-intel/backend-go/internal/config"
	"gammaflow-intel/backend-go/internal/models"
	"gammaflow-intel/backend-go/internal/services"
)

// API wires the analytics services to the HTTP surface.
type API struct {
	cfg   config.Config
	cache services.Cache
	chain *services.ChainClient
	aggs  *services.AggsClient
	bias  *services.BiasService
	scan  *services.ScanService
}

func New(cfg config.Config, cache services.Cache, chain *services.ChainClient, aggs *services.AggsClient, bias *services.BiasService, scan *services.ScanService) *API {
	return &API{
		cfg:   cfg,
		cache: cache,
		chain: chain,
		aggs:  aggs,
		bias:  bias,
		scan:  scan,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func parseSymbols(raw string, max int) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
		if len(out) >= max {
			break
		}
	}
	return out
}

func parseIntParam(v string, def int, min int, max int) int {
	if v == "" {
		return def
	}
	var out int
	_, err := fmt.Sscanf(v, "%d", &out)
	if err != nil {
		return def
	}
	if out < min {
		return min
	}
	if out > max {
		return max
	}
	return out
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseOptionType(raw string) models.OptionType {
	switch strings.ToLower(raw) {
	case "call":
		return models.OptionCall
	case "put":
		return models.OptionPut
	}
	return ""
}
