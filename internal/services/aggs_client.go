package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gammaflow-intel/backend-go/internal/config"
	"gammaflow-intel/backend-go/internal/models"
)

// How far from VWAP still counts as "At", in percent.
const vwapAtBandPct = 0.02

// AggsClient fetches minute bars for an underlying and reduces them to the
// VWAP context the bias engine consumes.
type AggsClient struct {
	hc      *http.Client
	cache   Cache
	ttl     time.Duration
	baseURL string
	apiKey  string
}

func NewAggsClient(cfg config.Config, cache Cache) *AggsClient {
	return &AggsClient{
		hc:      &http.Client{Timeout: cfg.RequestTimeout},
		cache:   cache,
		ttl:     cfg.CacheTTLAggs,
		baseURL: cfg.MarketBaseURL,
		apiKey:  cfg.MarketAPIKey,
	}
}

// MinuteBar is one provider aggregate bar.
type MinuteBar struct {
	Volume float64 `json:"v"`
	VWAP   float64 `json:"vw"`
	Close  float64 `json:"c"`
	Ts     int64   `json:"t"`
}

type aggsPage struct {
	Results []MinuteBar `json:"results"`
}

type vwapCacheEntry struct {
	Context models.VWAPContext `json:"context"`
	Spot    float64            `json:"spot"`
}

// VWAPContext computes the session VWAP from today's minute bars and places
// the last close relative to it. Returns the context plus the session spot.
func (c *AggsClient) VWAPContext(ctx context.Context, symbol string) (models.VWAPContext, float64, error) {
	symbol = strings.ToUpper(symbol)
	key := fmt.Sprintf("vwap:%s", symbol)
	if c.cache != nil {
		if b, ok := c.cache.Get(ctx, key); ok {
			var cached vwapCacheEntry
			if err := UnmarshalCache(b, &cached); err == nil {
				return cached.Context, cached.Spot, nil
			}
		}
	}

	today := time.Now().UTC().Format("2006-01-02")
	url := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/minute/%s/%s?adjusted=true&sort=asc&limit=1000", c.baseURL, symbol, today, today)
	if c.apiKey != "" {
		url += "&apiKey=" + c.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.VWAPContext{}, 0, err
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return models.VWAPContext{}, 0, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return models.VWAPContext{}, 0, &UpstreamError{Status: res.StatusCode}
	}
	var body aggsPage
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return models.VWAPContext{}, 0, err
	}

	vwapCtx, spot := ReduceBars(body.Results)
	if c.cache != nil {
		if b, err := MarshalCache(vwapCacheEntry{Context: vwapCtx, Spot: spot}); err == nil {
			_ = c.cache.Set(ctx, key, b, c.ttl)
		}
	}
	return vwapCtx, spot, nil
}

// ReduceBars folds minute bars into a session VWAP and a spot-vs-VWAP read.
func ReduceBars(bars []MinuteBar) (models.VWAPContext, float64) {
	var volSum, pvSum, spot float64
	for _, b := range bars {
		volSum += b.Volume
		pvSum += b.VWAP * b.Volume
		if b.Close > 0 {
			spot = b.Close
		}
	}
	if volSum == 0 || spot == 0 {
		return models.VWAPContext{PriceVsVWAP: models.PriceAtVWAP}, spot
	}
	vwap := pvSum / volSum
	dist := (spot - vwap) / vwap * 100

	side := models.PriceAtVWAP
	if dist > vwapAtBandPct {
		side = models.PriceAboveVWAP
	} else if dist < -vwapAtBandPct {
		side = models.PriceBelowVWAP
	}
	return models.VWAPContext{VWAP: vwap, PriceVsVWAP: side, VWAPDistancePct: dist}, spot
}
