package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gammaflow-intel/backend-go/internal/config"
	"gammaflow-intel/backend-go/internal/models"
	"gammaflow-intel/backend-go/internal/ttl"
)

const tradeLookback = 5 * time.Minute

// TradesClient fetches recent trade prints for a single contract. Prints are
// cached per contract for a short TTL so rapid successive bias requests don't
// re-fetch the same streams.
type TradesClient struct {
	hc      *http.Client
	cache   *ttl.Map[[]models.TradePrint]
	baseURL string
	apiKey  string
}

func NewTradesClient(cfg config.Config) *TradesClient {
	return &TradesClient{
		hc:      &http.Client{Timeout: cfg.RequestTimeout},
		cache:   ttl.NewMap[[]models.TradePrint](cfg.CacheTTLTrades),
		baseURL: cfg.MarketBaseURL,
		apiKey:  cfg.MarketAPIKey,
	}
}

type tradesPage struct {
	Results []struct {
		Price        float64 `json:"price"`
		Size         int64   `json:"size"`
		SipTimestamp int64   `json:"sip_timestamp"`
	} `json:"results"`
}

// RecentPrints returns the contract's prints from the trailing lookback
// window, newest last.
func (c *TradesClient) RecentPrints(ctx context.Context, contractSymbol string) ([]models.TradePrint, error) {
	if cached, ok := c.cache.Get(contractSymbol); ok {
		return cached, nil
	}

	since := time.Now().Add(-tradeLookback).UnixNano()
	url := fmt.Sprintf("%s/v3/trades/%s?timestamp.gte=%d&limit=1000&order=asc", c.baseURL, contractSymbol, since)
	if c.apiKey != "" {
		url += "&apiKey=" + c.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return nil, &UpstreamError{Status: res.StatusCode}
	}

	var body tradesPage
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, err
	}

	prints := make([]models.TradePrint, 0, len(body.Results))
	for _, r := range body.Results {
		prints = append(prints, models.TradePrint{
			Price:           r.Price,
			Size:            r.Size,
			TimestampMillis: r.SipTimestamp / int64(time.Millisecond),
		})
	}
	c.cache.Set(contractSymbol, prints)
	return prints, nil
}
