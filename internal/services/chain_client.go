package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"gammaflow-intel/backend-go/internal/config"
	"gammaflow-intel/backend-go/internal/models"
)

var errRateLimited = errors.New("rate_limited")

var backoffSteps = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
}

const maxChainPages = 4

// ChainSnapshot is the shared per-request view of an underlying's 0DTE chain.
// Regime, walls and flow must all read the same snapshot.
type ChainSnapshot struct {
	Symbol    string                       `json:"symbol"`
	Ts        string                       `json:"ts"`
	Spot      float64                      `json:"spot"`
	Contracts []models.OptionQuoteSnapshot `json:"contracts"`
}

// ChainClient fetches option-chain snapshots from the market-data provider.
// Responses are cached briefly so regime/wall/flow/scan requests landing in
// the same window share one upstream call; a last-good copy backs degraded
// mode when the provider is down.
type ChainClient struct {
	hc      *http.Client
	cache   Cache
	ttl     time.Duration
	baseURL string
	apiKey  string
	breaker *gobreaker.CircuitBreaker
}

func NewChainClient(cfg config.Config, cache Cache) *ChainClient {
	settings := gobreaker.Settings{
		Name:    "market-chain",
		Timeout: cfg.CircuitCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.CircuitFailLimit)
		},
	}
	return &ChainClient{
		hc:      &http.Client{Timeout: cfg.RequestTimeout},
		cache:   cache,
		ttl:     cfg.CacheTTLChain,
		baseURL: cfg.MarketBaseURL,
		apiKey:  cfg.MarketAPIKey,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Snapshot returns today's chain for the underlying. The health struct
// reports latency, cache hits and degraded mode the same way for every
// caller, so the UI can badge stale data.
func (c *ChainClient) Snapshot(ctx context.Context, symbol string) (ChainSnapshot, models.ProviderHealth) {
	start := time.Now()
	symbol = strings.ToUpper(symbol)
	key := fmt.Sprintf("chain:%s", symbol)
	lastGoodKey := fmt.Sprintf("chain:lastgood:%s", symbol)

	if c.cache != nil {
		if b, ok := c.cache.Get(ctx, key); ok {
			var cached ChainSnapshot
			if err := UnmarshalCache(b, &cached); err == nil {
				return cached, models.ProviderHealth{
					LatencyMs: int64(time.Since(start) / time.Millisecond),
					CacheHit:  true,
				}
			}
		}
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, symbol)
	})
	health := models.ProviderHealth{
		LatencyMs: int64(time.Since(start) / time.Millisecond),
	}

	if err != nil {
		health.Error = err.Error()
		if c.cache != nil {
			if b, ok := c.cache.Get(ctx, lastGoodKey); ok {
				var cached ChainSnapshot
				if err := UnmarshalCache(b, &cached); err == nil {
					age := int64(0)
					if ts, parseErr := time.Parse(time.RFC3339, cached.Ts); parseErr == nil {
						age = int64(time.Since(ts).Seconds())
					}
					health.DegradedMode = true
					health.LastGoodAgeS = age
					return cached, health
				}
			}
		}
		return ChainSnapshot{Symbol: symbol}, health
	}

	snap := res.(ChainSnapshot)
	if c.cache != nil && snap.Ts != "" {
		if b, err := MarshalCache(snap); err == nil {
			_ = c.cache.Set(ctx, key, b, c.ttl)
			_ = c.cache.Set(ctx, lastGoodKey, b, 1*time.Hour)
		}
	}
	return snap, health
}

type chainPage struct {
	Results []struct {
		Details struct {
			Ticker         string  `json:"ticker"`
			StrikePrice    float64 `json:"strike_price"`
			ContractType   string  `json:"contract_type"`
			ExpirationDate string  `json:"expiration_date"`
		} `json:"details"`
		LastQuote struct {
			Bid float64 `json:"bid"`
			Ask float64 `json:"ask"`
		} `json:"last_quote"`
		LastTrade struct {
			Price float64 `json:"price"`
			Size  int64   `json:"size"`
		} `json:"last_trade"`
		Day struct {
			Volume int64 `json:"volume"`
		} `json:"day"`
		OpenInterest      int64 `json:"open_interest"`
		Greeks            *struct {
			Delta *float64 `json:"delta"`
			Gamma *float64 `json:"gamma"`
			Theta *float64 `json:"theta"`
			Vega  *float64 `json:"vega"`
		} `json:"greeks"`
		ImpliedVolatility *float64 `json:"implied_volatility"`
		UnderlyingAsset   struct {
			Price float64 `json:"price"`
		} `json:"underlying_asset"`
	} `json:"results"`
	NextURL string `json:"next_url"`
}

func (c *ChainClient) fetch(ctx context.Context, symbol string) (ChainSnapshot, error) {
	today := time.Now().UTC().Format("2006-01-02")
	url := fmt.Sprintf("%s/v3/snapshot/options/%s?expiration_date=%s&limit=250", c.baseURL, symbol, today)

	snap := ChainSnapshot{Symbol: symbol}
	for page := 0; page < maxChainPages && url != ""; page++ {
		var body chainPage
		if err := c.fetchWithBackoff(ctx, c.withKey(url), &body); err != nil {
			return ChainSnapshot{}, err
		}
		for _, r := range body.Results {
			optType := models.OptionCall
			if r.Details.ContractType == "put" {
				optType = models.OptionPut
			}
			q := models.OptionQuoteSnapshot{
				ContractSymbol:    r.Details.Ticker,
				UnderlyingSymbol:  symbol,
				Strike:            r.Details.StrikePrice,
				OptionType:        optType,
				ExpirationDate:    r.Details.ExpirationDate,
				Bid:               r.LastQuote.Bid,
				Ask:               r.LastQuote.Ask,
				LastTradePrice:    r.LastTrade.Price,
				LastTradeSize:     r.LastTrade.Size,
				DayVolume:         r.Day.Volume,
				OpenInterest:      r.OpenInterest,
				ImpliedVolatility: r.ImpliedVolatility,
				UnderlyingPrice:   r.UnderlyingAsset.Price,
			}
			if r.Greeks != nil {
				q.Delta = r.Greeks.Delta
				q.Gamma = r.Greeks.Gamma
				q.Theta = r.Greeks.Theta
				q.Vega = r.Greeks.Vega
			}
			if q.UnderlyingPrice > 0 {
				snap.Spot = q.UnderlyingPrice
			}
			snap.Contracts = append(snap.Contracts, q)
		}
		url = body.NextURL
	}

	snap.Ts = time.Now().UTC().Format(time.RFC3339)
	return snap, nil
}

func (c *ChainClient) withKey(url string) string {
	if c.apiKey == "" {
		return url
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "apiKey=" + c.apiKey
}

func (c *ChainClient) fetchWithBackoff(ctx context.Context, url string, out any) error {
	var lastErr error
	for i, wait := range backoffSteps {
		status, err := c.doJSON(ctx, url, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if status == http.StatusTooManyRequests && i == len(backoffSteps)-1 {
			return errRateLimited
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	if lastErr != nil {
		return lastErr
	}
	return errors.New("request_failed")
}

func (c *ChainClient) doJSON(ctx context.Context, url string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return res.StatusCode, &UpstreamError{Status: res.StatusCode}
	}
	if out == nil {
		return res.StatusCode, nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return res.StatusCode, err
	}
	return res.StatusCode, nil
}
