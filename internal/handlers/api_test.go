package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gammaflow-intel/backend-go/internal/config"
	"gammaflow-intel/backend-go/internal/models"
	"gammaflow-intel/backend-go/internal/services"
)

// fakeProvider serves canned provider responses for the three upstream shapes.
func fakeProvider(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/v3/snapshot/options/"):
			fmt.Fprint(w, `{"results":[
				{"details":{"ticker":"O:SPY990115C00500000","strike_price":500,"contract_type":"call","expiration_date":"2099-01-15"},
				 "last_quote":{"bid":1.98,"ask":2.00},
				 "last_trade":{"price":2.00,"size":500},
				 "day":{"volume":4000},
				 "open_interest":1000,
				 "greeks":{"delta":0.5,"gamma":0.05},
				 "implied_volatility":0.25,
				 "underlying_asset":{"price":498}},
				{"details":{"ticker":"O:SPY990115P00495000","strike_price":495,"contract_type":"put","expiration_date":"2099-01-15"},
				 "last_quote":{"bid":1.50,"ask":1.55},
				 "last_trade":{"price":1.55,"size":200},
				 "day":{"volume":1500},
				 "open_interest":500,
				 "greeks":{"delta":-0.4,"gamma":0.01},
				 "implied_volatility":0.28,
				 "underlying_asset":{"price":498}}
			]}`)
		case strings.HasPrefix(r.URL.Path, "/v3/trades/"):
			ts := time.Now().UnixNano()
			fmt.Fprintf(w, `{"results":[{"price":2.0,"size":100,"sip_timestamp":%d}]}`, ts)
		case strings.HasPrefix(r.URL.Path, "/v2/aggs/"):
			fmt.Fprint(w, `{"results":[{"v":1000,"vw":497,"c":498,"t":0}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestAPI(t *testing.T, baseURL string) http.Handler {
	t.Helper()
	cfg := config.Config{
		Port:             "0",
		MarketBaseURL:    baseURL,
		CacheTTLChain:    5 * time.Second,
		CacheTTLTrades:   15 * time.Second,
		CacheTTLAggs:     30 * time.Second,
		GammaWindow:      15 * time.Minute,
		HysteresisTTL:    60 * time.Second,
		RequestTimeout:   5 * time.Second,
		ScanTimeout:      10 * time.Second,
		CircuitFailLimit: 3,
		CircuitCooldown:  20 * time.Second,
		MaxFlowContracts: 10,
		ScanUniverse:     []string{"SPY"},
		MaxUniverse:      30,
	}
	cache := services.NewMemoryCache()
	chain := services.NewChainClient(cfg, cache)
	trades := services.NewTradesClient(cfg)
	aggs := services.NewAggsClient(cfg, cache)
	bias := services.NewBiasService(cfg, chain, trades, aggs)
	scan := services.NewScanService(cfg, chain)
	api := New(cfg, cache, chain, aggs, bias, scan)

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/health", api.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/bias/{symbol}", api.Bias).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/gamma/{symbol}", api.Gamma).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/flow/{symbol}", api.Flow).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/scan/unusual", api.ScanUnusual).Methods(http.MethodGet)
	return r
}

func TestBiasEndpoint(t *testing.T) {
	srv := fakeProvider(t)
	defer srv.Close()
	h := newTestAPI(t, srv.URL)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bias/spy", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("ETag"))

	var resp models.BiasResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "SPY", resp.Symbol)
	assert.NotEmpty(t, resp.Bias)
	assert.NotZero(t, resp.Spot)
	assert.Positive(t, resp.Regime.NetGammaUSD)
}

func TestBiasEndpointETagRevalidation(t *testing.T) {
	srv := fakeProvider(t)
	defer srv.Close()
	h := newTestAPI(t, srv.URL)

	// Warm the snapshot/vwap caches so subsequent requests are pure cache hits.
	warm := httptest.NewRecorder()
	h.ServeHTTP(warm, httptest.NewRequest(http.MethodGet, "/api/v1/bias/SPY", nil))
	require.Equal(t, http.StatusOK, warm.Code)

	// Payload timestamps have second precision; back-to-back cached requests
	// land in the same second and produce matching tags.
	got304 := false
	for i := 0; i < 5 && !got304; i++ {
		first := httptest.NewRecorder()
		h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/v1/bias/SPY", nil))
		require.Equal(t, http.StatusOK, first.Code)
		etag := first.Header().Get("ETag")
		require.NotEmpty(t, etag)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/bias/SPY", nil)
		req.Header.Set("If-None-Match", etag)
		second := httptest.NewRecorder()
		h.ServeHTTP(second, req)
		got304 = second.Code == http.StatusNotModified
	}
	assert.True(t, got304, "expected a 304 for an unchanged cached verdict")
}

func TestGammaAndFlowEndpoints(t *testing.T) {
	srv := fakeProvider(t)
	defer srv.Close()
	h := newTestAPI(t, srv.URL)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/gamma/SPY", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var gamma models.GammaResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&gamma))
	require.NotNil(t, gamma.Walls.CallWall)
	assert.Equal(t, 500.0, *gamma.Walls.CallWall)
	require.NotNil(t, gamma.Walls.PutWall)
	assert.Equal(t, 495.0, *gamma.Walls.PutWall)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/flow/SPY", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var flow models.FlowResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&flow))
	assert.Equal(t, 2, flow.Flow.ContractsSampled)
	assert.Positive(t, flow.Flow.CallAskNotional)
}

func TestScanEndpoint(t *testing.T) {
	srv := fakeProvider(t)
	defer srv.Close()
	h := newTestAPI(t, srv.URL)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scan/unusual?min_score=10&type=call", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ScanResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Candidates)
	for _, c := range resp.Candidates {
		assert.Equal(t, models.OptionCall, c.OptionType)
		assert.GreaterOrEqual(t, c.Score, 10)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := fakeProvider(t)
	defer srv.Close()
	h := newTestAPI(t, srv.URL)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Ok)
	assert.Contains(t, resp.Deps, "market_data")
}
