package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port             string
	MarketBaseURL    string
	MarketAPIKey     string
	RedisURL         string
	CacheTTLChain    time.Duration
	CacheTTLTrades   time.Duration
	CacheTTLAggs     time.Duration
	GammaWindow      time.Duration
	HysteresisTTL    time.Duration
	RequestTimeout   time.Duration
	ScanTimeout      time.Duration
	RateLimitPerMin  int
	CircuitFailLimit int
	CircuitCooldown  time.Duration
	MaxFlowContracts int
	ScanUniverse     []string
	MaxUniverse      int
}

func Load() Config {
	return Config{
		Port:             getEnv("PORT", "8080"),
		MarketBaseURL:    getEnv("MARKET_BASE_URL", "https://api.polygon.io"),
		MarketAPIKey:     getEnv("MARKET_API_KEY", ""),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379"),
		CacheTTLChain:    getEnvDuration("CACHE_TTL_CHAIN", 5*time.Second),
		CacheTTLTrades:   getEnvDuration("CACHE_TTL_TRADES", 15*time.Second),
		CacheTTLAggs:     getEnvDuration("CACHE_TTL_AGGS", 30*time.Second),
		GammaWindow:      getEnvDuration("GAMMA_WINDOW", 15*time.Minute),
		HysteresisTTL:    getEnvDuration("HYSTERESIS_TTL", 60*time.Second),
		RequestTimeout:   getEnvDuration("MARKET_REQUEST_TIMEOUT", 12*time.Second),
		ScanTimeout:      getEnvDuration("SCAN_TIMEOUT", 45*time.Second),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MIN", 120),
		CircuitFailLimit: getEnvInt("CIRCUIT_FAIL_LIMIT", 3),
		CircuitCooldown:  getEnvDuration("CIRCUIT_COOLDOWN", 20*time.Second),
		MaxFlowContracts: getEnvInt("MAX_FLOW_CONTRACTS", 10),
		ScanUniverse:     getEnvList("SCAN_UNIVERSE", "SPY,QQQ,TSLA,NVDA,AAPL,AMD,META,AMZN"),
		MaxUniverse:      getEnvInt("MAX_UNIVERSE", 30),
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(i) * time.Second
}

func getEnvList(key, def string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
