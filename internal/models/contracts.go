package models

// OptionType distinguishes calls from puts.
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// OptionQuoteSnapshot is one contract's point-in-time market state as supplied
// by the snapshot provider. Greeks and IV are pointers: the provider omits them
// for illiquid contracts and "absent" must stay distinguishable from zero.
type OptionQuoteSnapshot struct {
	ContractSymbol    string     `json:"contract_symbol"`
	UnderlyingSymbol  string     `json:"underlying_symbol"`
	Strike            float64    `json:"strike"`
	OptionType        OptionType `json:"option_type"`
	ExpirationDate    string     `json:"expiration_date"`
	Bid               float64    `json:"bid"`
	Ask               float64    `json:"ask"`
	LastTradePrice    float64    `json:"last_trade_price"`
	LastTradeSize     int64      `json:"last_trade_size"`
	DayVolume         int64      `json:"day_volume"`
	OpenInterest      int64      `json:"open_interest"`
	Delta             *float64   `json:"delta,omitempty"`
	Gamma             *float64   `json:"gamma,omitempty"`
	Theta             *float64   `json:"theta,omitempty"`
	Vega              *float64   `json:"vega,omitempty"`
	ImpliedVolatility *float64   `json:"implied_volatility,omitempty"`
	UnderlyingPrice   float64    `json:"underlying_price"`
}

// TradePrint is a single executed trade for a contract.
type TradePrint struct {
	Price           float64 `json:"price"`
	Size            int64   `json:"size"`
	TimestampMillis int64   `json:"timestamp_ms"`
}

// Intent classifies the directional read of an unusual trade.
type Intent string

const (
	IntentBullishBuy  Intent = "BULLISH_BUY"
	IntentBearishBuy  Intent = "BEARISH_BUY"
	IntentBullishSell Intent = "BULLISH_SELL"
	IntentBearishSell Intent = "BEARISH_SELL"
	IntentNeutral     Intent = "NEUTRAL"
)

// Candidate flags.
const (
	FlagZeroDTE    = "0DTE"
	FlagNearTerm   = "NEAR_TERM"
	FlagHighVolOI  = "HIGH_VOL_OI"
	FlagWideSpread = "WIDE_SPREAD"
)

// UnusualTradeCandidate is a scored unusual-options-trade record. Created per
// scan pass and never mutated; later scans supersede rather than update it.
type UnusualTradeCandidate struct {
	Underlying     string     `json:"underlying"`
	ContractSymbol string     `json:"contract_symbol"`
	OptionType     OptionType `json:"option_type"`
	Strike         float64    `json:"strike"`
	Expiration     string     `json:"expiration"`
	DTE            int        `json:"dte"`
	Premium        float64    `json:"premium"`
	TradeSize      int64      `json:"trade_size"`
	VolOIRatio     float64    `json:"vol_oi_ratio"`
	SpreadPct      float64    `json:"spread_pct"`
	Intent         Intent     `json:"intent"`
	Flags          []string   `json:"flags"`
	Score          int        `json:"score"`
	CapturedISO    string     `json:"capturedISO"`
}

// GammaRegimeLabel is the classified dealer-gamma regime.
type GammaRegimeLabel string

const (
	RegimeLongGamma  GammaRegimeLabel = "LongGamma"
	RegimeShortGamma GammaRegimeLabel = "ShortGamma"
	RegimeNeutral    GammaRegimeLabel = "Neutral"
)

// GammaRegime is the net 0DTE exposure picture for an underlying.
type GammaRegime struct {
	Regime      GammaRegimeLabel `json:"regime"`
	NetGammaUSD float64          `json:"net_gamma_usd"`
	NetDelta    float64          `json:"net_delta"`
	GammaFlip   bool             `json:"gamma_flip"`
}

// FlowBurst marks a clustered run of prints on one contract.
type FlowBurst struct {
	ContractSymbol  string     `json:"contract_symbol"`
	Strike          float64    `json:"strike"`
	OptionType      OptionType `json:"option_type"`
	Notional        float64    `json:"notional"`
	TimestampMillis int64      `json:"timestamp_ms"`
}

// FlowAggregates is the accumulated notional pressure picture built from
// recent prints on the most active contracts. ATM buckets track ask-side
// notional only: at-the-money buying pressure is the directional signal sought.
type FlowAggregates struct {
	CallAskNotional    float64     `json:"call_ask_notional"`
	CallBidNotional    float64     `json:"call_bid_notional"`
	PutAskNotional     float64     `json:"put_ask_notional"`
	PutBidNotional     float64     `json:"put_bid_notional"`
	ATMCallAskNotional float64     `json:"atm_call_ask_notional"`
	ATMPutAskNotional  float64     `json:"atm_put_ask_notional"`
	OverallImbalance   float64     `json:"overall_imbalance"`
	ATMImbalance       float64     `json:"atm_imbalance"`
	RelativeVolume     float64     `json:"relative_volume"`
	Bursts             []FlowBurst `json:"bursts"`
	ContractsSampled   int         `json:"contracts_sampled"`
}

// PriceVsVWAP is the side of VWAP the underlying trades on.
type PriceVsVWAP string

const (
	PriceAboveVWAP PriceVsVWAP = "Above"
	PriceBelowVWAP PriceVsVWAP = "Below"
	PriceAtVWAP    PriceVsVWAP = "At"
)

// VWAPContext is the intraday VWAP picture computed from minute bars.
type VWAPContext struct {
	VWAP            float64     `json:"vwap"`
	PriceVsVWAP     PriceVsVWAP `json:"price_vs_vwap"`
	VWAPDistancePct float64     `json:"vwap_distance_pct"`
}

// WallSet holds the strikes with maximal positive and negative aggregate
// dealer gamma exposure. MaxPain is carried for API compatibility but is not
// populated by the wall engine.
type WallSet struct {
	CallWall          *float64 `json:"call_wall"`
	PutWall           *float64 `json:"put_wall"`
	MaxPain           *float64 `json:"max_pain"`
	DistToCallWallPct *float64 `json:"dist_to_call_wall_pct"`
	DistToPutWallPct  *float64 `json:"dist_to_put_wall_pct"`
}

// BiasLabel is the final directional verdict.
type BiasLabel string

const (
	BiasBullish BiasLabel = "Bullish"
	BiasBearish BiasLabel = "Bearish"
	BiasNoTrade BiasLabel = "NoTrade"
)

// BiasScore exposes the raw point tallies behind a verdict.
type BiasScore struct {
	Bull int `json:"bull"`
	Bear int `json:"bear"`
	Net  int `json:"net"`
}

// BiasResponse is the single per-underlying verdict object.
type BiasResponse struct {
	Symbol     string         `json:"symbol"`
	TsISO      string         `json:"tsISO"`
	Bias       BiasLabel      `json:"bias"`
	Confidence int            `json:"confidence"`
	Reasons    []string       `json:"reasons"`
	Regime     GammaRegime    `json:"regime"`
	Flow       FlowAggregates `json:"flow"`
	Context    VWAPContext    `json:"context"`
	Score      BiasScore      `json:"score"`
	Walls      WallSet        `json:"walls"`
	Spot       float64        `json:"spot"`
	Health     ProviderHealth `json:"health"`
}

// GammaResponse exposes regime + walls without the flow/bias layers.
type GammaResponse struct {
	Symbol string         `json:"symbol"`
	TsISO  string         `json:"tsISO"`
	Spot   float64        `json:"spot"`
	Regime GammaRegime    `json:"regime"`
	Walls  WallSet        `json:"walls"`
	Health ProviderHealth `json:"health"`
}

// FlowResponse exposes the flow aggregates independently.
type FlowResponse struct {
	Symbol string         `json:"symbol"`
	TsISO  string         `json:"tsISO"`
	Spot   float64        `json:"spot"`
	Flow   FlowAggregates `json:"flow"`
	Health ProviderHealth `json:"health"`
}

// ScanResponse is the ranked unusual-candidate list for the scanner view.
type ScanResponse struct {
	TsISO      string                  `json:"tsISO"`
	Universe   []string                `json:"universe"`
	MinScore   int                     `json:"min_score"`
	Candidates []UnusualTradeCandidate `json:"candidates"`
	Errors     []string                `json:"errors,omitempty"`
}

// ProviderHealth reports how the upstream snapshot fetch behaved.
type ProviderHealth struct {
	LatencyMs    int64  `json:"latency_ms"`
	CacheHit     bool   `json:"cache_hit"`
	Error        string `json:"error,omitempty"`
	DegradedMode bool   `json:"degraded_mode"`
	LastGoodAgeS int64  `json:"last_good_age_s"`
}

// HealthResponse is the service health envelope.
type HealthResponse struct {
	Ok          bool                 `json:"ok"`
	TsISO       string               `json:"tsISO"`
	Service     string               `json:"service"`
	Version     string               `json:"version,omitempty"`
	Deps        []string             `json:"deps"`
	DepsStatus  map[string]DepStatus `json:"deps_status,omitempty"`
	DataMissing []string             `json:"data_missing"`
	Env         map[string]bool      `json:"env"`
}

// DepStatus is one dependency's probe result.
type DepStatus struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
