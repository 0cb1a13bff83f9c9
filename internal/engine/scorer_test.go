package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gammaflow-intel/backend-go/internal/models"
)

var scoreNow = time.Date(2026, 3, 5, 18, 30, 0, 0, time.UTC)

func TestScoreCandidate_Deterministic(t *testing.T) {
	trade := TradeInput{Price: 2.00, Size: 500}
	quote := QuoteInput{Bid: 1.98, Ask: 2.00}
	details := ContractDetails{
		Ticker:       "O:SPY260320C00500000",
		Strike:       500,
		Expiration:   "2026-03-15",
		OpenInterest: 1000,
		Volume:       4000,
	}

	a := ScoreCandidate(scoreNow, trade, quote, details, 498)
	b := ScoreCandidate(scoreNow, trade, quote, details, 498)
	require.NotNil(t, a)
	assert.Equal(t, a, b)
}

func TestScoreCandidate_StrongBuyScoresHigh(t *testing.T) {
	// $100k premium at the ask, 4x vol/OI, near-term: every boost fires.
	cand := ScoreCandidate(scoreNow,
		TradeInput{Price: 2.00, Size: 500},
		QuoteInput{Bid: 1.98, Ask: 2.00},
		ContractDetails{
			Ticker:       "O:SPY260320C00500000",
			Strike:       500,
			Expiration:   "2026-03-15",
			OpenInterest: 1000,
			Volume:       4000,
		}, 498)
	require.NotNil(t, cand)

	assert.Equal(t, 100, cand.Score)
	assert.Equal(t, models.IntentBullishBuy, cand.Intent)
	assert.Equal(t, "SPY", cand.Underlying)
	assert.Equal(t, models.OptionCall, cand.OptionType)
	assert.Equal(t, 10, cand.DTE)
	assert.InDelta(t, 100_000, cand.Premium, 1e-9)
	assert.Contains(t, cand.Flags, models.FlagNearTerm)
	assert.NotContains(t, cand.Flags, models.FlagZeroDTE)
}

func TestScoreCandidate_SoftGatesPenalizeWithoutRejecting(t *testing.T) {
	// Tiny trade violating all three soft gates stays visible, scored low.
	cand := ScoreCandidate(scoreNow,
		TradeInput{Price: 0.05, Size: 1},
		QuoteInput{Bid: 0.04, Ask: 0.05},
		ContractDetails{
			Ticker:     "O:SPY260404P00400000",
			Strike:     400,
			Expiration: "2026-04-04",
		}, 498)
	require.NotNil(t, cand)

	// 50 - 3*10 penalties + at-ask boost.
	assert.Equal(t, 30, cand.Score)
	assert.Equal(t, models.IntentBearishBuy, cand.Intent)
	assert.Contains(t, cand.Flags, models.FlagWideSpread)
}

func TestScoreCandidate_SpreadRejectionBoundary(t *testing.T) {
	details := ContractDetails{
		Ticker:       "O:TSLA260320C00300000",
		Strike:       300,
		Expiration:   "2026-03-20",
		OpenInterest: 500,
		Volume:       100,
	}

	// spread = (6-3)/4.5 = 0.667 > 0.40: hard reject.
	rejected := ScoreCandidate(scoreNow, TradeInput{Price: 4.5, Size: 100},
		QuoteInput{Bid: 3, Ask: 6}, details, 295)
	assert.Nil(t, rejected)

	// spread = (6-4)/5 = 0.40 exactly: not rejected.
	kept := ScoreCandidate(scoreNow, TradeInput{Price: 5, Size: 100},
		QuoteInput{Bid: 4, Ask: 6}, details, 295)
	assert.NotNil(t, kept)
}

func TestScoreCandidate_InvalidMarketSkipped(t *testing.T) {
	details := ContractDetails{Ticker: "O:SPY260320C00500000", Strike: 500, Expiration: "2026-03-20"}

	// Crossed market is stale data.
	assert.Nil(t, ScoreCandidate(scoreNow, TradeInput{Price: 1, Size: 10},
		QuoteInput{Bid: 2, Ask: 1}, details, 498))
	// No market at all.
	assert.Nil(t, ScoreCandidate(scoreNow, TradeInput{Price: 1, Size: 10},
		QuoteInput{}, details, 498))
}

func TestScoreCandidate_ScoreClamped(t *testing.T) {
	for _, size := range []int64{1, 50, 5000, 100000} {
		cand := ScoreCandidate(scoreNow,
			TradeInput{Price: 10, Size: size},
			QuoteInput{Bid: 9.99, Ask: 10.00},
			ContractDetails{
				Ticker:       "O:NVDA260306C01000000",
				Strike:       1000,
				Expiration:   "2026-03-06",
				OpenInterest: 100,
				Volume:       10000,
			}, 990)
		require.NotNil(t, cand)
		assert.GreaterOrEqual(t, cand.Score, 0)
		assert.LessOrEqual(t, cand.Score, 100)
	}
}

func TestScoreCandidate_SellSideIntents(t *testing.T) {
	// Below-mid call print reads as a bearish call sale.
	cand := ScoreCandidate(scoreNow,
		TradeInput{Price: 1.96, Size: 200},
		QuoteInput{Bid: 1.95, Ask: 2.05},
		ContractDetails{Ticker: "O:AMD260320C00200000", Strike: 200, Expiration: "2026-03-20", OpenInterest: 800, Volume: 400}, 198)
	require.NotNil(t, cand)
	assert.Equal(t, models.IntentBearishSell, cand.Intent)

	// Below-mid put print reads as a bullish put sale.
	cand = ScoreCandidate(scoreNow,
		TradeInput{Price: 1.96, Size: 200},
		QuoteInput{Bid: 1.95, Ask: 2.05},
		ContractDetails{Ticker: "O:AMD260320P00200000", Strike: 200, Expiration: "2026-03-20", OpenInterest: 800, Volume: 400}, 202)
	require.NotNil(t, cand)
	assert.Equal(t, models.IntentBullishSell, cand.Intent)
}

func TestDaysToExpiry_UTCMidnightTruncation(t *testing.T) {
	// dte is 0 for a same-day expiry regardless of the current UTC hour.
	for _, hour := range []int{0, 9, 15, 23} {
		now := time.Date(2026, 3, 5, hour, 59, 0, 0, time.UTC)
		assert.Equal(t, 0, DaysToExpiry(now, "2026-03-05"), "hour %d", hour)
	}
	assert.Equal(t, 1, DaysToExpiry(time.Date(2026, 3, 5, 23, 59, 0, 0, time.UTC), "2026-03-06"))
	assert.Equal(t, -1, DaysToExpiry(scoreNow, "not-a-date"))
}

func TestScoreCandidate_ZeroDTEFlaggedNotBoosted(t *testing.T) {
	base := ContractDetails{Ticker: "O:SPY260305C00500000", Strike: 500, OpenInterest: 1000, Volume: 500}

	trade := TradeInput{Price: 1.00, Size: 300}
	quote := QuoteInput{Bid: 0.99, Ask: 1.01}

	zCand := ScoreCandidate(scoreNow, trade, quote, base.withExpiration("2026-03-05"), 500)
	nCand := ScoreCandidate(scoreNow, trade, quote, base.withExpiration("2026-03-09"), 500)
	require.NotNil(t, zCand)
	require.NotNil(t, nCand)

	assert.Contains(t, zCand.Flags, models.FlagZeroDTE)
	assert.Contains(t, zCand.Flags, models.FlagNearTerm)
	assert.NotContains(t, nCand.Flags, models.FlagZeroDTE)
	// Both collect the near-term boost; 0DTE adds no extra points.
	assert.Equal(t, nCand.Score, zCand.Score)
}

func (d ContractDetails) withExpiration(exp string) ContractDetails {
	d.Expiration = exp
	return d
}

func TestParseOCC(t *testing.T) {
	typ, ok := ParseOCCType("O:SPY251219C00450000")
	require.True(t, ok)
	assert.Equal(t, models.OptionCall, typ)

	typ, ok = ParseOCCType("O:SPY251219P00450000")
	require.True(t, ok)
	assert.Equal(t, models.OptionPut, typ)

	_, ok = ParseOCCType("SPY")
	assert.False(t, ok)

	assert.Equal(t, "SPY", ParseOCCUnderlying("O:SPY251219C00450000"))
	assert.Equal(t, "TSLA", ParseOCCUnderlying("O:TSLA251219P00250000"))
}
