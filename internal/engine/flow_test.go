package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gammaflow-intel/backend-go/internal/models"
)

var flowNow = time.Date(2026, 3, 5, 15, 0, 0, 0, time.UTC)

func TestSelectActiveContracts(t *testing.T) {
	chain := []models.OptionQuoteSnapshot{
		{ContractSymbol: "A", Strike: 100, DayVolume: 0},
		{ContractSymbol: "B", Strike: 100, DayVolume: 500},
		{ContractSymbol: "C", Strike: 200, DayVolume: 400},
		{ContractSymbol: "D", Strike: 50, DayVolume: 10},
	}

	got := SelectActiveContracts(chain, 2)
	require.Len(t, got, 2)
	// C: 400*200=80k beats B: 500*100=50k; zero-volume A never selected.
	assert.Equal(t, "C", got[0].ContractSymbol)
	assert.Equal(t, "B", got[1].ContractSymbol)
}

func TestClassifySide(t *testing.T) {
	bid, ask := 1.0, 1.2
	assert.Equal(t, sideAsk, classifySide(1.20, bid, ask))
	assert.Equal(t, sideAsk, classifySide(1.25, bid, ask))
	assert.Equal(t, sideBid, classifySide(1.00, bid, ask))
	assert.Equal(t, sideBid, classifySide(0.95, bid, ask))
	assert.Equal(t, sideAsk, classifySide(1.15, bid, ask))
	assert.Equal(t, sideBid, classifySide(1.05, bid, ask))
	assert.Equal(t, sideMid, classifySide(1.10, bid, ask))
}

func TestAggregateFlow_BucketsAndImbalance(t *testing.T) {
	call := models.OptionQuoteSnapshot{
		ContractSymbol: "O:SPY260305C00500000", Strike: 500,
		OptionType: models.OptionCall, Bid: 1.0, Ask: 1.2,
	}
	put := models.OptionQuoteSnapshot{
		ContractSymbol: "O:SPY260305P00495000", Strike: 495,
		OptionType: models.OptionPut, Bid: 0.8, Ask: 1.0,
	}

	samples := []ContractPrints{
		{Contract: call, Prints: []models.TradePrint{
			{Price: 1.2, Size: 100, TimestampMillis: 1000}, // ask: 12,000
			{Price: 1.0, Size: 50, TimestampMillis: 2000},  // bid: 5,000
		}},
		{Contract: put, Prints: []models.TradePrint{
			{Price: 1.0, Size: 40, TimestampMillis: 1500}, // ask: 4,000
		}},
	}

	agg := AggregateFlow(samples, nil, 500, flowNow)
	assert.InDelta(t, 12_000, agg.CallAskNotional, 1e-9)
	assert.InDelta(t, 5_000, agg.CallBidNotional, 1e-9)
	assert.InDelta(t, 4_000, agg.PutAskNotional, 1e-9)
	assert.Zero(t, agg.PutBidNotional)
	assert.InDelta(t, (12_000.0-4_000)/(12_000+4_000), agg.OverallImbalance, 1e-9)
	assert.Equal(t, 2, agg.ContractsSampled)
}

func TestAggregateFlow_ATMBandIsAskSideOnly(t *testing.T) {
	// Spot 500: the 0.3% band is ±1.5.
	atmCall := models.OptionQuoteSnapshot{
		ContractSymbol: "C1", Strike: 501, OptionType: models.OptionCall, Bid: 1.0, Ask: 1.2,
	}
	farCall := models.OptionQuoteSnapshot{
		ContractSymbol: "C2", Strike: 510, OptionType: models.OptionCall, Bid: 1.0, Ask: 1.2,
	}

	samples := []ContractPrints{
		{Contract: atmCall, Prints: []models.TradePrint{
			{Price: 1.2, Size: 100, TimestampMillis: 1000}, // ATM ask
			{Price: 1.0, Size: 100, TimestampMillis: 2000}, // bid side: not tracked for ATM
		}},
		{Contract: farCall, Prints: []models.TradePrint{
			{Price: 1.2, Size: 100, TimestampMillis: 1000},
		}},
	}

	agg := AggregateFlow(samples, nil, 500, flowNow)
	assert.InDelta(t, 12_000, agg.ATMCallAskNotional, 1e-9)
	assert.Zero(t, agg.ATMPutAskNotional)
	assert.InDelta(t, 1.0, agg.ATMImbalance, 1e-9)
}

func TestAggregateFlow_ZeroDenominatorImbalance(t *testing.T) {
	agg := AggregateFlow(nil, nil, 500, flowNow)
	assert.Zero(t, agg.OverallImbalance)
	assert.Zero(t, agg.ATMImbalance)
	assert.Empty(t, agg.Bursts)
}

func TestDetectBurst(t *testing.T) {
	c := models.OptionQuoteSnapshot{
		ContractSymbol: "O:SPY260305C00500000", Strike: 500,
		OptionType: models.OptionCall, Bid: 19, Ask: 20,
	}

	// Three 200k prints inside 60s: burst of 600k.
	prints := []models.TradePrint{
		{Price: 20, Size: 100, TimestampMillis: 10_000},
		{Price: 20, Size: 100, TimestampMillis: 40_000},
		{Price: 20, Size: 100, TimestampMillis: 65_000},
	}
	b, ok := detectBurst(c, prints)
	require.True(t, ok)
	assert.InDelta(t, 600_000, b.Notional, 1e-9)
	assert.Equal(t, int64(65_000), b.TimestampMillis)
	assert.Equal(t, models.OptionCall, b.OptionType)

	// Same prints spread over 5 minutes: no 60s window holds three.
	spread := []models.TradePrint{
		{Price: 20, Size: 100, TimestampMillis: 10_000},
		{Price: 20, Size: 100, TimestampMillis: 130_000},
		{Price: 20, Size: 100, TimestampMillis: 290_000},
	}
	_, ok = detectBurst(c, spread)
	assert.False(t, ok)

	// Three prints in-window but under the notional floor.
	small := []models.TradePrint{
		{Price: 1, Size: 10, TimestampMillis: 10_000},
		{Price: 1, Size: 10, TimestampMillis: 20_000},
		{Price: 1, Size: 10, TimestampMillis: 30_000},
	}
	_, ok = detectBurst(c, small)
	assert.False(t, ok)
}

func TestAggregateFlow_TopThreeBursts(t *testing.T) {
	mk := func(sym string, strike float64, typ models.OptionType, notionalPerPrint float64) ContractPrints {
		price := 20.0
		size := int64(notionalPerPrint / (price * 100))
		return ContractPrints{
			Contract: models.OptionQuoteSnapshot{ContractSymbol: sym, Strike: strike, OptionType: typ, Bid: 19, Ask: 20},
			Prints: []models.TradePrint{
				{Price: price, Size: size, TimestampMillis: 1000},
				{Price: price, Size: size, TimestampMillis: 2000},
				{Price: price, Size: size, TimestampMillis: 3000},
			},
		}
	}

	samples := []ContractPrints{
		mk("A", 500, models.OptionCall, 200_000),
		mk("B", 505, models.OptionCall, 300_000),
		mk("C", 495, models.OptionPut, 250_000),
		mk("D", 490, models.OptionPut, 400_000),
	}

	agg := AggregateFlow(samples, nil, 500, flowNow)
	require.Len(t, agg.Bursts, 3)
	assert.Equal(t, "D", agg.Bursts[0].ContractSymbol)
	assert.Equal(t, "B", agg.Bursts[1].ContractSymbol)
	assert.Equal(t, "C", agg.Bursts[2].ContractSymbol)
}

func TestAggregateFlow_RelativeVolumeProxy(t *testing.T) {
	chain := []models.OptionQuoteSnapshot{
		{DayVolume: 4000, OpenInterest: 10000},
		{DayVolume: 6000, OpenInterest: 10000},
	}
	agg := AggregateFlow(nil, chain, 500, flowNow)
	// 10000 / (20000/100) = 50.
	assert.InDelta(t, 50, agg.RelativeVolume, 1e-9)
}
