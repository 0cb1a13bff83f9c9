package engine

import (
	"sort"
	"time"

	"gammaflow-intel/backend-go/internal/models"
)

const (
	atmBandFrac         = 0.003
	burstWindowMillis   = 60_000
	burstMinPrints      = 3
	burstMinNotionalUSD = 500_000
	maxBursts           = 3
)

// ContractPrints pairs a selected contract with its recent prints. Fetching
// lives in the service layer; the aggregation here is pure.
type ContractPrints struct {
	Contract models.OptionQuoteSnapshot
	Prints   []models.TradePrint
}

// SelectActiveContracts filters the chain to nonzero-volume contracts, ranks
// them by a volume-times-strike notional proxy and returns the top max. The
// bound keeps the downstream per-contract trade fetches cheap.
func SelectActiveContracts(chain []models.OptionQuoteSnapshot, max int) []models.OptionQuoteSnapshot {
	active := make([]models.OptionQuoteSnapshot, 0, len(chain))
	for _, c := range chain {
		if c.DayVolume > 0 {
			active = append(active, c)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return float64(active[i].DayVolume)*active[i].Strike > float64(active[j].DayVolume)*active[j].Strike
	})
	if max > 0 && len(active) > max {
		active = active[:max]
	}
	return active
}

type printSide int

const (
	sideMid printSide = iota
	sideBid
	sideAsk
)

// classifySide approximates the aggressor side without NBBO history: at or
// through the quote wins outright, otherwise the midpoint decides.
func classifySide(price, bid, ask float64) printSide {
	if ask > 0 && price >= ask {
		return sideAsk
	}
	if bid > 0 && price <= bid {
		return sideBid
	}
	mid := (bid + ask) / 2
	switch {
	case price > mid:
		return sideAsk
	case price < mid:
		return sideBid
	}
	return sideMid
}

// AggregateFlow accumulates notional buy/sell pressure from the sampled
// prints, detects notional bursts and normalizes the call/put imbalance.
// The full chain is passed alongside the samples for the relative-volume
// proxy, which is a whole-chain statistic.
func AggregateFlow(samples []ContractPrints, chain []models.OptionQuoteSnapshot, spotPrice float64, now time.Time) models.FlowAggregates {
	agg := models.FlowAggregates{ContractsSampled: len(samples)}

	bursts := make([]models.FlowBurst, 0, len(samples))
	for _, s := range samples {
		c := s.Contract
		atm := spotPrice > 0 && abs(c.Strike-spotPrice) <= atmBandFrac*spotPrice
		for _, p := range s.Prints {
			notional := p.Price * 100 * float64(p.Size)
			side := classifySide(p.Price, c.Bid, c.Ask)
			switch {
			case c.OptionType == models.OptionCall && side == sideAsk:
				agg.CallAskNotional += notional
				if atm {
					agg.ATMCallAskNotional += notional
				}
			case c.OptionType == models.OptionCall && side == sideBid:
				agg.CallBidNotional += notional
			case c.OptionType == models.OptionPut && side == sideAsk:
				agg.PutAskNotional += notional
				if atm {
					agg.ATMPutAskNotional += notional
				}
			case c.OptionType == models.OptionPut && side == sideBid:
				agg.PutBidNotional += notional
			}
		}
		if b, ok := detectBurst(c, s.Prints); ok {
			bursts = append(bursts, b)
		}
	}

	sort.Slice(bursts, func(i, j int) bool { return bursts[i].Notional > bursts[j].Notional })
	if len(bursts) > maxBursts {
		bursts = bursts[:maxBursts]
	}
	agg.Bursts = bursts

	agg.OverallImbalance = normalizedImbalance(agg.CallAskNotional, agg.PutAskNotional)
	agg.ATMImbalance = normalizedImbalance(agg.ATMCallAskNotional, agg.ATMPutAskNotional)

	var totalVolume, totalOI int64
	for _, c := range chain {
		totalVolume += c.DayVolume
		totalOI += c.OpenInterest
	}
	if totalOI > 0 {
		agg.RelativeVolume = float64(totalVolume) / (float64(totalOI) / 100)
	}
	return agg
}

// detectBurst scans the contract's print stream for a trailing-60s window
// holding at least three prints with combined notional over the burst floor,
// and reports the heaviest such window.
func detectBurst(c models.OptionQuoteSnapshot, prints []models.TradePrint) (models.FlowBurst, bool) {
	if len(prints) < burstMinPrints {
		return models.FlowBurst{}, false
	}
	sorted := make([]models.TradePrint, len(prints))
	copy(sorted, prints)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TimestampMillis < sorted[j].TimestampMillis })

	var best models.FlowBurst
	found := false
	start := 0
	windowNotional := 0.0
	for end := 0; end < len(sorted); end++ {
		windowNotional += sorted[end].Price * 100 * float64(sorted[end].Size)
		for sorted[end].TimestampMillis-sorted[start].TimestampMillis > burstWindowMillis {
			windowNotional -= sorted[start].Price * 100 * float64(sorted[start].Size)
			start++
		}
		count := end - start + 1
		if count >= burstMinPrints && windowNotional >= burstMinNotionalUSD && windowNotional > best.Notional {
			best = models.FlowBurst{
				ContractSymbol:  c.ContractSymbol,
				Strike:          c.Strike,
				OptionType:      c.OptionType,
				Notional:        windowNotional,
				TimestampMillis: sorted[end].TimestampMillis,
			}
			found = true
		}
	}
	return best, found
}

func normalizedImbalance(callNotional, putNotional float64) float64 {
	denom := callNotional + putNotional
	if denom == 0 {
		return 0
	}
	return (callNotional - putNotional) / denom
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
