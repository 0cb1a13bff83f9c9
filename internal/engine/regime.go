package engine

import (
	"sync"
	"time"

	"gammaflow-intel/backend-go/internal/models"
)

// Regime thresholds in USD gamma exposure. The asymmetry is intentional:
// short-gamma destabilization is a lower-magnitude, higher-urgency event than
// long-gamma pinning.
const (
	longGammaThresholdUSD  = 300_000_000
	shortGammaThresholdUSD = -100_000_000
	flipExtremeUSD         = 100_000_000
)

type gammaSample struct {
	netGammaUSD float64
	at          time.Time
}

// GammaHistory is a per-symbol rolling window of net gamma samples. It is an
// injected store rather than package state so multi-ticker serving and tests
// don't share hidden globals.
type GammaHistory struct {
	mu      sync.Mutex
	window  time.Duration
	samples map[string][]gammaSample
}

func NewGammaHistory(window time.Duration) *GammaHistory {
	return &GammaHistory{window: window, samples: make(map[string][]gammaSample)}
}

// record appends the sample, evicts entries older than the window and returns
// the surviving series (current sample included, oldest first).
func (h *GammaHistory) record(symbol string, netGammaUSD float64, now time.Time) []gammaSample {
	h.mu.Lock()
	defer h.mu.Unlock()
	cutoff := now.Add(-h.window)
	kept := make([]gammaSample, 0, len(h.samples[symbol])+1)
	for _, s := range h.samples[symbol] {
		if s.at.After(cutoff) {
			kept = append(kept, s)
		}
	}
	kept = append(kept, gammaSample{netGammaUSD: netGammaUSD, at: now})
	h.samples[symbol] = kept
	return kept
}

// ComputeRegime sums signed gamma and delta exposure across the chain,
// records the gamma sample into the rolling window and classifies the regime.
//
// A gamma flip is reported when the window contains samples at or beyond both
// the +$100M and -$100M extremes and the current sample itself sits at or
// beyond one of them: net exposure crossed the threshold band inside the
// window, which is a material regime change rather than noise.
func ComputeRegime(history *GammaHistory, symbol string, contracts []models.OptionQuoteSnapshot, spotPrice float64, now time.Time) models.GammaRegime {
	var netGamma, netDelta float64
	for _, c := range contracts {
		if c.Gamma != nil {
			exp := *c.Gamma * float64(c.OpenInterest) * 100 * spotPrice
			if c.OptionType == models.OptionPut {
				exp = -exp
			}
			netGamma += exp
		}
		if c.Delta != nil {
			netDelta += *c.Delta * float64(c.OpenInterest) * 100
		}
	}

	flip := false
	if history != nil {
		samples := history.record(symbol, netGamma, now)
		var hasPos, hasNeg bool
		for _, s := range samples {
			if s.netGammaUSD >= flipExtremeUSD {
				hasPos = true
			}
			if s.netGammaUSD <= -flipExtremeUSD {
				hasNeg = true
			}
		}
		current := netGamma >= flipExtremeUSD || netGamma <= -flipExtremeUSD
		flip = hasPos && hasNeg && current
	}

	regime := models.RegimeNeutral
	if netGamma > longGammaThresholdUSD {
		regime = models.RegimeLongGamma
	} else if netGamma < shortGammaThresholdUSD {
		regime = models.RegimeShortGamma
	}

	return models.GammaRegime{
		Regime:      regime,
		NetGammaUSD: netGamma,
		NetDelta:    netDelta,
		GammaFlip:   flip,
	}
}
