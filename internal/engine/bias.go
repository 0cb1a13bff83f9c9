package engine

import (
	"fmt"
	"time"

	"gammaflow-intel/backend-go/internal/models"
	"gammaflow-intel/backend-go/internal/ttl"
)

// Bias point weights. ATM flow dominates: immediate at-the-money intent is
// prioritized over aggregate flow.
const (
	pinNetGammaUSD   = 200_000_000
	pinVWAPBandPct   = 0.25
	pinPenalty       = 20
	atmImbalanceMin  = 0.2
	atmWeight        = 25
	overallImbMin    = 0.15
	overallWeight    = 10
	momentumWeight   = 20
	reversionWeight  = 15
	weakSideWeight   = 5
	reversionBandPct = 0.5
	burstWeight      = 15
	wallBandFrac     = 0.003
	wallWeight       = 10

	flipThreshold    = 10
	holdBand         = 10
	promoteThreshold = 15
	promoteMinMax    = 45
	noTradeFloor     = 40
	maxReasons       = 3
)

// BiasState is the hysteresis record kept per underlying between requests.
type BiasState struct {
	Bias     models.BiasLabel
	NetScore int
	At       time.Time
}

// BiasInputs bundles everything the classifier reads. Regime, flow and walls
// must come from the same chain snapshot or they can disagree about which
// contracts are active.
type BiasInputs struct {
	Symbol  string
	Spot    float64
	Context models.VWAPContext
	Regime  models.GammaRegime
	Flow    models.FlowAggregates
	Walls   models.WallSet
}

// ClassifyBias combines regime, walls, flow and VWAP context into a single
// verdict using a weighted point system with temporal hysteresis. The store
// holds the prior verdict per symbol; its TTL is the hysteresis validity
// window. State is written back unconditionally, NoTrade included.
func ClassifyBias(store *ttl.Map[BiasState], in BiasInputs, now time.Time) models.BiasResponse {
	bull, bear := 0, 0
	reasons := make([]string, 0, 8)

	// Pin risk suppresses directional confidence symmetrically, and a pinned
	// tape has no usable VWAP-side read, so the VWAP block is skipped.
	pinned := in.Regime.Regime == models.RegimeLongGamma &&
		in.Regime.NetGammaUSD >= pinNetGammaUSD &&
		abs(in.Context.VWAPDistancePct) <= pinVWAPBandPct
	if pinned {
		reasons = append(reasons, fmt.Sprintf("Pinned near VWAP in long-gamma regime (net $%.0fM)", in.Regime.NetGammaUSD/1e6))
	}

	if in.Flow.ATMImbalance > atmImbalanceMin {
		bull += atmWeight
		reasons = append(reasons, fmt.Sprintf("ATM call buying dominates (imbalance %+.2f)", in.Flow.ATMImbalance))
	} else if in.Flow.ATMImbalance < -atmImbalanceMin {
		bear += atmWeight
		reasons = append(reasons, fmt.Sprintf("ATM put buying dominates (imbalance %+.2f)", in.Flow.ATMImbalance))
	}

	if in.Flow.OverallImbalance > overallImbMin {
		bull += overallWeight
		reasons = append(reasons, fmt.Sprintf("Overall flow confirms calls (%+.2f)", in.Flow.OverallImbalance))
	} else if in.Flow.OverallImbalance < -overallImbMin {
		bear += overallWeight
		reasons = append(reasons, fmt.Sprintf("Overall flow confirms puts (%+.2f)", in.Flow.OverallImbalance))
	}

	if !pinned {
		switch in.Regime.Regime {
		case models.RegimeShortGamma:
			// Short-gamma dealers amplify moves: side of VWAP is momentum.
			switch in.Context.PriceVsVWAP {
			case models.PriceAboveVWAP:
				bull += momentumWeight
				reasons = append(reasons, "Short gamma above VWAP: momentum continuation")
			case models.PriceBelowVWAP:
				bear += momentumWeight
				reasons = append(reasons, "Short gamma below VWAP: momentum continuation lower")
			}
		case models.RegimeLongGamma:
			switch in.Context.PriceVsVWAP {
			case models.PriceAboveVWAP:
				if in.Context.VWAPDistancePct > reversionBandPct {
					bear += reversionWeight
					reasons = append(reasons, "Long gamma, extended above VWAP: reversion risk")
				} else {
					bull += weakSideWeight
					reasons = append(reasons, "Long gamma, holding above VWAP")
				}
			case models.PriceBelowVWAP:
				if in.Context.VWAPDistancePct < -reversionBandPct {
					bull += reversionWeight
					reasons = append(reasons, "Long gamma, oversold below VWAP: reversion bid")
				} else {
					bear += weakSideWeight
					reasons = append(reasons, "Long gamma, slipping below VWAP")
				}
			}
		}
	}

	var callBurst, putBurst bool
	for _, b := range in.Flow.Bursts {
		if b.OptionType == models.OptionCall {
			callBurst = true
		} else {
			putBurst = true
		}
	}
	if callBurst {
		bull += burstWeight
		reasons = append(reasons, "Call-side notional burst detected")
	}
	if putBurst {
		bear += burstWeight
		reasons = append(reasons, "Put-side notional burst detected")
	}

	if in.Walls.CallWall != nil && in.Spot > 0 && in.Spot < *in.Walls.CallWall &&
		(*in.Walls.CallWall-in.Spot)/in.Spot <= wallBandFrac {
		bear += wallWeight
		reasons = append(reasons, fmt.Sprintf("Approaching call wall %.0f: resistance", *in.Walls.CallWall))
	}
	if in.Walls.PutWall != nil && in.Spot > 0 && in.Spot > *in.Walls.PutWall &&
		(in.Spot-*in.Walls.PutWall)/in.Spot <= wallBandFrac {
		bull += wallWeight
		reasons = append(reasons, fmt.Sprintf("Holding above put wall %.0f: support", *in.Walls.PutWall))
	}

	if pinned {
		bull -= pinPenalty
		bear -= pinPenalty
	}
	if bull < 0 {
		bull = 0
	}
	if bear < 0 {
		bear = 0
	}

	netScore := bull - bear
	maxScore := bull
	if bear > maxScore {
		maxScore = bear
	}

	var prior *BiasState
	if store != nil {
		if st, ok := store.Get(in.Symbol); ok {
			prior = &st
		}
	}

	bias, holding := decideBias(prior, netScore, maxScore)
	if holding {
		reasons = append([]string{"(Holding Trend)"}, reasons...)
	}
	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}

	confidence := netScore
	if confidence < 0 {
		confidence = -confidence
	}
	confidence += 50
	if confidence > 100 {
		confidence = 100
	}
	if bias == models.BiasNoTrade {
		confidence = 0
	}

	if store != nil {
		store.Set(in.Symbol, BiasState{Bias: bias, NetScore: netScore, At: now})
	}

	return models.BiasResponse{
		Symbol:     in.Symbol,
		TsISO:      now.UTC().Format(time.RFC3339),
		Bias:       bias,
		Confidence: confidence,
		Reasons:    reasons,
		Regime:     in.Regime,
		Flow:       in.Flow,
		Context:    in.Context,
		Score:      models.BiasScore{Bull: bull, Bear: bear, Net: netScore},
		Walls:      in.Walls,
		Spot:       in.Spot,
	}
}

// decideBias applies the hysteresis rules. A held-over verdict flips only
// when the new evaluation lands past the opposite flip threshold; inside the
// damping band the prior label is retained and tagged as holding. Regardless
// of history, a maxScore under the floor forces NoTrade.
func decideBias(prior *BiasState, netScore, maxScore int) (models.BiasLabel, bool) {
	if maxScore < noTradeFloor {
		return models.BiasNoTrade, false
	}

	if prior != nil {
		switch prior.Bias {
		case models.BiasBullish:
			if netScore < -flipThreshold {
				return models.BiasBearish, false
			}
			if netScore > -holdBand && netScore < holdBand {
				return models.BiasBullish, true
			}
			return models.BiasBullish, false
		case models.BiasBearish:
			if netScore > flipThreshold {
				return models.BiasBullish, false
			}
			if netScore > -holdBand && netScore < holdBand {
				return models.BiasBearish, true
			}
			return models.BiasBearish, false
		}
	}

	// No usable history, or prior was NoTrade: promotion needs conviction.
	if netScore > promoteThreshold && maxScore > promoteMinMax {
		return models.BiasBullish, false
	}
	if netScore < -promoteThreshold && maxScore > promoteMinMax {
		return models.BiasBearish, false
	}
	return models.BiasNoTrade, false
}
