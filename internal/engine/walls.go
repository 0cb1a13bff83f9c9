package engine

import (
	"gammaflow-intel/backend-go/internal/models"
)

// ComputeWalls aggregates signed dealer gamma exposure per strike. The strike
// with the maximum positive aggregate is the call wall (dealers sell into
// rallies there); the most negative aggregate marks the put wall. Contracts
// without a gamma value are skipped rather than zero-coerced.
func ComputeWalls(contracts []models.OptionQuoteSnapshot, spotPrice float64) models.WallSet {
	byStrike := make(map[float64]float64)
	for _, c := range contracts {
		if c.Gamma == nil {
			continue
		}
		exposure := *c.Gamma * float64(c.OpenInterest) * 100 * spotPrice
		if c.OptionType == models.OptionPut {
			exposure = -exposure
		}
		byStrike[c.Strike] += exposure
	}

	var ws models.WallSet
	var callWall, putWall float64
	var maxPos, minNeg float64
	for strike, exp := range byStrike {
		if exp > maxPos || (exp == maxPos && maxPos > 0 && strike < callWall) {
			maxPos = exp
			callWall = strike
		}
		if exp < minNeg || (exp == minNeg && minNeg < 0 && strike > putWall) {
			minNeg = exp
			putWall = strike
		}
	}

	if maxPos > 0 {
		cw := callWall
		ws.CallWall = &cw
		if spotPrice > 0 {
			d := (cw - spotPrice) / spotPrice * 100
			ws.DistToCallWallPct = &d
		}
	}
	if minNeg < 0 {
		pw := putWall
		ws.PutWall = &pw
		if spotPrice > 0 {
			d := (pw - spotPrice) / spotPrice * 100
			ws.DistToPutWallPct = &d
		}
	}
	return ws
}
