// Package engine holds the deterministic analytics core: the unusual-trade
// scorer, the gamma wall/regime engines, the flow aggregator and the bias
// classifier. Everything here is computation over already-fetched snapshots;
// no I/O happens in this package.
package engine

import (
	"strings"
	"time"

	"gammaflow-intel/backend-go/internal/models"
)

// Liquidity gates. Only the spread gate is a hard reject: a contract quoted
// 40%+ wide is untradeable noise. The rest are soft so marginal candidates
// stay visible for downstream filtering.
const (
	maxSpreadFrac = 0.40
	minTradeSize  = 10
	minPremiumUSD = 25_000
	minPriceUSD   = 0.10

	softGatePenalty = 10
	atAskBoost      = 10
	atAskTolerance  = 0.005
)

// TradeInput is the print being evaluated.
type TradeInput struct {
	Price float64
	Size  int64
}

// QuoteInput is the prevailing market for the contract. IV and Delta are
// optional; they are carried for context, not required by the score.
type QuoteInput struct {
	Bid   float64
	Ask   float64
	IV    *float64
	Delta *float64
}

// ContractDetails identifies the contract being traded.
type ContractDetails struct {
	Ticker       string
	Strike       float64
	Expiration   string
	OpenInterest int64
	Volume       int64
}

// ScoreCandidate converts one trade/quote/contract snapshot into a scored
// UnusualTradeCandidate, or returns nil when the snapshot is invalid or the
// contract is catastrophically illiquid. Deterministic given its inputs.
func ScoreCandidate(now time.Time, trade TradeInput, quote QuoteInput, details ContractDetails, underlyingPrice float64) *models.UnusualTradeCandidate {
	if quote.Ask < quote.Bid || quote.Bid < 0 {
		// Crossed or negative market: stale snapshot, skip.
		return nil
	}
	mid := (quote.Bid + quote.Ask) / 2
	if mid <= 0 {
		return nil
	}
	spread := (quote.Ask - quote.Bid) / mid
	if spread > maxSpreadFrac {
		return nil
	}

	optType, ok := ParseOCCType(details.Ticker)
	if !ok {
		return nil
	}

	premium := trade.Price * float64(trade.Size) * 100
	dte := DaysToExpiry(now, details.Expiration)

	volOI := 0.0
	if details.OpenInterest > 0 {
		volOI = float64(details.Volume) / float64(details.OpenInterest)
	}

	isBuy := trade.Price >= mid
	intent := classifyIntent(isBuy, optType)

	score := 50
	if trade.Size < minTradeSize {
		score -= softGatePenalty
	}
	if premium < minPremiumUSD {
		score -= softGatePenalty
	}
	if trade.Price < minPriceUSD {
		score -= softGatePenalty
	}

	// Premium tiers stack: a $600k print collects all three.
	if premium >= 50_000 {
		score += 5
	}
	if premium >= 100_000 {
		score += 10
	}
	if premium >= 500_000 {
		score += 10
	}

	if spread < 0.01 {
		score += 10
	} else if spread < 0.05 {
		score += 5
	}

	if volOI >= 1.5 {
		score += 5
	}
	if volOI >= 3 {
		score += 10
	}
	if volOI >= 5 {
		score += 5
	}

	if quote.Ask > 0 && trade.Price >= quote.Ask*(1-atAskTolerance) {
		score += atAskBoost
	}

	flags := make([]string, 0, 4)
	if dte == 0 {
		// 0DTE flow is directionally ambiguous: flag it, don't boost it.
		flags = append(flags, models.FlagZeroDTE)
	}
	if dte >= 0 && dte <= 14 {
		flags = append(flags, models.FlagNearTerm)
		score += 5
	}
	if volOI > 5 {
		flags = append(flags, models.FlagHighVolOI)
	}
	if spread > 0.10 {
		flags = append(flags, models.FlagWideSpread)
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return &models.UnusualTradeCandidate{
		Underlying:     ParseOCCUnderlying(details.Ticker),
		ContractSymbol: details.Ticker,
		OptionType:     optType,
		Strike:         details.Strike,
		Expiration:     details.Expiration,
		DTE:            dte,
		Premium:        premium,
		TradeSize:      trade.Size,
		VolOIRatio:     volOI,
		SpreadPct:      spread,
		Intent:         intent,
		Flags:          flags,
		Score:          score,
		CapturedISO:    now.UTC().Format(time.RFC3339),
	}
}

func classifyIntent(isBuy bool, optType models.OptionType) models.Intent {
	switch {
	case isBuy && optType == models.OptionCall:
		return models.IntentBullishBuy
	case isBuy && optType == models.OptionPut:
		return models.IntentBearishBuy
	case !isBuy && optType == models.OptionCall:
		return models.IntentBearishSell
	case !isBuy && optType == models.OptionPut:
		return models.IntentBullishSell
	}
	return models.IntentNeutral
}

// ParseOCCType extracts the call/put flag from an OCC-style contract symbol
// (e.g. "O:SPY251219C00450000"). The flag sits 9 characters from the end,
// ahead of the 8-digit strike.
func ParseOCCType(ticker string) (models.OptionType, bool) {
	if len(ticker) < 9 {
		return "", false
	}
	switch ticker[len(ticker)-9] {
	case 'C':
		return models.OptionCall, true
	case 'P':
		return models.OptionPut, true
	}
	return "", false
}

// ParseOCCUnderlying strips the date/flag/strike suffix and any "O:" prefix
// from an OCC contract symbol, leaving the underlying ticker.
func ParseOCCUnderlying(ticker string) string {
	t := strings.TrimPrefix(ticker, "O:")
	if len(t) <= 15 {
		return t
	}
	return t[:len(t)-15]
}

// DaysToExpiry computes whole days between now and the expiration date, both
// truncated to UTC midnight so the current hour never shifts the count.
// Expiration dates are "YYYY-MM-DD"; unparseable input yields -1.
func DaysToExpiry(now time.Time, expiration string) int {
	exp, err := time.Parse("2006-01-02", expiration)
	if err != nil {
		return -1
	}
	nowUTC := now.UTC()
	today := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), 0, 0, 0, 0, time.UTC)
	expDay := time.Date(exp.Year(), exp.Month(), exp.Day(), 0, 0, 0, 0, time.UTC)
	return int(expDay.Sub(today).Hours() / 24)
}
