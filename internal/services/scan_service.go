package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"gammaflow-intel/backend-go/internal/config"
	"gammaflow-intel/backend-go/internal/engine"
	"gammaflow-intel/backend-go/internal/models"
)

const scanConcurrency = 4

// ScanFilter narrows the unusual-candidate list before ranking.
type ScanFilter struct {
	MinScore   int
	OptionType models.OptionType
	Universe   []string
	Limit      int
}

// ScanService runs the market-wide unusual-trade scan: every contract on each
// universe underlying's chain is scored from its last print, and survivors
// are ranked by score.
type ScanService struct {
	cfg   config.Config
	chain *ChainClient
}

func NewScanService(cfg config.Config, chain *ChainClient) *ScanService {
	return &ScanService{cfg: cfg, chain: chain}
}

// Scan scores every contract in the filtered universe. Per-underlying fetch
// failures degrade to an error note instead of failing the pass.
func (s *ScanService) Scan(ctx context.Context, filter ScanFilter) models.ScanResponse {
	universe := filter.Universe
	if len(universe) == 0 {
		universe = s.cfg.ScanUniverse
	}
	if len(universe) > s.cfg.MaxUniverse {
		universe = universe[:s.cfg.MaxUniverse]
	}

	now := time.Now()
	var mu sync.Mutex
	candidates := make([]models.UnusualTradeCandidate, 0, 64)
	var scanErrors []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for _, symbol := range universe {
		symbol := symbol
		g.Go(func() error {
			snap, health := s.chain.Snapshot(gctx, symbol)
			if health.Error != "" && len(snap.Contracts) == 0 {
				mu.Lock()
				scanErrors = append(scanErrors, symbol+": "+health.Error)
				mu.Unlock()
				return nil
			}
			found := scoreChain(now, snap)
			mu.Lock()
			candidates = append(candidates, found...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	filtered := candidates[:0]
	for _, c := range candidates {
		if c.Score < filter.MinScore {
			continue
		}
		if filter.OptionType != "" && c.OptionType != filter.OptionType {
			continue
		}
		filtered = append(filtered, c)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Score != filtered[j].Score {
			return filtered[i].Score > filtered[j].Score
		}
		return filtered[i].Premium > filtered[j].Premium
	})
	if filter.Limit > 0 && len(filtered) > filter.Limit {
		filtered = filtered[:filter.Limit]
	}

	log.Info().Int("universe", len(universe)).Int("candidates", len(filtered)).Msg("unusual scan complete")
	return models.ScanResponse{
		TsISO:      now.UTC().Format(time.RFC3339),
		Universe:   universe,
		MinScore:   filter.MinScore,
		Candidates: filtered,
		Errors:     scanErrors,
	}
}

// scoreChain feeds each contract's last print through the candidate scorer.
func scoreChain(now time.Time, snap ChainSnapshot) []models.UnusualTradeCandidate {
	out := make([]models.UnusualTradeCandidate, 0, len(snap.Contracts))
	for _, c := range snap.Contracts {
		if c.LastTradePrice <= 0 || c.LastTradeSize <= 0 {
			continue
		}
		cand := engine.ScoreCandidate(now,
			engine.TradeInput{Price: c.LastTradePrice, Size: c.LastTradeSize},
			engine.QuoteInput{Bid: c.Bid, Ask: c.Ask, IV: c.ImpliedVolatility, Delta: c.Delta},
			engine.ContractDetails{
				Ticker:       c.ContractSymbol,
				Strike:       c.Strike,
				Expiration:   c.ExpirationDate,
				OpenInterest: c.OpenInterest,
				Volume:       c.DayVolume,
			},
			c.UnderlyingPrice,
		)
		if cand == nil {
			continue
		}
		if cand.Underlying == "" {
			cand.Underlying = snap.Symbol
		}
		out = append(out, *cand)
	}
	return out
}
