package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"gammaflow-intel/backend-go/internal/config"
	"gammaflow-intel/backend-go/internal/engine"
	"gammaflow-intel/backend-go/internal/models"
	"gammaflow-intel/backend-go/internal/ttl"
)

// BiasService orchestrates one bias evaluation: a single chain snapshot is
// fetched and shared by the regime, wall and flow stages so they never
// disagree about which contracts are active, then the bias engine folds their
// outputs together with the VWAP context.
type BiasService struct {
	cfg        config.Config
	chain      *ChainClient
	trades     *TradesClient
	aggs       *AggsClient
	gamma      *engine.GammaHistory
	hysteresis *ttl.Map[engine.BiasState]
}

func NewBiasService(cfg config.Config, chain *ChainClient, trades *TradesClient, aggs *AggsClient) *BiasService {
	return &BiasService{
		cfg:        cfg,
		chain:      chain,
		trades:     trades,
		aggs:       aggs,
		gamma:      engine.NewGammaHistory(cfg.GammaWindow),
		hysteresis: ttl.NewMap[engine.BiasState](cfg.HysteresisTTL),
	}
}

// Evaluate produces the full bias verdict for an underlying.
func (s *BiasService) Evaluate(ctx context.Context, symbol string) models.BiasResponse {
	symbol = strings.ToUpper(symbol)
	now := time.Now()

	snap, health := s.chain.Snapshot(ctx, symbol)
	spot := snap.Spot

	vwapCtx, aggSpot, err := s.aggs.VWAPContext(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("vwap context unavailable")
		vwapCtx = models.VWAPContext{PriceVsVWAP: models.PriceAtVWAP}
	}
	if spot == 0 {
		spot = aggSpot
	}

	regime := engine.ComputeRegime(s.gamma, symbol, snap.Contracts, spot, now)
	walls := engine.ComputeWalls(snap.Contracts, spot)
	flow := s.aggregateFlow(ctx, snap, spot, now)

	resp := engine.ClassifyBias(s.hysteresis, engine.BiasInputs{
		Symbol:  symbol,
		Spot:    spot,
		Context: vwapCtx,
		Regime:  regime,
		Flow:    flow,
		Walls:   walls,
	}, now)
	resp.Health = health
	return resp
}

// Gamma exposes regime + walls from one snapshot, without flow sampling.
func (s *BiasService) Gamma(ctx context.Context, symbol string) models.GammaResponse {
	symbol = strings.ToUpper(symbol)
	now := time.Now()
	snap, health := s.chain.Snapshot(ctx, symbol)
	return models.GammaResponse{
		Symbol: symbol,
		TsISO:  now.UTC().Format(time.RFC3339),
		Spot:   snap.Spot,
		Regime: engine.ComputeRegime(s.gamma, symbol, snap.Contracts, snap.Spot, now),
		Walls:  engine.ComputeWalls(snap.Contracts, snap.Spot),
		Health: health,
	}
}

// Flow exposes the flow aggregates independently of the bias verdict.
func (s *BiasService) Flow(ctx context.Context, symbol string) models.FlowResponse {
	symbol = strings.ToUpper(symbol)
	now := time.Now()
	snap, health := s.chain.Snapshot(ctx, symbol)
	return models.FlowResponse{
		Symbol: symbol,
		TsISO:  now.UTC().Format(time.RFC3339),
		Spot:   snap.Spot,
		Flow:   s.aggregateFlow(ctx, snap, snap.Spot, now),
		Health: health,
	}
}

// aggregateFlow selects the most active contracts from the shared snapshot
// and fans out their trade-print fetches, bounded to MaxFlowContracts
// in-flight. A failed fetch degrades that contract to an empty print stream
// rather than failing the request.
func (s *BiasService) aggregateFlow(ctx context.Context, snap ChainSnapshot, spot float64, now time.Time) models.FlowAggregates {
	selected := engine.SelectActiveContracts(snap.Contracts, s.cfg.MaxFlowContracts)

	samples := make([]engine.ContractPrints, len(selected))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxFlowContracts)
	for i, c := range selected {
		i, c := i, c
		g.Go(func() error {
			prints, err := s.trades.RecentPrints(gctx, c.ContractSymbol)
			if err != nil {
				log.Debug().Err(err).Str("contract", c.ContractSymbol).Msg("trade prints unavailable")
				prints = nil
			}
			mu.Lock()
			samples[i] = engine.ContractPrints{Contract: c, Prints: prints}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return engine.AggregateFlow(samples, snap.Contracts, spot, now)
}
