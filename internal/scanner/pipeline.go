package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"QuantChannel/internal/backtest"
	"QuantChannel/internal/channel"
	"QuantChannel/internal/model"
	"QuantChannel/internal/optimize"
	"QuantChannel/internal/series"
)

// analyzeSymbol runs the full pipeline for one symbol: history, preprocess,
// optional parameter search, channel fit with a conservative fallback
// cascade, backtest, and classification.
func (s *Scanner) analyzeSymbol(ctx context.Context, runID, symbol string) (*model.AnalysisRecord, error) {
	priceSeries, err := s.Collector.History(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	bars := series.Preprocess(priceSeries.Bars)
	if len(bars) < channel.MinFitPoints {
		return nil, fmt.Errorf("insufficient data: %d bars after preprocessing", len(bars))
	}
	closes := closesOf(bars)

	params := optimize.Params{
		Degree:   s.Cfg.Channel.Degree,
		KStd:     s.Cfg.Channel.KStd,
		Lookback: 0,
	}
	if s.Cfg.Optimization.Enabled {
		res := optimize.Search(closes, optimize.Config{
			Trials:   s.Cfg.Optimization.Trials,
			Seed:     s.Cfg.Optimization.Seed,
			Backtest: s.backtestConfig(),
		})
		if res.Exhausted {
			log.Warn().Str("symbol", symbol).Msg("optimization exhausted, using defaults")
		} else {
			log.Debug().
				Str("symbol", symbol).
				Int("degree", res.Best.Degree).
				Float64("k_std", res.Best.KStd).
				Int("lookback", res.Best.Lookback).
				Float64("objective", res.BestObjective).
				Msg("optimization selected parameters")
		}
		params = res.Best
	}
	if params.Lookback > 0 && params.Lookback < len(closes) {
		closes = closes[len(closes)-params.Lookback:]
	}

	fit, usedParams, err := s.fitWithFallback(symbol, closes, params)
	if err != nil {
		return nil, err
	}

	_, stats := backtest.Simulate(closes, fit.Entries, fit.Exits, s.backtestConfig())

	lastPrice := closes[len(closes)-1]
	signal, potential := channel.Classify(fit.Channel, lastPrice)

	return &model.AnalysisRecord{
		RunID:                  runID,
		Symbol:                 symbol,
		Interval:               s.Cfg.Interval,
		CurrentPrice:           lastPrice,
		Signal:                 signal,
		PotentialReturnPercent: potential,
		LowerBand:              fit.Channel.Lower[len(fit.Channel.Lower)-1],
		UpperBand:              fit.Channel.Upper[len(fit.Channel.Upper)-1],
		Stats:                  stats,
		Degree:                 usedParams.Degree,
		KStd:                   usedParams.KStd,
		Lookback:               usedParams.Lookback,
		AnalyzedAt:             time.Now().UTC(),
	}, nil
}

// fitWithFallback tries the chosen parameters, then progressively more
// conservative ones. Only when every attempt is rejected does the symbol
// fail.
func (s *Scanner) fitWithFallback(symbol string, closes []float64, params optimize.Params) (model.FitResult, optimize.Params, error) {
	attempts := []optimize.Params{
		params,
		{Degree: 2, KStd: 2.0, Lookback: params.Lookback},
		{Degree: 1, KStd: 1.0, Lookback: params.Lookback},
	}
	var lastReason model.RejectReason
	for i, p := range attempts {
		fit := channel.Fit(closes, p.Degree, p.KStd)
		if fit.Accepted() {
			if i > 0 {
				log.Debug().
					Str("symbol", symbol).
					Int("attempt", i+1).
					Int("degree", p.Degree).
					Float64("k_std", p.KStd).
					Msg("channel fit succeeded on fallback parameters")
			}
			return fit, p, nil
		}
		lastReason = fit.Reason
	}
	return model.FitResult{}, params, fmt.Errorf("channel fit rejected after %d attempts: %s", len(attempts), lastReason)
}

func (s *Scanner) backtestConfig() backtest.Config {
	return backtest.Config{
		Fees:        *s.Cfg.Backtest.Fees,
		Slippage:    *s.Cfg.Backtest.Slippage,
		InitialCash: s.Cfg.Backtest.InitialCash,
		OrderDelay:  s.Cfg.Backtest.OrderDelay,
		Engine:      s.Cfg.Backtest.Engine,
	}
}

func closesOf(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
