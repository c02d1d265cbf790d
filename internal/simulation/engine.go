package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/andrea060103/bot-trading-simulazione/internal/calculator"
	"github.com/andrea060103/bot-trading-simulazione/internal/collector"
	"github.com/andrea060103/bot-trading-simulazione/internal/config"
	"github.com/andrea060103/bot-trading-simulazione/internal/fund"
	"github.com/andrea060103/bot-trading-simulazione/internal/model"
	"github.com/andrea060103/bot-trading-simulazione/internal/strategy"
)

// Engine runs the fetch, feature, label, sizing and walk pipeline.
// It holds no per-run state and is safe for concurrent use when its
// fetcher is.
type Engine struct {
	Collector *collector.Collector
	Rule      strategy.Rule
	Sizer     fund.Sizer
	Walker    fund.Walker
	Params    calculator.Params
	logger    *zap.Logger
	now       func() time.Time
}

// NewEngine assembles an engine from its parts.
func NewEngine(c *collector.Collector, rule strategy.Rule, sizer fund.Sizer, walker fund.Walker, params calculator.Params, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Collector: c,
		Rule:      rule,
		Sizer:     sizer,
		Walker:    walker,
		Params:    params,
		logger:    logger,
		now:       time.Now,
	}
}

// FromConfig builds the engine described by cfg on top of fetcher.
func FromConfig(cfg *config.Config, fetcher collector.Fetcher, logger *zap.Logger) (*Engine, error) {
	rule, err := strategy.New(cfg.Strategy.Rule, cfg.Strategy.Overbought)
	if err != nil {
		return nil, err
	}
	sizer, err := fund.NewSizer(cfg.Sizing.Method, cfg.Sizing.Fraction)
	if err != nil {
		return nil, err
	}
	walker, err := fund.NewWalker(cfg.Portfolio.Walker, cfg.Portfolio.MaxRisk)
	if err != nil {
		return nil, err
	}
	params := calculator.Params{
		MAWindow:   cfg.Strategy.MAWindow,
		RSIPeriod:  cfg.Strategy.RSIPeriod,
		MACDFast:   cfg.Strategy.MACDFast,
		MACDSlow:   cfg.Strategy.MACDSlow,
		MACDSignal: cfg.Strategy.MACDSignal,
	}
	return NewEngine(collector.NewCollector(fetcher, logger), rule, sizer, walker, params, logger), nil
}

// Run fetches the series for req and simulates it.
func (e *Engine) Run(ctx context.Context, req model.Request) (*model.Result, error) {
	if req.InitialBalance < 0 {
		return nil, errors.New("initial balance must not be negative")
	}
	series, err := e.Collector.Collect(ctx, req)
	if err != nil {
		return nil, err
	}
	return e.Simulate(req, series)
}

// Simulate derives a fresh Result from series without fetching.
func (e *Engine) Simulate(req model.Request, series model.Series) (*model.Result, error) {
	if series.Empty() {
		return nil, fmt.Errorf("simulate %s: %w", req.Symbol, collector.ErrNoData)
	}

	prices := series.Prices()
	features, err := calculator.Compute(prices, e.Params)
	if err != nil {
		return nil, fmt.Errorf("compute features: %w", err)
	}
	labels, err := strategy.Evaluate(e.Rule, prices, features)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", e.Rule.Name(), err)
	}
	fractions, err := fund.Fractions(e.Sizer, prices, features)
	if err != nil {
		return nil, fmt.Errorf("size %s: %w", e.Sizer.Name(), err)
	}
	initial := decimal.NewFromFloat(req.InitialBalance)
	steps, err := e.Walker.Walk(initial, prices, labels, fractions)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", e.Walker.Name(), err)
	}

	rows := make([]model.Row, len(prices))
	for i, p := range series.Points {
		rows[i] = model.Row{
			Time:      p.Time,
			Price:     p.Price,
			Features:  features[i],
			Label:     labels[i],
			Fraction:  fractions[i],
			Cash:      steps[i].Cash.InexactFloat64(),
			Units:     steps[i].Units.InexactFloat64(),
			Value:     steps[i].Value.InexactFloat64(),
			ProfitPct: fund.ProfitPct(steps[i].Value, initial),
			Traded:    steps[i].Traded,
		}
	}

	summary, err := summarize(rows, req.InitialBalance)
	if err != nil {
		return nil, err
	}

	if req.Symbol == "" {
		req.Symbol = series.Symbol
	}
	result := &model.Result{
		Request:     req,
		Source:      series.Source,
		Rule:        e.Rule.Name(),
		Sizer:       e.Sizer.Name(),
		Walker:      e.Walker.Name(),
		Rows:        rows,
		Summary:     summary,
		GeneratedAt: e.now().UTC(),
	}

	e.logger.Info("simulation finished",
		zap.String("symbol", req.Symbol),
		zap.String("rule", result.Rule),
		zap.Int("rows", len(rows)),
		zap.String("last_label", summary.Last.Label.String()),
		zap.Float64("final_value", summary.FinalValue),
		zap.Float64("profit_pct", summary.ProfitPct))

	return result, nil
}

func summarize(rows []model.Row, initial float64) (model.Summary, error) {
	prices := make([]float64, len(rows))
	values := make([]float64, len(rows))
	for i, r := range rows {
		prices[i] = r.Price
		values[i] = r.Value
	}
	high, low, err := calculator.PriceRange(prices)
	if err != nil {
		return model.Summary{}, fmt.Errorf("price range: %w", err)
	}

	labels := make([]model.Label, len(rows))
	trades := 0
	for i, r := range rows {
		labels[i] = r.Label
		if r.Traded {
			trades++
		}
	}
	buys, sells, holds := strategy.Count(labels)

	last := rows[len(rows)-1]
	return model.Summary{
		Last:           last,
		InitialBalance: initial,
		FinalValue:     last.Value,
		ProfitPct:      last.ProfitPct,
		Buys:           buys,
		Sells:          sells,
		Holds:          holds,
		Trades:         trades,
		High:           high,
		Low:            low,
		MaxDrawdownPct: calculator.MaxDrawdownPct(values),
	}, nil
}
