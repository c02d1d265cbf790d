package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/andrea060103/bot-trading-simulazione/internal/collector"
	"github.com/andrea060103/bot-trading-simulazione/internal/config"
	"github.com/andrea060103/bot-trading-simulazione/internal/logger"
	"github.com/andrea060103/bot-trading-simulazione/internal/model"
	"github.com/andrea060103/bot-trading-simulazione/internal/notifier"
	"github.com/andrea060103/bot-trading-simulazione/internal/recorder"
	"github.com/andrea060103/bot-trading-simulazione/internal/simulation"
)

// app holds the components every command shares.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	engine *simulation.Engine
	source string
}

func setup(cfg *config.Config, logPath string) (*app, error) {
	l, err := logger.New(cfg.Log.Level, cfg.Log.Development, logPath)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	fetcher, err := collector.New(cfg.Market, l)
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}
	engine, err := simulation.FromConfig(cfg, fetcher, l)
	if err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}
	l.Info("data source", zap.String("source", fetcher.Name()))
	return &app{cfg: cfg, logger: l, engine: engine, source: fetcher.Name()}, nil
}

func (a *app) request() model.Request {
	return model.Request{
		Symbol:         a.cfg.Market.Symbol,
		Period:         a.cfg.Market.Period,
		Interval:       a.cfg.Market.Interval,
		InitialBalance: a.cfg.Portfolio.InitialBalance,
	}
}

// recorder opens every configured store. A store that fails to open is
// logged and skipped.
func (a *app) recorder() recorder.Recorder {
	var recs recorder.Multi
	if path := a.cfg.Database.SQLitePath; path != "" {
		sr, err := recorder.NewSQLiteRecorder(path, a.logger)
		if err != nil {
			a.logger.Warn("init sqlite recorder failed, skipping", zap.Error(err))
		} else {
			recs = append(recs, sr)
		}
	}
	if in := a.cfg.Influx; in.Enabled() {
		recs = append(recs, recorder.NewInfluxRecorder(in.URL, in.Token, in.Org, in.Bucket, a.logger))
	}
	if len(recs) == 0 {
		return recorder.NewNoopRecorder()
	}
	return recs
}

// notifier returns nil when Telegram is not configured.
func (a *app) notifier() *notifier.TelegramNotifier {
	tg := a.cfg.Telegram
	if !tg.Enabled() {
		return nil
	}
	tn := notifier.NewTelegramNotifier(tg.BotToken, tg.ChatID, a.cfg.Market.Proxy, a.logger)
	if tg.APIBase != "" {
		tn.APIBase = tg.APIBase
	}
	return tn
}

func (a *app) close() {
	_ = a.logger.Sync()
}
