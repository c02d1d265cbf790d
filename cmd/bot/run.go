package main

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/andrea060103/bot-trading-simulazione/internal/collector"
	"github.com/andrea060103/bot-trading-simulazione/internal/recorder"
	"github.com/andrea060103/bot-trading-simulazione/internal/report"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run one simulation and print the report",
		Flags: append(requestFlags(),
			&cli.IntFlag{Name: "rows", Value: 20, Usage: "Rows of the signal table to print (0 prints all)"},
			&cli.BoolFlag{Name: "indicators", Usage: "Also print the RSI, MACD and signal line columns"},
			&cli.BoolFlag{Name: "record", Usage: "Store the run in the configured recorders"},
		),
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	// Reports go to stdout, so logs stay on stderr.
	a, err := setup(cfg, "")
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer a.close()

	out := cmd.Root().Writer
	result, err := a.engine.Run(ctx, a.request())
	if err != nil {
		report.RenderError(out, err)
		if errors.Is(err, collector.ErrNoData) {
			return cli.Exit("", 1)
		}
		return cli.Exit(err.Error(), 1)
	}

	opts := report.DefaultRenderOptions()
	opts.Table.MaxRows = int(cmd.Int("rows"))
	opts.Table.Indicators = cmd.Bool("indicators")
	if err := report.Render(out, result, opts); err != nil {
		return err
	}

	if cmd.Bool("record") {
		rec := a.recorder()
		defer rec.Close()
		if err := rec.RecordRun(recorder.NewRunRecord(result)); err != nil {
			a.logger.Error("record run", zap.Error(err))
		}
	}
	return nil
}
