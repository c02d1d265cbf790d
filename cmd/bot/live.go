package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
	"github.com/andrea060103/bot-trading-simulazione/internal/notifier"
	"github.com/andrea060103/bot-trading-simulazione/internal/recorder"
	"github.com/andrea060103/bot-trading-simulazione/internal/report"
	"github.com/andrea060103/bot-trading-simulazione/internal/scheduler"
	"github.com/andrea060103/bot-trading-simulazione/internal/ui"
)

func liveCommand() *cli.Command {
	return &cli.Command{
		Name:  "live",
		Usage: "Re-run the simulation periodically and show it in a dashboard",
		Flags: append(requestFlags(),
			&cli.BoolFlag{Name: "no-tui", Usage: "Print a report per refresh instead of the dashboard"},
			&cli.DurationFlag{Name: "every", Usage: "Refresh interval; overrides live.every"},
			&cli.StringFlag{Name: "log-file", Value: "data/bot.log", Usage: "Log file used while the dashboard owns the terminal"},
		),
		Action: liveAction,
	}
}

// printSink writes a report per refresh for --no-tui.
type printSink struct {
	mu   sync.Mutex
	out  io.Writer
	opts report.RenderOptions
}

func (p *printSink) OnResult(result *model.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = report.Render(p.out, result, p.opts)
}

func (p *printSink) OnError(err error, retryIn time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	report.RenderError(p.out, fmt.Errorf("%w (retry in %s)", err, retryIn.Round(time.Second)))
}

func liveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if cmd.IsSet("every") {
		cfg.Live.Every = cmd.Duration("every")
		if err := cfg.Validate(); err != nil {
			return cli.Exit(err.Error(), 2)
		}
	}
	noTUI := cmd.Bool("no-tui")
	logPath := ""
	if !noTUI {
		logPath = cmd.String("log-file")
	}
	a, err := setup(cfg, logPath)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer a.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rec := a.recorder()
	defer rec.Close()

	var tn notifier.Notifier
	telegram := a.notifier()
	if telegram != nil {
		tn = telegram
	}

	sched, err := scheduler.NewScheduler(ctx, a.engine, a.request(), cfg.Live, rec, tn, a.logger)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if err := sched.Register(); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	if telegram != nil {
		cmds := &notifier.Commands{Latest: sched.Latest}
		if lister, ok := rec.(recorder.RunLister); ok {
			cmds.History = lister
		}
		go telegram.StartPolling(ctx, cmds.Handle)
		a.logger.Info("telegram polling started")
	}

	if noTUI {
		opts := report.DefaultRenderOptions()
		opts.Table.MaxRows = cfg.Live.Rows
		sched.AddSink(&printSink{out: cmd.Root().Writer, opts: opts})
		sched.Start()
		defer sched.Stop()
		sched.Trigger()
		<-ctx.Done()
		a.logger.Info("shutdown signal received, stopping")
		return nil
	}

	title := fmt.Sprintf("%s %s/%s via %s", cfg.Market.Symbol, cfg.Market.Period, cfg.Market.Interval, a.source)
	program := tea.NewProgram(
		ui.NewModel(title, cfg.Live.Rows, sched.Trigger),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	sched.AddSink(ui.Sink{Program: program})
	sched.Start()
	defer stopScheduler(cancel, sched)
	sched.Trigger()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		a.logger.Error("dashboard stopped", zap.Error(err))
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

// stopScheduler cancels in-flight fetches, then waits for the scheduler,
// so no iteration outlives the recorder.
func stopScheduler(cancel context.CancelFunc, sched *scheduler.Scheduler) {
	cancel()
	sched.Stop()
}
