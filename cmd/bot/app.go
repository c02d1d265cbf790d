package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/andrea060103/bot-trading-simulazione/internal/config"
)

const defaultConfigPath = "configs/config.yaml"

func newApp(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "bot",
		Usage:  "Simulate trading signals on market price series",
		Writer: stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config `FILE`",
				Value:   defaultConfigPath,
				Sources: cli.EnvVars("CONFIG_PATH"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error); overrides the config file",
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			liveCommand(),
			serveCommand(),
			schemaCommand(),
		},
	}
}

// requestFlags are shared by run and live.
func requestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "symbol", Aliases: []string{"s"}, Usage: "Symbol to simulate, e.g. BTC-USD"},
		&cli.StringFlag{Name: "period", Aliases: []string{"p"}, Usage: "Lookback period (1d, 5d, 1mo, ...)"},
		&cli.StringFlag{Name: "interval", Aliases: []string{"i"}, Usage: "Bar interval (1m, 5m, 1h, 1d, ...)"},
		&cli.FloatFlag{Name: "balance", Aliases: []string{"b"}, Usage: "Initial balance in USD"},
		&cli.StringFlag{Name: "source", Usage: "Data provider (yahoo, binance, polygon, alpaca, mock)"},
		&cli.StringFlag{Name: "rule", Usage: "Signal rule (ma, confirmed)"},
	}
}

// loadConfig reads .env, the config file and the command line overrides,
// then validates the result.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	if err := config.LoadEnvFile(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v := cmd.String("symbol"); v != "" {
		cfg.Market.Symbol = v
	}
	if v := cmd.String("period"); v != "" {
		cfg.Market.Period = v
	}
	if v := cmd.String("interval"); v != "" {
		cfg.Market.Interval = v
	}
	if v := cmd.String("source"); v != "" {
		cfg.Market.Source = v
	}
	if v := cmd.String("rule"); v != "" {
		cfg.Strategy.Rule = v
	}
	if cmd.IsSet("balance") {
		cfg.Portfolio.InitialBalance = cmd.Float("balance")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON schema of the config file",
		Action: func(_ context.Context, cmd *cli.Command) error {
			data, err := json.MarshalIndent(config.Schema(), "", "  ")
			if err != nil {
				return fmt.Errorf("encode schema: %w", err)
			}
			_, err = fmt.Fprintln(cmd.Root().Writer, string(data))
			return err
		},
	}
}
