package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/andrea060103/bot-trading-simulazione/internal/server"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the simulation web page",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address; overrides server.addr"},
			&cli.StringFlag{Name: "source", Usage: "Data provider (yahoo, binance, polygon, alpaca, mock)"},
		},
		Action: serveAction,
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if v := cmd.String("addr"); v != "" {
		cfg.Server.Addr = v
	}
	a, err := setup(cfg, "")
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer a.close()

	srv := server.New(a.engine, cfg.Market, cfg.Portfolio.InitialBalance, a.logger)
	if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}
