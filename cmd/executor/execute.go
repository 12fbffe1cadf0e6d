package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"executor/internal/api"
	"executor/internal/config"
	"executor/internal/models"
)

type executeFlags struct {
	symbol      string
	side        string
	notional    string
	quantity    string
	timeInForce string
}

func (f executeFlags) intent() (models.OrderIntent, error) {
	req := models.ExecuteOrderRequest{
		Symbol:      f.symbol,
		Side:        f.side,
		Notional:    f.notional,
		Quantity:    f.quantity,
		TimeInForce: f.timeInForce,
	}
	return req.ToIntent()
}

func newExecuteCmd() *cobra.Command {
	var flags executeFlags

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Price, build, sign and submit one limit order",
		Example: "  executor execute --symbol SHIBUSDT --side SELL --notional 5\n" +
			"  executor execute --symbol BTCUSDT --side BUY --quantity 0.001 --tif IOC",
		RunE: func(cmd *cobra.Command, args []string) error {
			intent, err := flags.intent()
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(os.Stderr, cfg.LogLevel(), true)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, err := buildPipeline(ctx, cfg, logger, []string{intent.Symbol})
			if err != nil {
				logger.Error().Err(err).Msg("Failed to build execution client")
				return err
			}

			return runExecute(ctx, p.client, intent, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&flags.symbol, "symbol", "", "trading pair, e.g. SHIBUSDT")
	cmd.Flags().StringVar(&flags.side, "side", "", "BUY or SELL")
	cmd.Flags().StringVar(&flags.notional, "notional", "", "target quote amount")
	cmd.Flags().StringVar(&flags.quantity, "quantity", "", "explicit base quantity")
	cmd.Flags().StringVar(&flags.timeInForce, "tif", "", "GTC, IOC or FOK (default GTC)")
	cmd.MarkFlagsMutuallyExclusive("notional", "quantity")
	_ = cmd.MarkFlagRequired("symbol")
	_ = cmd.MarkFlagRequired("side")

	return cmd
}

// runExecute places one order and writes the result to out as JSON
func runExecute(ctx context.Context, executor api.Executor, intent models.OrderIntent, out io.Writer) error {
	result, err := executor.Execute(ctx, intent)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
