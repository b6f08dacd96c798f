package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"testnet-dashboard/internal/dashboard"
	"testnet-dashboard/internal/lotsize"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <symbol> <quantity>",
	Short: "Show the quantity an order would be sent with",
	Long: `Fetch the symbol's current LOT_SIZE rule and apply it to a quantity
without placing an order.

Example:
  dashboard normalize BTCUSDT 0.0015678`,
	Args: cobra.ExactArgs(2),
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	qty, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", args[1], err)
	}

	cfg, log, err := loadConfig("dashboard-cli")
	if err != nil {
		return err
	}
	client, err := newClient(cfg, log, nil)
	if err != nil {
		return err
	}
	svc, err := newService(cfg, client, dashboard.Options{Logger: log})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTPTimeout)
	defer cancel()
	q, rule, err := svc.Normalize(ctx, args[0], qty)
	if err != nil {
		return err
	}
	return printNormalized(cmd.OutOrStdout(), dashboard.NormalizeSymbol(args[0]), qty, rule, q)
}

func printNormalized(w io.Writer, symbol string, requested float64, rule lotsize.Rule, q lotsize.Quantity) error {
	_, err := fmt.Fprintf(w, "%s minQty=%s stepSize=%s precision=%d\nrequested %s -> %s\n",
		symbol, rule.MinQty, rule.StepSize, rule.Precision(),
		strconv.FormatFloat(requested, 'f', -1, 64), q)
	return err
}
