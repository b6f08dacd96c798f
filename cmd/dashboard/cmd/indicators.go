package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"testnet-dashboard/internal/dashboard"
	"testnet-dashboard/internal/model"
)

var indicatorsCmd = &cobra.Command{
	Use:   "indicators <symbol>",
	Short: "Print the indicator table for a symbol",
	Long: `Fetch KLINE_LIMIT candles at KLINE_INTERVAL and print SMA, RSI and MACD
for the most recent candles, newest first.

Example:
  dashboard indicators BTCUSDT --rows 10
  dashboard indicators ethusdt --json`,
	Args: cobra.ExactArgs(1),
	RunE: runIndicators,
}

var (
	indRows int
	indJSON bool
)

func init() {
	rootCmd.AddCommand(indicatorsCmd)

	indicatorsCmd.Flags().IntVarP(&indRows, "rows", "n", 0, "rows to print (default DISPLAY_ROWS)")
	indicatorsCmd.Flags().BoolVar(&indJSON, "json", false, "print the full aligned series as JSON")
}

func runIndicators(cmd *cobra.Command, args []string) error {
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
	series, err := svc.Series(ctx, args[0])
	if err != nil {
		return err
	}

	if indJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(series)
	}
	rows := indRows
	if rows <= 0 {
		rows = cfg.DisplayRows
	}
	return printRows(cmd.OutOrStdout(), series.Tail(rows))
}

func printRows(w io.Writer, series model.IndicatorSeries) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "TIME\tCLOSE\tSMA_FAST\tSMA_SLOW\tRSI\tMACD\tSIGNAL\t")
	for _, r := range dashboard.FormatRows(series) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.OpenTime, r.Close, r.SMAFast, r.SMASlow, r.RSI, r.MACD, r.MACDSignal)
	}
	return tw.Flush()
}
