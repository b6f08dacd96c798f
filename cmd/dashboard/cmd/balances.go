package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"testnet-dashboard/internal/model"
)

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "List assets with a non-zero balance",
	Args:  cobra.NoArgs,
	RunE:  runBalances,
}

func init() {
	rootCmd.AddCommand(balancesCmd)
}

func runBalances(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig("dashboard-cli")
	if err != nil {
		return err
	}
	client, err := newClient(cfg, log, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTPTimeout)
	defer cancel()
	balances, err := client.NonZeroBalances(ctx)
	if err != nil {
		return err
	}
	return printBalances(cmd.OutOrStdout(), balances)
}

func printBalances(w io.Writer, balances []model.Balance) error {
	if len(balances) == 0 {
		_, err := fmt.Fprintln(w, "no assets with a non-zero balance")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ASSET\tFREE\tLOCKED\t")
	for _, b := range balances {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", b.Asset,
			strconv.FormatFloat(b.Free, 'f', -1, 64),
			strconv.FormatFloat(b.Locked, 'f', -1, 64))
	}
	return tw.Flush()
}
