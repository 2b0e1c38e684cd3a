package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"renthub/internal/models"
	"renthub/internal/pricing"
)

type estimateOptions struct {
	price    float64
	period   string
	from     string
	to       string
	currency string
}

func newEstimateCmd() *cobra.Command {
	opts := &estimateOptions{}
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Price a stay offline",
		Long:  "Run the rental cost calculator against a listed price without touching the database.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEstimate(cmd, opts)
		},
	}
	cmd.Flags().Float64Var(&opts.price, "price", 0, "listed price in USD")
	cmd.Flags().StringVar(&opts.period, "period", string(models.RentPeriodMonth), "price period (day|month)")
	cmd.Flags().StringVar(&opts.from, "from", "", "check-in date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.to, "to", "", "check-out date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.currency, "currency", pricing.BaseCurrency, "display currency")
	_ = cmd.MarkFlagRequired("price")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func runEstimate(cmd *cobra.Command, opts *estimateOptions) error {
	checkIn, err := time.Parse("2006-01-02", opts.from)
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	checkOut, err := time.Parse("2006-01-02", opts.to)
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}
	period := models.RentPeriod(opts.period)
	if period != models.RentPeriodDay && period != models.RentPeriodMonth {
		return fmt.Errorf("invalid --period %q (must be day or month)", opts.period)
	}

	p := &models.Property{Price: opts.price, RentPeriod: period, Available: true}
	b, err := pricing.Calculate(p, checkIn, checkOut, opts.currency)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), b)
	}

	cur, _ := pricing.LookupCurrency(b.Currency)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d nights, %s to %s\n", b.Duration.Days, opts.from, opts.to)
	for _, item := range b.LineItems {
		fmt.Fprintf(out, "  %-28s %14s\n", item.Label, pricing.FormatMoney(item.Amount, cur))
	}
	return nil
}
