package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"martelinho/internal/core"
	"martelinho/internal/finance"
	"martelinho/internal/log"
)

func newSummaryCmd() *cobra.Command {
	var (
		tenant string
		date   string
		months int
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the financial summary of a tenant",
		Long: "Print the current-period totals and the trailing monthly trend of a tenant,\n" +
			"the same figures the dashboard shows.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenant == "" {
				return errors.New("--tenant is required")
			}
			ref := core.DateOf(time.Now())
			if date != "" {
				d, err := core.ParseDate(date)
				if err != nil {
					return fmt.Errorf("invalid --date %q: want yyyy-MM-dd", date)
				}
				ref = d
			}

			LoadEnvFile()
			cfg, err := LoadAndValidateConfig()
			if err != nil {
				return err
			}
			if months <= 0 {
				months = cfg.TrailingMonths
			}
			logger := SetupLogger(cfg)
			store, err := OpenBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			dash := finance.NewDashboard(store.Services,
				finance.WithConcurrency(cfg.AggregateConcurrency),
				finance.WithLogger(logger))
			return printSummary(cmd.Context(), cmd.OutOrStdout(), dash, tenant, ref, months)
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant (user) id")
	cmd.Flags().StringVar(&date, "date", "", "reference date yyyy-MM-dd (default today)")
	cmd.Flags().IntVar(&months, "months", 0, "trailing months to show (default from TRAILING_MONTHS)")
	return cmd
}

func printSummary(ctx context.Context, w io.Writer, dash *finance.Dashboard, tenantID string, ref core.Date, months int) error {
	periods, err := dash.CurrentPeriodSummaries(ctx, tenantID, ref)
	if err != nil {
		return fmt.Errorf("current periods: %w", err)
	}
	trend, err := dash.Trend(ctx, tenantID, ref, months)
	if err != nil {
		return fmt.Errorf("trend: %w", err)
	}
	log.FromContext(ctx).DebugContext(ctx, "Summary computed",
		log.FieldTenantID, tenantID,
		log.FieldWindows, len(periods)+len(trend))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Período\tServiços\tTotal\tMédia\t\n")
	for _, p := range periods {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t\n", p.Period, p.Count, core.FormatBRL(p.Total.Cents), core.FormatBRL(p.Average().Cents))
	}
	fmt.Fprintf(tw, "\t\t\t\t\n")
	fmt.Fprintf(tw, "Mês\tServiços\tTotal\tCrescimento\t\n")
	for _, m := range trend {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t\n", m.Month.Label, m.Summary.Count, core.FormatBRL(m.Summary.Total.Cents), growthText(m.Growth))
	}
	return tw.Flush()
}

func growthText(g finance.GrowthRate) string {
	if !g.Applicable {
		return "-"
	}
	return fmt.Sprintf("%+.1f%%", g.Percent)
}
