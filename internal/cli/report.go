package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mfalcon/negotia/internal/config"
	"github.com/mfalcon/negotia/pkg/models"
)

func newReportCmd() *cobra.Command {
	var (
		dbDriver string
		dbURL    string
		asJSON   bool
		limit    int
		runID    string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show scored results and run summaries from the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			home := config.MustHomeFrom(ctx)

			st, err := openStore(ctx, home, dbDriver, dbURL)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			results, err := st.ListResults(ctx, limit)
			if err != nil {
				return err
			}
			summaries, err := st.ListSummaries(ctx, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if runID != "" {
				sessions, err := st.ListSessions(ctx, runID, limit)
				if err != nil {
					return err
				}
				for _, s := range sessions {
					fmt.Fprintf(out, "%s  %s vs %s over %s  [%s]\n",
						s.SessionID, s.SellerID, s.BuyerID, s.ItemID, s.Status)
				}
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Results   []models.SessionResult `json:"results"`
					Summaries []models.SwarmSummary  `json:"summaries"`
				}{results, summaries})
			}

			for _, r := range results {
				fmt.Fprintf(out, "%s  %s vs %s  [%s]  seller %.3f / buyer %.3f (gap %.3f)\n",
					r.SessionID, r.SellerID, r.BuyerID, r.Status, r.SellerScore, r.BuyerScore, r.Gap)
			}
			for _, s := range summaries {
				fmt.Fprintf(out, "run %s: agreed %d, failed %d, avg seller %.3f, avg buyer %.3f\n",
					s.RunID, s.AgreedCount, s.FailedCount, s.AvgSeller, s.AvgBuyer)
			}
			if len(results) == 0 && len(summaries) == 0 {
				fmt.Fprintln(out, "no results recorded")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbDriver, "db", "sqlite", "Store driver: sqlite or postgres")
	cmd.Flags().StringVar(&dbURL, "db-url", "", "DB connection string (for postgres; or set DATABASE_URL)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON for scripts")
	cmd.Flags().IntVar(&limit, "limit", models.DefaultReportListLimit, "Max rows per listing")
	cmd.Flags().StringVar(&runID, "run", "", "Also list the sessions of this run id")

	return cmd
}
