package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mfalcon/negotia/internal/config"
	"github.com/mfalcon/negotia/internal/events"
	"github.com/mfalcon/negotia/internal/otel"
	"github.com/mfalcon/negotia/internal/swarm"
	"github.com/mfalcon/negotia/internal/translog"
	"github.com/mfalcon/negotia/pkg/models"
)

func newRunCmd() *cobra.Command {
	var (
		scenarioPath  string
		metricsAddr   string
		dbDriver      string
		dbURL         string
		envFile       string
		maxConcurrent int
		runID         string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every negotiation of a scenario to conclusion",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("load env file: %w", err)
				}
			}
			home := config.MustHomeFrom(ctx)

			sc, err := config.LoadScenario(scenarioPath)
			if err != nil {
				return err
			}
			s, err := swarm.FromScenario(sc)
			if err != nil {
				return err
			}
			if runID == "" {
				runID = time.Now().UTC().Format("20060102-150405")
			}
			s.RunID = runID
			s.MaxConcurrent = maxConcurrent
			s.Transcripts = translog.New(home)

			st, err := openStore(ctx, home, dbDriver, dbURL)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			s.Store = st

			if metricsAddr != "" {
				hub := events.NewHub()
				s.Hub = hub
				shutdown, err := serveObservability(ctx, metricsAddr, hub)
				if err != nil {
					return err
				}
				defer shutdown()
			}

			slog.Info("starting swarm run",
				"run_id", runID, "scenario", scenarioPath, "sessions", len(s.Sessions))
			if err := s.Run(ctx); err != nil {
				return err
			}

			results, summary := s.Results()
			for _, r := range results {
				if err := st.SaveResult(ctx, r); err != nil {
					slog.Error("result save failed", "session", r.SessionID, "err", err)
				}
			}
			if err := st.SaveSummary(ctx, summary); err != nil {
				slog.Error("summary save failed", "run_id", runID, "err", err)
			}

			printResults(cmd, s, results, summary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&scenarioPath, "config", "c", "scenario.yaml", "Scenario file to run")
	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "Serve /metrics and /events on this address during the run (e.g. 127.0.0.1:9464)")
	cmd.Flags().StringVar(&dbDriver, "db", "sqlite", "Store driver: sqlite or postgres")
	cmd.Flags().StringVar(&dbURL, "db-url", "", "DB connection string (for postgres; or set DATABASE_URL)")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Load env vars (provider API keys) from a .env file before running")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", models.DefaultMaxConcurrent, "Max concurrent decisions per pass")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run identifier (default: UTC timestamp)")

	return cmd
}

// serveObservability starts the /metrics + /events listener and returns
// its shutdown func. Listener failures only log; a run never aborts
// because its observer endpoint died.
func serveObservability(ctx context.Context, addr string, hub *events.Hub) (func(), error) {
	metricsHandler, err := otel.InitMeterProvider(ctx, "negotia")
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	if err := otel.InitMetrics(ctx); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler)
	mux.Handle("/events", hub.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "addr", addr, "err", err)
		}
	}()
	slog.Info("observability endpoint up", "addr", addr)
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}

func printResults(cmd *cobra.Command, s *swarm.Scheduler, results []models.SessionResult, summary models.SwarmSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "==== RESULTS ====")
	for _, n := range s.Sessions {
		fmt.Fprintln(out, n.Summary())
	}
	for _, r := range results {
		fmt.Fprintf(out, "%s: seller %.3f / buyer %.3f (gap %.3f)\n",
			r.SessionID, r.SellerScore, r.BuyerScore, r.Gap)
	}
	fmt.Fprintf(out, "agreed %d, failed %d", summary.AgreedCount, summary.FailedCount)
	if summary.AgreedCount > 0 {
		fmt.Fprintf(out, "; avg seller %.3f, avg buyer %.3f", summary.AvgSeller, summary.AvgBuyer)
	}
	fmt.Fprintln(out)
}
