package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mfalcon/negotia/internal/config"
)

func newDoctorCmd() *cobra.Command {
	var scenarioPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Verify the local setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			home := config.MustHomeFrom(ctx)

			var problems []string

			if err := os.MkdirAll(home, 0o755); err != nil {
				problems = append(problems, fmt.Sprintf("home directory %s not writable: %v", home, err))
			}

			if st, err := openStore(ctx, home, "sqlite", ""); err != nil {
				problems = append(problems, fmt.Sprintf("store open failed: %v", err))
			} else {
				_ = st.Close()
			}

			if scenarioPath != "" {
				if _, err := config.LoadScenario(scenarioPath); err != nil {
					problems = append(problems, fmt.Sprintf("scenario invalid: %v", err))
				}
			}

			if len(problems) > 0 {
				for _, p := range problems {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), p)
				}
				return errors.New("doctor checks failed")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}

	cmd.Flags().StringVarP(&scenarioPath, "config", "c", "", "Also validate this scenario file")
	return cmd
}
