package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sphinxnet/recommender/internal/app"
	"github.com/sphinxnet/recommender/internal/contract"
	"github.com/sphinxnet/recommender/survey"
)

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score [survey.json]",
		Short: "Rank the catalog for a survey",
		Long: `Rank the catalog for one survey read from a file, from --survey, or
from stdin when neither is given. Missing answers take their defaults.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			inline, _ := cmd.Flags().GetString("survey")

			raw, err := readSurvey(cmd, args, inline)
			if err != nil {
				return err
			}
			resp, err := survey.Parse(raw)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			result := a.Ranker.Recommend(cmd.Context(), resp)
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().String("survey", "", "Survey as an inline JSON object")
	return cmd
}

func readSurvey(cmd *cobra.Command, args []string, inline string) ([]byte, error) {
	switch {
	case inline != "":
		return []byte(inline), nil
	case len(args) == 1:
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("read survey: %w", err)
		}
		return raw, nil
	default:
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read survey from stdin: %w", err)
		}
		return raw, nil
	}
}

func printResult(w io.Writer, r contract.Result) {
	m := r.Metadata
	backend := m.ModelBackend
	if !m.ModelUsed {
		backend = "unavailable"
		if m.ModelUnavailable != "" {
			backend += " (" + m.ModelUnavailable + ")"
		}
	}
	fmt.Fprintf(w, "model: %s\n", backend)
	fmt.Fprintf(w, "source: %s, %d model + %d rule\n\n", m.RecommendationSrc, m.ModelCount, m.RuleCount)

	if len(r.Recommendations) == 0 {
		fmt.Fprintln(w, "No package cleared the thresholds.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPACKAGE\tQUOTA\tPRICE\tMATCH\tSOURCE")
	for i, rec := range r.Recommendations {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d%%\t%s\n",
			i+1, rec.Name, rec.QuotaLabel, rec.Price, rec.MatchPercentage, rec.Source)
	}
	_ = tw.Flush()
}
