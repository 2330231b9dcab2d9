package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sphinxnet/recommender/internal/app"
	"github.com/sphinxnet/recommender/internal/config"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently stored survey submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")
			dbPath, _ := cmd.Flags().GetString("db")

			if dbPath == "" {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				dbPath = cfg.Store.Path
			}

			db, err := app.OpenStore(config.StoreConfig{Path: dbPath}, nil)
			if err != nil {
				return err
			}
			defer db.Close()

			recs, err := db.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), recs)
			}
			if len(recs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No stored submissions.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tWHEN\tREQUEST\tMODEL\tTOP PACKAGES")
			for _, r := range recs {
				names := make([]string, 0, 3)
				for i, rec := range r.Recommendations {
					if i == 3 {
						break
					}
					names = append(names, rec.Name)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n",
					r.ID, r.CreatedAt.Local().Format(time.DateTime), r.RequestID, r.ModelUsed, strings.Join(names, ", "))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "Number of submissions to show")
	cmd.Flags().String("db", "", "Survey database (default: store.path from config)")
	return cmd
}
