package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sphinxnet/recommender/catalog"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the package catalog in scoring order",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			category, _ := cmd.Flags().GetString("category")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			c, err := catalog.LoadFile(cfg.Catalog.Path)
			if err != nil {
				return err
			}

			pkgs := make([]catalog.Package, 0, c.Len())
			for _, p := range c.Packages() {
				if category == "" || p.Category == category {
					pkgs = append(pkgs, p)
				}
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), pkgs)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PACKAGE\tQUOTA\tPRICE\tCATEGORY")
			for _, p := range pkgs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.Name, p.QuotaLabel, p.Price, p.Category)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("category", "", "Only list packages in this category")
	return cmd
}
