package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sphinxnet/recommender/encode"
	"github.com/sphinxnet/recommender/survey"
)

type encodedField struct {
	Field string  `json:"field"`
	Value float64 `json:"value"`
}

func newEncodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode [survey.json]",
		Short: "Show the feature vector a survey encodes to",
		Args:  cobra.MaximumNArgs(1),
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

			enc := encode.NewEncoder(encode.DefaultTables())
			vec := enc.Encode(resp)
			fields := enc.Schema().Fields()

			out := make([]encodedField, len(fields))
			for i, f := range fields {
				out[i] = encodedField{Field: f, Value: vec[i]}
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tVALUE")
			for _, f := range out {
				fmt.Fprintf(tw, "%s\t%g\n", f.Field, f.Value)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("survey", "", "Survey as an inline JSON object")
	return cmd
}
