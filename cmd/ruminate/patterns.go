package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/casualjim/ruminate/patterns"
	"github.com/goccy/go-json"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newPatternsCmd() *cobra.Command {
	var verbose, schema bool
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "List the available reflection patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if schema {
				data, err := json.MarshalIndent(patterns.Schema(), "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tROUNDS\tDESCRIPTION")
			for _, p := range patterns.All() {
				name := p.Name
				if name == patterns.Default {
					name += "*"
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\n", color.CyanString(name), p.MaxRounds, p.Description)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if !verbose {
				return nil
			}
			for _, p := range patterns.All() {
				generate, critique, err := p.Instructions()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n%s\n%s\n%s\n%s\n",
					color.CyanString(p.Name), color.MagentaString("generate:"), generate, color.YellowString("critique:"), critique)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the instructions of every pattern")
	cmd.Flags().BoolVar(&schema, "schema", false, "print the JSON schema of pattern files")
	return cmd
}
