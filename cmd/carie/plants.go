package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/mohammad-safakhou/carie/internal/plants"
	"github.com/spf13/cobra"
)

func plantsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plants",
		Short: "Inspect and seed plant data",
	}
	cmd.AddCommand(plantsListCmd(a), plantsSeedCmd(a))
	return cmd
}

func plantsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List plants from the configured source with their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			asst, err := a.assistant(cmd.Context())
			if err != nil {
				return err
			}
			defer asst.Close()

			list, err := asst.Plants.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSPECIES\tSTATUS")
			for _, p := range list {
				s := p.Summary()
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, s.ScientificName, s.Status)
			}
			return tw.Flush()
		},
	}
}

func plantsSeedCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Validate a plants JSON file and upsert it into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = a.cfg.Plants.File
			}
			list, err := plants.FileSource{Path: file}.Load(cmd.Context())
			if err != nil {
				return err
			}
			pg, err := plants.OpenPostgres(cmd.Context(), a.cfg.Storage.Postgres.DSN())
			if err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			defer pg.Close()
			for _, p := range list {
				if err := pg.Insert(cmd.Context(), p); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d plants from %s\n", len(list), file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "plants JSON file (default plants.file)")
	return cmd
}
