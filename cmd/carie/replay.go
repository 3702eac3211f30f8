package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mohammad-safakhou/carie/internal/agent/react"
	"github.com/mohammad-safakhou/carie/internal/logging"
	"github.com/mohammad-safakhou/carie/internal/trace"
	"github.com/spf13/cobra"
)

func replayCmd(a *app) *cobra.Command {
	var recent int
	cmd := &cobra.Command{
		Use:   "replay [run_id]",
		Short: "Re-run a captured trace and report divergence",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.Trace.Enabled {
				return errors.New("trace capture is disabled (trace.enabled)")
			}
			asst, err := a.assistant(cmd.Context())
			if err != nil {
				return err
			}
			defer asst.Close()

			if len(args) == 0 {
				traces, err := asst.Traces.Recent(cmd.Context(), recent)
				if err != nil {
					return err
				}
				return listTraces(cmd.OutOrStdout(), traces)
			}

			t, err := asst.Traces.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			policy, err := react.ParseInvocationErrorPolicy(a.cfg.Planner.InvocationErrorPolicy)
			if err != nil {
				return err
			}
			rep, err := trace.Replay(cmd.Context(), asst.Plan, t,
				react.WithLogger(logging.Component(a.logger, "replay")),
				react.WithInvocationErrorPolicy(policy),
				react.WithDuplicateActionGuard(a.cfg.Planner.DuplicateActionGuard),
			)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), rep)
			if !rep.Match() {
				return fmt.Errorf("replay of %s diverged", rep.RunID)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&recent, "recent", 10, "number of traces to list when no run id is given")
	return cmd
}

func listTraces(w io.Writer, traces []trace.Trace) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tRECORDED\tSTATUS\tHOPS\tRESULT")
	for _, t := range traces {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", t.RunID, t.RecordedAt.Format("2006-01-02 15:04:05"), t.Status, t.Hops, t.Result)
	}
	return tw.Flush()
}

func printReport(w io.Writer, rep trace.Report) {
	fmt.Fprintf(w, "run %s\n", rep.RunID)
	fmt.Fprintf(w, "  recorded: %s %q\n", rep.Original.Status, rep.Original.Result)
	fmt.Fprintf(w, "  replayed: %s %q\n", rep.Replayed.Status, rep.Replayed.Value)
	if rep.Match() {
		fmt.Fprintln(w, "  match")
		return
	}
	replayed := rep.Replayed.State
	original := rep.Original.State()
	for _, name := range rep.Diverged {
		was, _ := original.Get(name)
		now, _ := replayed.Get(name)
		fmt.Fprintf(w, "  %s:\n    - %s\n    + %s\n", name, was, now)
	}
}
