package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/mohammad-safakhou/carie/internal/assistant"
	"github.com/mohammad-safakhou/carie/internal/batch"
	"github.com/mohammad-safakhou/carie/internal/logging"
	"github.com/spf13/cobra"
)

func batchCmd(a *app) *cobra.Command {
	var file string
	var concurrency int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run one task per line of a file concurrently",
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			tasks, err := batch.ReadTasks(in, assistant.TaskField)
			if err != nil {
				return fmt.Errorf("read tasks: %w", err)
			}

			asst, err := a.assistant(cmd.Context())
			if err != nil {
				return err
			}
			defer asst.Close()

			if concurrency <= 0 {
				concurrency = a.cfg.Batch.Concurrency
			}
			opts := []batch.Option{
				batch.WithConcurrency(concurrency),
				batch.WithTaskTimeout(a.cfg.Planner.TaskTimeout),
				batch.WithLogger(logging.Component(a.logger, "batch")),
			}
			if asst.Metrics != nil {
				opts = append(opts, batch.WithMetrics(asst.Metrics.Batch()))
			}
			outcomes := batch.New(asst.Planner, opts...).Run(cmd.Context(), tasks)
			if asJSON {
				return writeOutcomesJSON(cmd.OutOrStdout(), outcomes)
			}
			return writeOutcomes(cmd.OutOrStdout(), outcomes)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "tasks file, one per line (- for stdin)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "tasks in flight (default batch.concurrency)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per task")
	return cmd
}

func writeOutcomes(w io.Writer, outcomes []batch.Outcome) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTATUS\tHOPS\tRESULT")
	for _, o := range outcomes {
		status, result, hops := string(o.Result.Status), o.Result.Value, 0
		if o.Result.State != nil {
			hops = o.Result.Hops()
		}
		if o.Err != nil {
			status, result = "error", o.Err.Error()
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", o.Index+1, status, hops, result)
	}
	return tw.Flush()
}

type outcomeView struct {
	Index  int     `json:"index"`
	Task   string  `json:"task"`
	Error  string  `json:"error,omitempty"`
	Run    runView `json:"run"`
	Millis int64   `json:"duration_ms"`
}

func writeOutcomesJSON(w io.Writer, outcomes []batch.Outcome) error {
	for _, o := range outcomes {
		v := outcomeView{Index: o.Index, Task: o.Task[assistant.TaskField], Millis: o.Duration.Milliseconds()}
		if o.Result.State != nil {
			v.Run = resultView(o.Result)
		}
		if o.Err != nil {
			v.Error = o.Err.Error()
		}
		if err := writeJSON(w, v); err != nil {
			return err
		}
	}
	return nil
}
