package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mohammad-safakhou/carie/internal/agent/react"
	"github.com/spf13/cobra"
)

func askCmd(a *app) *cobra.Command {
	var asJSON, showTrace bool
	cmd := &cobra.Command{
		Use:   "ask <task>",
		Short: "Run one task through the planner",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asst, err := a.assistant(cmd.Context())
			if err != nil {
				return err
			}
			defer asst.Close()

			res, err := asst.Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), resultView(res))
			}
			printResult(cmd.OutOrStdout(), res, showTrace)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result and trace as JSON")
	cmd.Flags().BoolVar(&showTrace, "trace", false, "print every field of the run")
	return cmd
}

type runView struct {
	RunID  string        `json:"run_id"`
	Status react.Status  `json:"status"`
	Result string        `json:"result"`
	Hops   int           `json:"hops"`
	Trace  []react.Entry `json:"trace"`
}

func resultView(res react.Result) runView {
	return runView{RunID: res.RunID, Status: res.Status, Result: res.Value, Hops: res.Hops(), Trace: res.State.Entries()}
}

func printResult(w io.Writer, res react.Result, showTrace bool) {
	if showTrace {
		for _, e := range res.State.Entries() {
			fmt.Fprintf(w, "%s: %s\n", e.Name, e.Value)
		}
		fmt.Fprintln(w)
	}
	if res.Status == react.StatusExhausted {
		fmt.Fprintf(w, "no answer after %d hops (run %s)\n", res.Hops(), res.RunID)
		return
	}
	fmt.Fprintln(w, res.Value)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
