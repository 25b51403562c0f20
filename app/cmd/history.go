package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(ensureWorkspace())
			if err != nil {
				return err
			}
			defer rt.Close()
			records, err := rt.runs.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistory(records))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	cmd.AddCommand(newHistoryShowCmd())
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(ensureWorkspace())
			if err != nil {
				return err
			}
			defer rt.Close()
			record, err := rt.runs.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(record)
			}
			fmt.Fprintf(out, "%s %s\n", headerStyle.Render("Task:"), record.Task)
			fmt.Fprintf(out, "%s %s · %s\n", dimStyle.Render("Agent:"), record.Agent, record.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			if record.Result != nil {
				for i := range record.Result.Trace {
					fmt.Fprintln(out, renderStep(&record.Result.Trace[i]))
				}
				fmt.Fprintln(out, renderResult(record.Result))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the record as JSON")
	return cmd
}
