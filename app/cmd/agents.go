package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newAgentsCmd lists the registered agent types.
func newAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List available agent types",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(ensureWorkspace())
			if err != nil {
				return err
			}
			defer rt.Close()
			def := rt.defaultAgent()
			for _, info := range rt.registry.ListTypes() {
				marker := " "
				if info.Tag == def {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n    %s\n", marker, headerStyle.Render(info.Tag), dimStyle.Render(info.Description))
			}
			return nil
		},
	}
}

// newToolsCmd lists the enabled tools.
func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List enabled tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(ensureWorkspace())
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.tools.Len() == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tools enabled.")
				return nil
			}
			for _, tool := range rt.tools.List() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", headerStyle.Render(tool.Name()), tool.Description())
			}
			return nil
		},
	}
}
