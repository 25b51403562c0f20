package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lexcodex/orchestrate/agents"
)

var (
	cfgFile   string
	workspace string
	logLevel  string

	globalCfg *agents.GlobalConfig
)

// Execute is the entry point for the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd wires the cobra tree.
func NewRootCmd() *cobra.Command {
	cfgFile, workspace, logLevel, globalCfg = "", "", "", nil
	root := &cobra.Command{
		Use:           "orchestrate",
		Short:         "Run ReAct, planner and composite agents against a language model",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if workspace == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				workspace = wd
			}
			if cfgFile == "" {
				cfgFile = agents.DefaultConfigPath(workspace)
			}
			cfg, err := agents.LoadGlobalConfig(cfgFile, workspace)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			globalCfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&workspace, "workspace", "", "Workspace directory")
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file (default <workspace>/.orchestrate/config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug|info|warn|error)")

	root.AddCommand(
		newRunCmd(),
		newPlanCmd(),
		newAgentsCmd(),
		newToolsCmd(),
		newHistoryCmd(),
		newServeCmd(),
		newConfigCmd(),
	)
	return root
}
