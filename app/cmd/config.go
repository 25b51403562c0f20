package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or modify the workspace config",
	}
	cmd.AddCommand(
		newConfigGetCmd(),
		newConfigSetCmd(),
		newConfigUnsetCmd(),
		newConfigShowCmd(),
		newConfigPathCmd(),
	)
	return cmd
}

// newConfigGetCmd prints a dotted key. Keys the workspace file leaves out
// resolve against the merged config, so defaults and env overrides show too.
func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Read a config value by dotted key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			data, err := readConfigMap(cfgFile)
			if err != nil {
				return err
			}
			if value, ok := getConfigValue(data, key); ok {
				fmt.Fprintln(cmd.OutOrStdout(), prettyValue(value))
				return nil
			}
			effective, err := effectiveConfigMap(globalCfg)
			if err != nil {
				return err
			}
			value, ok := getConfigValue(effective, key)
			if !ok {
				return fmt.Errorf("key %s not found", key)
			}
			fmt.Fprintln(cmd.OutOrStdout(), prettyValue(value))
			return nil
		},
	}
}

// newConfigSetCmd writes a dotted key into the workspace file. The edited
// file must still decode into the config schema.
func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Update a config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editConfig(cmd, args[0], func(data map[string]interface{}) error {
				return setConfigValue(data, args[0], parseValue(args[1]))
			}, "updated")
		},
	}
}

func newConfigUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset [key]",
		Short: "Remove a value so the default applies again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editConfig(cmd, args[0], func(data map[string]interface{}) error {
				if !unsetConfigValue(data, args[0]) {
					return fmt.Errorf("key %s not set in %s", args[0], cfgFile)
				}
				return nil
			}, "removed")
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the merged config with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if globalCfg == nil {
				return fmt.Errorf("config not loaded")
			}
			shown := *globalCfg
			if shown.Model.APIKey != "" {
				shown.Model.APIKey = "****"
			}
			raw, err := yaml.Marshal(&shown)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(raw)
			return err
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), cfgFile)
			return nil
		},
	}
}

func editConfig(cmd *cobra.Command, key string, edit func(map[string]interface{}) error, verb string) error {
	data, err := readConfigMap(cfgFile)
	if err != nil {
		return err
	}
	if err := edit(data); err != nil {
		return err
	}
	if err := validateConfigMap(data); err != nil {
		return err
	}
	if err := writeConfigMap(cfgFile, data); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", key, verb)
	return nil
}
