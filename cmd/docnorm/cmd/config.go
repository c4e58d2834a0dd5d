package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/docnorm/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and generate configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write a configuration file with all defaults",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.ConfigFileName + ".yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.GenerateDefaultConfigFile(path); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show where configuration files are searched",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(config.SearchPaths(), "\n"))
		if configLoader != nil && configLoader.ConfigFileUsed() != "" {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "in use: %s\n", configLoader.ConfigFileUsed())
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configPathsCmd)
	rootCmd.AddCommand(configCmd)
}
