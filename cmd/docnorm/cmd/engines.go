package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "List the recognition engines available with the current configuration",
	Long: `Engines lists the registered recognition engines. Remote engines appear
once their API key is configured, e.g. via DOCNORM_ENGINES_CLAUDE_API_KEY.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := GetConfig()
		dispatcher, err := buildDispatcher(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, name := range dispatcher.Registry().Names() {
			marker := " "
			if name == cfg.OCR.DefaultEngine {
				marker = "*"
			}
			_, _ = fmt.Fprintf(out, "%s %s\n", marker, name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enginesCmd)
}
