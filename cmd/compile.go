package cmd

import (
	"github.com/spf13/cobra"
)

var compileOutput string

var compileCmd = &cobra.Command{
	Use:   "compile <document.json>",
	Short: "Compile a document into an executor-ready proto-network",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompile,
}

func init() {
	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", "json",
		"output format: json or yaml")
	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	network, err := loadNetwork(args[0])
	if err != nil {
		return err
	}

	c, shutdown, err := newCompiler(cmd.Context())
	if err != nil {
		return err
	}
	defer shutdown()

	resolved, err := c.Compile(cmd.Context(), network)
	if err != nil {
		return err
	}
	return renderOutput(cmd, resolved, compileOutput)
}
