package cmd

import (
	"github.com/spf13/cobra"

	"github.com/GraphiteEditor/graphdoc/internal/registry"
)

var dumpOutput string

var dumpCmd = &cobra.Command{
	Use:   "dump <document.json>",
	Short: "Print a document's flat registry form",
	Long:  `Dump converts a nested document into the flat registry form used for storage and sync, and prints it.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpOutput, "output", "o", "yaml",
		"output format: json or yaml")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	network, err := loadNetwork(args[0])
	if err != nil {
		return err
	}
	reg, err := registry.FromNetwork(network)
	if err != nil {
		return err
	}
	return renderOutput(cmd, reg, dumpOutput)
}
