package cmd

import (
	"encoding/json"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/GraphiteEditor/graphdoc/internal/registry"
)

var diffCmd = &cobra.Command{
	Use:   "diff <before.json> <after.json>",
	Short: "Show what changed between two documents",
	Long:  `Diff converts both documents to the flat registry form and prints a line diff of their canonical encodings.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	before, err := registryText(args[0])
	if err != nil {
		return err
	}
	after, err := registryText(args[1])
	if err != nil {
		return err
	}

	dmp := diffmatchpatch.New()
	// Line-mode diff: char-map the lines first so the diff operates on
	// whole lines instead of characters.
	beforeChars, afterChars, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(beforeChars, afterChars, false), lines)
	cmd.Print(dmp.DiffPrettyText(diffs))
	return nil
}

// registryText renders a document's registry as indented canonical JSON,
// suitable for a line diff.
func registryText(path string) (string, error) {
	network, err := loadNetwork(path)
	if err != nil {
		return "", err
	}
	reg, err := registry.FromNetwork(network)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
