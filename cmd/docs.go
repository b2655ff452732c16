package cmd

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GraphiteEditor/graphdoc/internal/document"
	"github.com/GraphiteEditor/graphdoc/internal/registry"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage the document store",
}

var docsImportName string

var docsImportCmd = &cobra.Command{
	Use:   "import <document.json>",
	Short: "Import a document file into the store",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsImport,
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE:  runDocsList,
}

var docsShowOutput string

var docsShowCmd = &cobra.Command{
	Use:   "show <guid>",
	Short: "Print a stored document's registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsShow,
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <guid>",
	Short: "Delete a stored document and its history",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsDelete,
}

func init() {
	docsImportCmd.Flags().StringVar(&docsImportName, "name", "",
		"document name (default: file name)")
	docsShowCmd.Flags().StringVarP(&docsShowOutput, "output", "o", "yaml",
		"output format: json or yaml")
	docsCmd.AddCommand(docsImportCmd, docsListCmd, docsShowCmd, docsDeleteCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsImport(cmd *cobra.Command, args []string) error {
	network, err := loadNetwork(args[0])
	if err != nil {
		return err
	}
	reg, err := registry.FromNetwork(network)
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	name := docsImportName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	}
	record := &document.Record{Name: name, Registry: reg}
	if err := db.DocumentStore().Save(record); err != nil {
		return err
	}
	cmd.Printf("imported %s as %s\n", name, record.GUID)
	return nil
}

func runDocsList(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	records, err := db.DocumentStore().List()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		cmd.Println("no documents")
		return nil
	}
	for _, record := range records {
		cmd.Printf("%s  %-24s  %d nodes  %s\n",
			record.GUID, record.Name,
			len(record.Registry.NodeInstances),
			record.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runDocsShow(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	record, err := db.DocumentStore().FindByGUID(args[0])
	if err != nil {
		return err
	}
	return renderOutput(cmd, record.Registry, docsShowOutput)
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.DocumentStore().Delete(args[0]); err != nil {
		return err
	}
	cmd.Printf("deleted %s\n", args[0])
	return nil
}
