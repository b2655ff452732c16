package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GraphiteEditor/graphdoc/internal/graph"
	"github.com/GraphiteEditor/graphdoc/internal/proto"
)

// writeNetworkFile marshals a two-node document to a temp file and returns
// its path.
func writeNetworkFile(t *testing.T, dir, name string, network *graph.NodeNetwork) string {
	t.Helper()
	data, err := json.Marshal(network)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func testNetwork() *graph.NodeNetwork {
	network := graph.NewNetwork(graph.NodeRef{NodeID: 1})
	network.Nodes[0] = graph.NewNode("graphene_core::structural::ConsNode",
		graph.ValueInput{Value: graph.U32Value(2)},
		graph.ValueInput{Value: graph.U32Value(3)},
	)
	network.Nodes[1] = graph.NewNode("graphene_core::ops::AddPairNode",
		graph.NodeRef{NodeID: 0},
	)
	return network
}

// execute runs the root command with the given arguments and returns the
// captured output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCompileCommand(t *testing.T) {
	dir := t.TempDir()
	docPath := writeNetworkFile(t, dir, "doc.json", testNetwork())

	out, err := execute(t, "compile", docPath, "--output", "json")
	require.NoError(t, err)

	var resolved proto.Network
	require.NoError(t, json.Unmarshal([]byte(out), &resolved))
	require.Equal(t, graph.NodeID(1), resolved.Output)
	require.Len(t, resolved.Nodes, 2)
}

func TestCompileCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "compile", filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestCompileCommand_BadOutputFormat(t *testing.T) {
	dir := t.TempDir()
	docPath := writeNetworkFile(t, dir, "doc.json", testNetwork())

	_, err := execute(t, "compile", docPath, "--output", "toml")
	require.Error(t, err)
	require.Contains(t, err.Error(), "toml")
}

func TestDumpCommand(t *testing.T) {
	dir := t.TempDir()
	docPath := writeNetworkFile(t, dir, "doc.json", testNetwork())

	out, err := execute(t, "dump", docPath, "--output", "yaml")
	require.NoError(t, err)
	require.Contains(t, out, "nodeDeclarations")
	require.Contains(t, out, "exportedNodes")
}

func TestDiffCommand(t *testing.T) {
	dir := t.TempDir()
	before := writeNetworkFile(t, dir, "before.json", testNetwork())

	changed := testNetwork()
	changed.Nodes[0].Inputs[1] = graph.ValueInput{Value: graph.U32Value(7)}
	after := writeNetworkFile(t, dir, "after.json", changed)

	out, err := execute(t, "diff", before, after)
	require.NoError(t, err)
	require.NotEmpty(t, out)
}

func TestDocsImportListDelete(t *testing.T) {
	dir := t.TempDir()
	docPath := writeNetworkFile(t, dir, "doc.json", testNetwork())
	dbPath := filepath.Join(dir, "store.db")

	out, err := execute(t, "--db", dbPath, "docs", "import", docPath, "--name", "demo")
	require.NoError(t, err)
	require.Contains(t, out, "imported demo as ")
	guid := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), "imported demo as"))

	out, err = execute(t, "--db", dbPath, "docs", "list")
	require.NoError(t, err)
	require.Contains(t, out, "demo")
	require.Contains(t, out, guid)

	out, err = execute(t, "--db", dbPath, "docs", "show", guid, "--output", "json")
	require.NoError(t, err)
	require.Contains(t, out, "nodeInstances")

	out, err = execute(t, "--db", dbPath, "docs", "delete", guid)
	require.NoError(t, err)
	require.Contains(t, out, "deleted")

	_, err = execute(t, "--db", dbPath, "docs", "show", guid)
	require.Error(t, err)
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	require.Contains(t, out, "wrote")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "compiler:")

	// Second run leaves the existing file alone.
	out, err = execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	require.Contains(t, out, "already exists")
}
