package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/bookflow/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	assert.Contains(t, execute(t, "version"), "bookflow version")
}

func TestGraphCommand(t *testing.T) {
	assert.True(t, strings.HasPrefix(execute(t, "graph"), "graph TD"))

	var edges []graph.Edge
	require.NoError(t, json.Unmarshal([]byte(execute(t, "graph", "--format", "json")), &edges))
	assert.Len(t, edges, len(graph.DefaultEdges))
}

func TestMigrateCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "shop.db")
	assert.Contains(t, execute(t, "migrate", "--path", db, "--seed"), "Seeded")
}
