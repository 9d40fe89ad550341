package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCLIDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateCLIDocs(dir))

	for _, name := range []string{"index", "extract", "history", "history-rm", "show", "repl", "watch", "dialects"} {
		assert.FileExists(t, filepath.Join(dir, name+".md"))
	}

	index, err := os.ReadFile(filepath.Join(dir, "index.md"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "LEAPLINEAGE_DIALECT")
	assert.Contains(t, string(index), "(/cli/history)")
	assert.Contains(t, string(index), "`--dialect`")

	extract, err := os.ReadFile(filepath.Join(dir, "extract.md"))
	require.NoError(t, err)
	assert.Contains(t, string(extract), "leaplineage extract")
	assert.Contains(t, string(extract), "`--strict`")
	assert.NotContains(t, string(extract), "`--dialect`", "global flags are documented on the index")
}

func TestGenerateDialectDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateDialectDocs(dir))

	page, err := os.ReadFile(filepath.Join(dir, "dialects.md"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "`snowflake`")
	assert.Contains(t, string(page), "(default)")
}

func TestCleanExample(t *testing.T) {
	assert.Equal(t, "a\n  b", cleanExample("    a\n      b\n"))
	assert.Equal(t, "x", cleanExample("x"))
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "a | b c", cleanDescription("a | b\n  c"))
}
