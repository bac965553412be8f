package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover_SortsAndSkipsNonSQL(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_b.sql", "001_a.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
	}

	files, err := discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a.sql", "002_b.sql"}, files)
}

func TestDiscover_RejectsDuplicateVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"001_a.sql", "001_b.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
	}

	_, err := discover(dir)
	assert.ErrorContains(t, err, "duplicate migration version 001")
}

func TestVersionOf(t *testing.T) {
	v, err := versionOf("003_add_index.sql")
	require.NoError(t, err)
	assert.Equal(t, "003", v)

	_, err = versionOf("noversion.sql")
	assert.Error(t, err)
}

func TestDiscover_ShipsLedgerSchema(t *testing.T) {
	files, err := discover(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	assert.Contains(t, files, "001_ledger_schema.sql")
}
