package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, dsn string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--dsn", dsn}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestLedgerCommands(t *testing.T) {
	dsn := "sqlite3://" + filepath.Join(t.TempDir(), "books", "ledger.db")

	out, err := run(t, dsn, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Ledger ready")

	out, err = run(t, dsn, "add", "--date", "2024-03-14", "--item", "Paper", "--amount", "12.5", "--type", "debit")
	require.NoError(t, err)
	assert.Contains(t, out, "Added transaction 1")

	_, err = run(t, dsn, "add", "--item", "Invoice 7", "--company", "Acme Corp", "--amount", "300", "--type", "CREDIT", "--notes", "paid")
	require.NoError(t, err)

	out, err = run(t, dsn, "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "Invoice 7")
	assert.Contains(t, lines[1], "Acme Corp")
	assert.Contains(t, lines[1], "credit")
	assert.Contains(t, lines[2], "2024-03-14")
	assert.Contains(t, lines[2], "12.50")
}

func TestAddRejectsInvalidInput(t *testing.T) {
	dsn := "sqlite3://" + filepath.Join(t.TempDir(), "ledger.db")

	_, err := run(t, dsn, "add", "--item", "Paper", "--amount", "0", "--type", "debit")
	assert.Error(t, err)

	_, err = run(t, dsn, "add", "--item", "Paper", "--amount", "5")
	assert.Error(t, err, "type is required")

	out, err := run(t, dsn, "list")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1)
}

func TestUnsupportedDSN(t *testing.T) {
	_, err := run(t, "postgres://localhost/ledger", "list")
	assert.Error(t, err)
}
