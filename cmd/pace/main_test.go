package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command against dbPath and returns its output.
// Flags keep their values between runs, so callers pass every flag they rely on.
func run(t *testing.T, dbPath string, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--db", dbPath, "--user", "u1", "--log-level", "error"}, args...))

	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestCommands_EndToEnd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pace.db")

	out := run(t, dbPath, "migrate", "--status=false")
	assert.Contains(t, out, "schema version")

	out = run(t, dbPath, "schedule", "set", "1111100", "--year", "2025")
	assert.Contains(t, out, "Saved schedule for 2025")

	run(t, dbPath, "exceptions", "add", "2025-12-29", "2026-01-01", "--reason", "holiday", "--on=false")
	out = run(t, dbPath, "exceptions", "list", "--year", "2025")
	assert.Contains(t, out, "2025-12-31")
	assert.Contains(t, out, "holiday")

	run(t, dbPath, "fields", "define", "calls", "--kind", "goal", "--label", "Calls", "--calc", "", "--integer")
	run(t, dbPath, "fields", "define", "calls", "--kind", "tracker", "--label", "Calls", "--calc", "", "--integer")
	out = run(t, dbPath, "fields", "list", "--kind", "")
	assert.Contains(t, out, "goal")
	assert.Contains(t, out, "tracker")

	out = run(t, dbPath, "goals", "set", "calls", "1,000", "--year", "2025")
	assert.Contains(t, out, "1,000")

	out = run(t, dbPath, "tracker", "set", "calls", "250", "--date", "2025-06-30")
	assert.Contains(t, out, "calls on 2025-06-30 = 250")

	out = run(t, dbPath, "dashboard", "--year", "2025", "--cutoff", "2025-12-26")
	assert.Contains(t, out, "Calls")
	assert.Contains(t, out, "750", "remaining calls")

	out = run(t, dbPath, "transactions", "add", "6,000", "--pending", "2025-04-21", "--description", "12 Elm St")
	assert.Contains(t, out, "Added 6,000 pending 2025-04-21")

	out = run(t, dbPath, "income", "show", "--year", "2025")
	assert.Contains(t, out, "2025-04-21")
	assert.Contains(t, out, "2025-12-31")

	out = run(t, dbPath, "income", "sync", "--year", "2025")
	assert.Contains(t, out, "Synced income for 2025")

	out = run(t, dbPath, "backup", "create", "--id", "snap", "--description", "before reset")
	assert.Contains(t, out, "Created backup snap")

	out = run(t, dbPath, "schedule", "reset", "--year", "2025", "--yes")
	assert.Contains(t, out, "Reset schedule for 2025")

	out = run(t, dbPath, "backup", "list")
	assert.Contains(t, out, "snap")
	assert.Contains(t, out, "auto")
}

func TestCommands_UserErrors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pace.db")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)

	tests := []struct {
		name string
		args []string
	}{
		{name: "bad weekdays", args: []string{"schedule", "set", "11111", "--year", "2025"}},
		{name: "bad date", args: []string{"exceptions", "add", "12/29/2025", "2026-01-01"}},
		{name: "exception spans new year", args: []string{"exceptions", "add", "2025-12-30", "2026-01-03"}},
		{name: "bad kind", args: []string{"fields", "define", "x", "--kind", "weekly"}},
		{name: "bad amount", args: []string{"transactions", "add", "lots"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd.SetArgs(append([]string{"--db", dbPath, "--user", "u1", "--log-level", "error"}, tt.args...))
			require.Error(t, rootCmd.Execute())
		})
	}
}
