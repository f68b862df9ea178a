package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bcnelson/guacamole-csv-importer/internal/domain"
	"github.com/bcnelson/guacamole-csv-importer/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatError(t *testing.T) {
	out := FormatError("Import failed", "authentication failed", "check GUACAMOLE_USERNAME")
	assert.Contains(t, out, "Error: Import failed")
	assert.Contains(t, out, "authentication failed")
	assert.Contains(t, out, "Hint: check GUACAMOLE_USERNAME")

	out = FormatError("Import failed", "", "")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	Summary(&buf, domain.RunStatusPartial, 2, 1, 1, 4)
	assert.Contains(t, buf.String(), "Imported 2/4 connections")
	assert.Contains(t, buf.String(), "1 skipped, 1 failed")

	buf.Reset()
	Summary(&buf, domain.RunStatusSuccess, 3, 0, 0, 3)
	assert.Contains(t, buf.String(), "Imported 3/3 connections")
	assert.NotContains(t, buf.String(), "skipped")
}

func TestOutcomesListsFailuresOnly(t *testing.T) {
	var buf bytes.Buffer
	Outcomes(&buf, []domain.EntryOutcome{
		{Line: 2, Path: "ROOT/Office", DeviceName: "PC1", Status: domain.OutcomeCreated},
		{Line: 3, Path: "ROOT/Office", DeviceName: "PC2", Status: domain.OutcomeFailed, Error: "HTTP 500"},
	})
	assert.NotContains(t, buf.String(), "PC1")
	assert.Contains(t, buf.String(), "line 3: ROOT/Office / PC2")
	assert.Contains(t, buf.String(), "HTTP 500")
}

func TestTree(t *testing.T) {
	tr := tree.New()
	lab, err := tr.AppendGroup(tr.Root(), domain.GroupRecord{Name: "Lab", Identifier: "1"})
	require.NoError(t, err)
	_, err = tr.AppendConnection(lab, domain.ConnectionRecord{Name: "Server1", Identifier: "10"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Tree(&buf, tr))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "- Group: ROOT (ID: ROOT)")
	assert.True(t, strings.HasPrefix(lines[1], "  "))
	assert.Contains(t, lines[1], "- Group: Lab (ID: 1)")
	assert.True(t, strings.HasPrefix(lines[2], "    "))
	assert.Contains(t, lines[2], "* Connection: Server1 (ID: 10)")
}

func TestHistory(t *testing.T) {
	var buf bytes.Buffer
	History(&buf, nil)
	assert.Contains(t, buf.String(), "No import runs recorded.")

	buf.Reset()
	History(&buf, []*domain.ImportRun{{
		ID:         "0b7c1f9e-2f1a-4c55-9d1e-6a4f3e2b1c0d",
		Source:     "connections.csv",
		DryRun:     true,
		Status:     domain.RunStatusPartial,
		Successful: 1,
		Total:      2,
		StartedAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}})
	out := buf.String()
	assert.Contains(t, out, "0b7c1f9e-2f1a-4c55-9d1e-6a4f3e2b1c0d")
	assert.Contains(t, out, "partial")
	assert.Contains(t, out, "1/2")
	assert.Contains(t, out, "connections.csv")
	assert.Contains(t, out, "(dry run)")
}
