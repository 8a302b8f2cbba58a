package formatter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solodevflow/solodev/internal/state"
)

func TestMarkdownFormatter_Extension(t *testing.T) {
	assert.Equal(t, ".md", NewMarkdownFormatter().Extension())
}

func TestMarkdownFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewMarkdownFormatter().Format(&buf, sampleIteration()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "---\niteration: iteration-1\nversion: 0.1.0\n"), out)
	assert.Contains(t, out, "  - iteration-1\n---")
	assert.Contains(t, out, "# iteration-1 (0.1.0)")
	assert.Contains(t, out, "**Goal:** login & signup")
	assert.Contains(t, out, "**Tag:** `v0.1.0`")
	assert.Contains(t, out, "## Summary\n\nfirst release")
	assert.Contains(t, out, "| requirements | approved | alice | auth (approved), billing (approved) |")
	assert.Contains(t, out, "| implementation | approved | alice | - |")
	assert.Contains(t, out, "- **Duration:** 4 days")
	assert.Contains(t, out, "- [x] write PRD (P0)")
	assert.Contains(t, out, "- [ ] tune cache (P2)")
	assert.Contains(t, out, "- 2026-03-01T09:30:00.000Z `init` project initialized")
	assert.NotContains(t, out, "omitted")
}

func TestMarkdownFormatter_MaxChanges(t *testing.T) {
	var buf bytes.Buffer
	mf := &MarkdownFormatter{MaxChanges: 1}
	require.NoError(t, mf.Format(&buf, sampleIteration()))
	out := buf.String()

	assert.Contains(t, out, "_2 earlier changes omitted_")
	assert.Contains(t, out, "`iteration_completed` iteration completed")
	assert.NotContains(t, out, "project initialized")
}

func TestMarkdownFormatter_Minimal(t *testing.T) {
	it := &state.HistoricalIteration{ID: "iteration-2", Version: "0.2.0"}
	var buf bytes.Buffer
	require.NoError(t, NewMarkdownFormatter().Format(&buf, it))
	out := buf.String()

	assert.Contains(t, out, "# iteration-2 (0.2.0)")
	assert.NotContains(t, out, "## Summary")
	assert.NotContains(t, out, "## Stats")
	assert.NotContains(t, out, "## Tasks")
	assert.NotContains(t, out, "## Changes")
	assert.Contains(t, out, "## Phases")
}
