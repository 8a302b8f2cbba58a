package formatter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_BasicOutput(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "MODULE", "STATUS", "PRIORITY")
	tbl.AddRow("auth", "approved", "P0")
	tbl.AddRow("billing", "in_progress", "P1")
	require.NoError(t, tbl.Render())

	assert.Equal(t, strings.Join([]string{
		"MODULE   STATUS       PRIORITY",
		"------   ------       --------",
		"auth     approved     P0",
		"billing  in_progress  P1",
	}, "\n")+"\n", buf.String())
	assert.Equal(t, 2, tbl.Len())
}

func TestTable_EmptyTable(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "A", "B")
	require.NoError(t, tbl.Render())
	assert.Zero(t, buf.Len(), "no rows means no output at all")
}

func TestTable_MaxWidth(t *testing.T) {
	tests := []struct {
		name  string
		width int
		in    string
		want  string
	}{
		{"truncated", 8, "abcdefghijklmnop", "abcde..."},
		{"fits", 8, "abcd", "abcd"},
		{"tiny limit", 2, "abcdef", "ab"},
		{"unlimited", 0, "abcdefghijklmnop", "abcdefghijklmnop"},
		{"multibyte", 4, "需求分析阶段", "需..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tbl := NewTable(&buf, "ID", "VALUE")
			tbl.SetMaxWidth(0, tt.width)
			tbl.AddRow(tt.in, "ok")
			require.NoError(t, tbl.Render())

			lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
			require.Len(t, lines, 3)
			assert.True(t, strings.HasPrefix(lines[2], tt.want+" "), lines[2])
		})
	}
}

func TestTable_MissingAndExtraValues(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "A", "B", "C")
	tbl.AddRow("only-one")
	tbl.AddRow("1", "2", "3", "4")
	require.NoError(t, tbl.Render())

	out := buf.String()
	assert.Contains(t, out, "only-one\n", "trailing empty cells are trimmed")
	assert.NotContains(t, out, "4")
}

func TestTable_StyledCellsAlign(t *testing.T) {
	styled := lipgloss.NewStyle().Bold(true).Render("approved")

	var buf bytes.Buffer
	tbl := NewTable(&buf, "STATUS", "NEXT")
	tbl.AddRow(styled, "x")
	tbl.AddRow("pending", "y")
	require.NoError(t, tbl.Render())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	for _, l := range lines[2:] {
		assert.Equal(t, 11, lipgloss.Width(l), "visible width ignores escape codes: %q", l)
	}
}
