package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/solodevflow/solodev/internal/state"
)

// MarkdownFormatter outputs an archived iteration as a markdown report with
// YAML frontmatter.
type MarkdownFormatter struct {
	// MaxChanges caps the change log section (0 = all changes).
	MaxChanges int
}

// NewMarkdownFormatter creates a markdown formatter that lists every change.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format writes the iteration as markdown.
func (mf *MarkdownFormatter) Format(w io.Writer, it *state.HistoricalIteration) error {
	tmpl, err := template.New("iteration").Funcs(mf.templateFuncs()).Parse(markdownTemplate)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	return tmpl.Execute(w, mf.buildTemplateData(it))
}

// Extension returns the file extension for markdown.
func (mf *MarkdownFormatter) Extension() string {
	return ".md"
}

// templateData holds all data for the markdown template.
type templateData struct {
	// YAML frontmatter fields
	ID          string
	Version     string
	Status      string
	StartedAt   string
	CompletedAt string
	Tags        []string

	Goal    string
	Summary string
	GitTag  string
	Stats   *state.IterationStats

	Phases  []phaseRow
	Tasks   []state.Task
	Changes []state.Change
	Omitted int
}

type phaseRow struct {
	Name       string
	Status     string
	ApprovedBy string
	Modules    []moduleRow
}

type moduleRow struct {
	Name   string
	Status string
}

func (mf *MarkdownFormatter) buildTemplateData(it *state.HistoricalIteration) *templateData {
	data := &templateData{
		ID:          it.ID,
		Version:     it.Version,
		Status:      string(it.Status),
		StartedAt:   it.StartedAt,
		CompletedAt: it.CompletedAt,
		Tags:        []string{"solodev", "iteration", it.ID},
		Goal:        it.Goal,
		Summary:     it.Summary,
		GitTag:      it.GitTag,
		Stats:       it.Stats,
		Tasks:       it.Tasks,
		Changes:     it.ChangeHistory,
	}
	for _, p := range state.AllPhases() {
		ps := it.Phases.Get(p)
		if ps == nil {
			continue
		}
		row := phaseRow{Name: p.String(), Status: string(ps.Status), ApprovedBy: ps.ApprovedBy}
		for _, name := range ps.ModuleNames() {
			row.Modules = append(row.Modules, moduleRow{Name: name, Status: string(ps.Modules[name].Status)})
		}
		data.Phases = append(data.Phases, row)
	}
	if mf.MaxChanges > 0 && len(data.Changes) > mf.MaxChanges {
		data.Omitted = len(data.Changes) - mf.MaxChanges
		data.Changes = data.Changes[len(data.Changes)-mf.MaxChanges:]
	}
	return data
}

// templateFuncs returns custom template functions.
func (mf *MarkdownFormatter) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"code": func(s string) string {
			return "`" + s + "`"
		},
		"modules": func(rows []moduleRow) string {
			if len(rows) == 0 {
				return "-"
			}
			parts := make([]string, len(rows))
			for i, r := range rows {
				parts[i] = fmt.Sprintf("%s (%s)", r.Name, r.Status)
			}
			return strings.Join(parts, ", ")
		},
		"orDash": func(s string) string {
			if s == "" {
				return "-"
			}
			return s
		},
	}
}

const markdownTemplate = `---
iteration: {{ .ID }}
version: {{ .Version }}
status: {{ .Status }}
started_at: {{ .StartedAt }}
completed_at: {{ .CompletedAt }}
tags:
{{- range .Tags }}
  - {{ . }}
{{- end }}
---

# {{ .ID }} ({{ .Version }})

{{- if .Goal }}

**Goal:** {{ .Goal }}
{{- end }}
{{- if .GitTag }}
**Tag:** {{ code .GitTag }}
{{- end }}

{{- if .Summary }}

## Summary

{{ .Summary }}
{{- end }}

## Phases

| Phase | Status | Approved by | Modules |
|-------|--------|-------------|---------|
{{- range .Phases }}
| {{ .Name }} | {{ .Status }} | {{ orDash .ApprovedBy }} | {{ modules .Modules }} |
{{- end }}

{{- with .Stats }}

## Stats

- **Modules:** {{ .TotalModules }}
- **Tasks:** {{ .TotalTasks }}
- **Rollbacks:** {{ .RollbackCount }}
- **Duration:** {{ .DurationDays }} days
{{- end }}

{{- if .Tasks }}

## Tasks

{{- range .Tasks }}
- [{{ if .CompletedAt }}x{{ else }} {{ end }}] {{ .Title }} ({{ .Priority }})
{{- end }}
{{- end }}

{{- if .Changes }}

## Changes
{{- if .Omitted }}

_{{ .Omitted }} earlier changes omitted_
{{- end }}

{{- range .Changes }}
- {{ .Timestamp }} {{ code (print .Type) }} {{ .Description }}
{{- end }}
{{- end }}
`
