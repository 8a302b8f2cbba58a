package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/solodevflow/solodev/internal/command"
	"github.com/solodevflow/solodev/internal/ui"
)

// writeJSON encodes v with a two-space indent.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// writeYAML encodes v as YAML. Values go through JSON first so field names
// follow the json tags.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

// writeStructured writes v as YAML when format is yaml, JSON otherwise.
func writeStructured(w io.Writer, format string, v any) error {
	if format == "yaml" {
		return writeYAML(w, v)
	}
	return writeJSON(w, v)
}

// resultOutput is the machine-readable form of a command result.
type resultOutput struct {
	Command    string         `json:"command"`
	Success    bool           `json:"success"`
	Message    string         `json:"message"`
	Error      string         `json:"error,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	NextAction string         `json:"nextAction,omitempty"`
}

// renderResult prints res for command name in the requested format.
func renderResult(w io.Writer, format, name string, res *command.Result) error {
	if format == "json" || format == "yaml" {
		out := resultOutput{
			Command:    name,
			Success:    res.Success,
			Message:    res.Message,
			Details:    res.Details,
			NextAction: res.NextAction,
		}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		return writeStructured(w, format, out)
	}

	var b strings.Builder
	if res.Success {
		b.WriteString(ui.SuccessTitle.Render(ui.IconPass + " /" + name + " succeeded"))
	} else {
		b.WriteString(ui.FailureTitle.Render(ui.IconFail + " /" + name + " failed"))
	}
	b.WriteString("\n" + ui.Rule() + "\n")
	b.WriteString(res.Message + "\n")
	if !res.Success && res.Err != nil && !strings.Contains(res.Message, res.Err.Error()) {
		fmt.Fprintf(&b, "\n%s %s\n", ui.Fail("error:"), res.Err.Error())
	}

	if warnings, ok := res.Details["warnings"].([]string); ok {
		b.WriteString("\n")
		for _, warning := range warnings {
			b.WriteString(ui.WarnLine(warning) + "\n")
		}
	}

	if len(res.Details) > 0 {
		data, err := json.MarshalIndent(res.Details, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal details: %w", err)
		}
		fmt.Fprintf(&b, "\n%s\n%s\n", ui.Header("details"), data)
	}

	if res.NextAction != "" {
		b.WriteString("\n" + ui.NextLine(res.NextAction) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
