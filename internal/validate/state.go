// Package validate checks the state file and the cross-references between
// project documents.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/solodevflow/solodev/internal/fileio"
	"github.com/solodevflow/solodev/internal/state"
)

// RequiredStateFields are the dotted paths every state file must contain.
var RequiredStateFields = []string{
	"schema_version",
	"project",
	"project.name",
	"currentIteration",
	"iterations",
	"moduleDependencies",
	"metadata",
}

// StateResult is the outcome of ValidateStateFile.
type StateResult struct {
	Valid    bool     `json:"valid"`
	Path     string   `json:"path"`
	Errors   []error  `json:"errors"`
	Warnings []string `json:"warnings"`
	// SizeKB is the size of the state file, zero when it could not be read.
	SizeKB float64 `json:"sizeKB"`
}

// StateOption configures ValidateStateFile.
type StateOption func(*stateConfig)

type stateConfig struct {
	path          string
	sizeWarningKB float64
	sizeLimitKB   float64
}

// WithStatePath overrides the state file path relative to the project root.
func WithStatePath(p string) StateOption {
	return func(c *stateConfig) {
		if p != "" {
			c.path = p
		}
	}
}

// WithSizeThresholds overrides the size warning and limit in KB.
func WithSizeThresholds(warnKB, limitKB float64) StateOption {
	return func(c *stateConfig) {
		if warnKB > 0 {
			c.sizeWarningKB = warnKB
		}
		if limitKB > 0 {
			c.sizeLimitKB = limitKB
		}
	}
}

// ValidateStateFile checks that the state file exists, parses as JSON,
// carries every required field and stays below the size limits.
func ValidateStateFile(fio *fileio.FileIO, opts ...StateOption) *StateResult {
	cfg := stateConfig{
		path:          state.DefaultBaseDir + "/" + state.StateFile,
		sizeWarningKB: state.DefaultSizeWarningKB,
		sizeLimitKB:   state.DefaultSizeLimitKB,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	res := &StateResult{Valid: true, Path: cfg.path, Errors: []error{}, Warnings: []string{}}

	data, err := fio.ReadRaw(cfg.path)
	if err != nil {
		res.Valid = false
		if errors.Is(err, fileio.ErrNotExist) {
			res.Errors = append(res.Errors, state.NewStateFileNotFoundError(cfg.path))
			return res
		}
		res.Errors = append(res.Errors, &state.StateError{
			Code:    state.CodeStateFileRead,
			Message: fmt.Sprintf("cannot read state file: %v", err),
			Path:    cfg.path,
		})
		return res
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		line, col := fileio.ErrorPosition(data, err)
		res.Valid = false
		res.Errors = append(res.Errors, state.NewStateFileCorruptedError(cfg.path, err, line, col))
		return res
	}

	if missing := missingFields(doc, RequiredStateFields); len(missing) > 0 {
		res.Valid = false
		res.Errors = append(res.Errors, state.NewStateFieldMissingError(cfg.path, missing))
	}

	res.SizeKB = float64(len(data)) / 1024
	switch {
	case res.SizeKB > cfg.sizeLimitKB:
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"state file size (%.1fKB) exceeds the %.0fKB limit, migrate completed iterations to %s",
			res.SizeKB, cfg.sizeLimitKB, state.HistoryFile))
	case res.SizeKB > cfg.sizeWarningKB:
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"state file size (%.1fKB) is approaching the %.0fKB limit",
			res.SizeKB, cfg.sizeLimitKB))
	}
	return res
}

// missingFields returns the dotted paths in fields that doc does not contain.
// A path whose parent is not an object counts as missing.
func missingFields(doc any, fields []string) []string {
	var missing []string
	for _, field := range fields {
		cur := doc
		found := true
		for _, part := range strings.Split(field, ".") {
			obj, ok := cur.(map[string]any)
			if !ok {
				found = false
				break
			}
			if cur, ok = obj[part]; !ok {
				found = false
				break
			}
		}
		if !found {
			missing = append(missing, field)
		}
	}
	return missing
}
