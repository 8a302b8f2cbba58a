package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/solodevflow/solodev/internal/state"
	"github.com/solodevflow/solodev/internal/ui"
)

// FormatStateResult renders a state validation result for the terminal.
func FormatStateResult(res *StateResult) string {
	var b strings.Builder
	if res.Valid {
		b.WriteString(ui.PassLine("state.json is valid"))
	} else {
		b.WriteString(ui.FailLine("state.json validation failed"))
	}

	for _, err := range res.Errors {
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "%s %s", ui.Fail("error:"), err.Error())

		var se *state.StateError
		if !asStateError(err, &se) {
			continue
		}
		fmt.Fprintf(&b, "\n%s %s", ui.Muted("code:"), se.Code)
		if len(se.Suggestions) == 0 {
			continue
		}
		b.WriteString("\n\nrepair suggestions:")
		for i, s := range se.Suggestions {
			fmt.Fprintf(&b, "\n  %d. %s", i+1, s.Description)
			if s.Command != "" {
				fmt.Fprintf(&b, "\n     %s %s", ui.Muted("command:"), s.Command)
			}
			if s.Link != "" {
				fmt.Fprintf(&b, "\n     %s %s", ui.Muted("link:"), s.Link)
			}
		}
	}

	for _, w := range res.Warnings {
		b.WriteString("\n\n")
		b.WriteString(ui.WarnLine(w))
	}
	return b.String()
}

// asStateError extracts the StateError shared by the typed state file errors.
func asStateError(err error, target **state.StateError) bool {
	var (
		notFound  *state.StateFileNotFoundError
		corrupted *state.StateFileCorruptedError
		missing   *state.StateFieldMissingError
	)
	switch {
	case errors.As(err, &notFound):
		*target = &notFound.StateError
	case errors.As(err, &corrupted):
		*target = &corrupted.StateError
	case errors.As(err, &missing):
		*target = &missing.StateError
	default:
		return errors.As(err, target)
	}
	return true
}

// FormatReferenceResult renders a reference validation result for the terminal.
func FormatReferenceResult(res *ReferenceResult) string {
	var b strings.Builder
	if res.Valid {
		b.WriteString(ui.PassLine("document references are valid"))
	} else {
		b.WriteString(ui.FailLine("document reference validation failed"))
	}
	for _, e := range res.Errors {
		b.WriteString("\n" + ui.FailLine(e))
	}

	s := res.Summary
	b.WriteString("\n\n" + ui.Header("summary"))
	fmt.Fprintf(&b, "\n  total references: %d", s.TotalReferences)
	fmt.Fprintf(&b, "\n  valid references: %d", s.ValidReferences)
	fmt.Fprintf(&b, "\n  broken files:     %d", s.BrokenFiles)
	fmt.Fprintf(&b, "\n  broken sections:  %d", s.BrokenSections)
	fmt.Fprintf(&b, "\n  missing ids:      %d", s.MissingIDs)
	fmt.Fprintf(&b, "\n  duplicate ids:    %d", s.DuplicateIDs)

	if len(res.BrokenFile) > 0 {
		b.WriteString("\n\n" + ui.FailLine("broken file references (target does not exist):"))
		for _, ref := range res.BrokenFile {
			fmt.Fprintf(&b, "\n  %s:%d", ref.SourceFile, ref.SourceLine)
			fmt.Fprintf(&b, "\n    reference: %s", ref.Text)
			fmt.Fprintf(&b, "\n    target:    %s", ref.TargetFile)
		}
	}
	if len(res.BrokenSection) > 0 {
		b.WriteString("\n\n" + ui.FailLine("broken section references (id not declared):"))
		for _, ref := range res.BrokenSection {
			fmt.Fprintf(&b, "\n  %s:%d", ref.SourceFile, ref.SourceLine)
			fmt.Fprintf(&b, "\n    reference: %s", ref.Text)
			fmt.Fprintf(&b, "\n    section:   #%s", ref.TargetSection)
		}
	}
	if len(res.DuplicateID) > 0 {
		b.WriteString("\n\n" + ui.FailLine("duplicate ids:"))
		for _, dup := range res.DuplicateID {
			fmt.Fprintf(&b, "\n  {#%s}", dup.ID)
			for _, o := range dup.Occurrences {
				fmt.Fprintf(&b, "\n    - %s:%d (%s)", o.File, o.Line, o.Section)
			}
		}
	}
	if len(res.MissingID) > 0 {
		b.WriteString("\n\n" + ui.WarnLine("sections without an id (add one):"))
		for _, m := range res.MissingID {
			fmt.Fprintf(&b, "\n  %s:%d", m.File, m.Line)
			fmt.Fprintf(&b, "\n    section:      %s", m.Section)
			fmt.Fprintf(&b, "\n    suggested id: {#%s}", m.SuggestedID)
		}
	}
	return b.String()
}
