package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solodevflow/solodev/internal/validate"
)

var validateConcurrency int

var validateCmd = &cobra.Command{
	Use:   "validate [state|refs|all]",
	Short: "Check state.json and document references",
	Long: `Validate the project's state file and the cross-references between
markdown documents.

  state  state.json exists, parses, has every required field and is not oversized
  refs   links point at existing files and declared {#id} anchors, required
         sections carry ids, and no id is declared twice
  all    both (default)

Exits 1 when anything is invalid.

Examples:
  solodev validate
  solodev validate refs -o json`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"state", "refs", "all", "help"},
	RunE:      runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().IntVar(&validateConcurrency, "concurrency", 0, "Parallel document parsers (default: CPU count)")
}

// stateReport is the machine-readable form of a state validation.
type stateReport struct {
	Valid    bool     `json:"valid"`
	Path     string   `json:"path"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	SizeKB   float64  `json:"sizeKB"`
}

type validateReport struct {
	State *stateReport              `json:"state,omitempty"`
	Refs  *validate.ReferenceResult `json:"refs,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	target := "all"
	if len(args) == 1 {
		target = args[0]
	}
	switch target {
	case "state", "refs", "all":
	case "help":
		return cmd.Help()
	default:
		return fmt.Errorf("unknown validation target %q (want state, refs or all)", target)
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	var report validateReport
	valid := true
	if target == "state" || target == "all" {
		res := validate.ValidateStateFile(a.fio,
			validate.WithStatePath(a.mgr.StatePath()),
			validate.WithSizeThresholds(a.cfg.SizeWarningKB, a.cfg.SizeLimitKB),
		)
		valid = valid && res.Valid
		sr := &stateReport{Valid: res.Valid, Path: res.Path, Errors: []string{}, Warnings: res.Warnings, SizeKB: res.SizeKB}
		for _, e := range res.Errors {
			sr.Errors = append(sr.Errors, e.Error())
		}
		report.State = sr
		if a.cfg.Output == "table" {
			fmt.Fprintln(cmd.OutOrStdout(), validate.FormatStateResult(res))
		}
	}

	if target == "refs" || target == "all" {
		res, err := validate.ValidateReferences(cmd.Context(), a.fio, a.cfg.DocsDir,
			validate.WithConcurrency(validateConcurrency))
		if err != nil {
			return fmt.Errorf("validate references: %w", err)
		}
		valid = valid && res.Valid
		report.Refs = res
		if a.cfg.Output == "table" {
			if report.State != nil {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			fmt.Fprintln(cmd.OutOrStdout(), validate.FormatReferenceResult(res))
		}
	}

	if a.cfg.Output != "table" {
		if err := writeStructured(cmd.OutOrStdout(), a.cfg.Output, report); err != nil {
			return err
		}
	}
	if !valid {
		return errCommandFailed
	}
	return nil
}
