package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/solodevflow/solodev/internal/formatter"
	"github.com/solodevflow/solodev/internal/state"
	"github.com/solodevflow/solodev/internal/ui"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List modules across phases",
	Long: `List every module declared in the current iteration with its priority,
dependencies and status in each phase.

Examples:
  solodev modules
  solodev modules -o json`,
	Args: cobra.NoArgs,
	RunE: runModules,
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}

// moduleRow is one module of the current iteration.
type moduleRow struct {
	Name       string                             `json:"name"`
	Priority   state.Priority                     `json:"priority,omitempty"`
	Foundation bool                               `json:"foundation"`
	DependsOn  []string                           `json:"dependsOn"`
	Status     map[state.Phase]state.ModuleStatus `json:"status"`
}

// collectModules lists the declared modules in name order.
func collectModules(st *state.State) []moduleRow {
	it := st.Iterations[st.CurrentIteration]
	names := make([]string, 0, len(st.ModuleDependencies))
	for name := range st.ModuleDependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]moduleRow, 0, len(names))
	for _, name := range names {
		row := moduleRow{Name: name, DependsOn: []string{}, Status: map[state.Phase]state.ModuleStatus{}}
		if dep := st.ModuleDependencies[name]; dep != nil {
			row.Foundation = dep.IsFoundation
			row.DependsOn = append(row.DependsOn, dep.DependsOn...)
		}
		if it != nil {
			for _, p := range state.AllPhases() {
				ps := it.Phases.Get(p)
				if ps == nil {
					continue
				}
				m, ok := ps.Modules[name]
				if !ok || m == nil {
					continue
				}
				row.Status[p] = m.Status
				if row.Priority == "" {
					row.Priority = m.Priority
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func runModules(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	st, err := a.mgr.GetState()
	if err != nil {
		return err
	}
	rows := collectModules(st)

	if a.cfg.Output != "table" {
		return writeStructured(cmd.OutOrStdout(), a.cfg.Output, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), ui.InfoLine("no modules registered, use /add-module <name>"))
		return nil
	}

	headers := []string{"MODULE", "PRIORITY", "DEPENDS ON"}
	for _, p := range state.AllPhases() {
		headers = append(headers, strings.ToUpper(p.String()))
	}
	tbl := formatter.NewTable(cmd.OutOrStdout(), headers...)
	tbl.SetMaxWidth(2, 40)
	for _, r := range rows {
		name := r.Name
		if r.Foundation {
			name += "*"
		}
		deps := strings.Join(r.DependsOn, ",")
		if deps == "" {
			deps = "-"
		}
		cells := []string{name, string(r.Priority), deps}
		for _, p := range state.AllPhases() {
			cells = append(cells, ui.Status(string(r.Status[p])))
		}
		tbl.AddRow(cells...)
	}
	return tbl.Render()
}
