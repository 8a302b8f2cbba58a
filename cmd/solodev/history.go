package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/solodevflow/solodev/internal/formatter"
	"github.com/solodevflow/solodev/internal/state"
	"github.com/solodevflow/solodev/internal/ui"
)

var (
	historyFormat     string
	historyMaxChanges int
)

var historyCmd = &cobra.Command{
	Use:   "history [iteration-id]",
	Short: "Show archived iterations",
	Long: `List the iterations archived by /complete-iteration, or show one of them.

Without an id, prints a table of archived iterations (or JSON/YAML with -o).
With an id, prints a report in the chosen format.

Formats:
  markdown  Report with frontmatter, phases, tasks and changes (default)
  jsonl     One JSON line per iteration

Examples:
  solodev history
  solodev history iteration-1
  solodev history --format jsonl > iterations.jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyFormat, "format", "", "Report format (markdown, jsonl)")
	historyCmd.Flags().IntVar(&historyMaxChanges, "max-changes", 0, "Limit the change log in markdown reports (0 = all)")
}

func iterationFormatter(format string) (formatter.IterationFormatter, error) {
	switch format {
	case "", "markdown", "md":
		return &formatter.MarkdownFormatter{MaxChanges: historyMaxChanges}, nil
	case "jsonl":
		return formatter.NewJSONLFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown history format %q (want markdown or jsonl)", format)
	}
}

// sortedIterations returns archived iterations in start order.
func sortedIterations(hist *state.HistoricalState) []*state.HistoricalIteration {
	its := make([]*state.HistoricalIteration, 0, len(hist.CompletedIterations))
	for _, it := range hist.CompletedIterations {
		if it != nil {
			its = append(its, it)
		}
	}
	sort.Slice(its, func(i, j int) bool {
		if its[i].StartedAt != its[j].StartedAt {
			return its[i].StartedAt < its[j].StartedAt
		}
		return its[i].ID < its[j].ID
	})
	return its
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	if len(args) == 1 {
		it, err := a.mgr.GetHistoricalIteration(args[0])
		if err != nil {
			return err
		}
		f, err := iterationFormatter(historyFormat)
		if err != nil {
			return err
		}
		return f.Format(w, it)
	}

	hist, err := a.mgr.GetHistory()
	if err != nil {
		return err
	}
	its := sortedIterations(hist)

	if historyFormat != "" {
		f, err := iterationFormatter(historyFormat)
		if err != nil {
			return err
		}
		for _, it := range its {
			if err := f.Format(w, it); err != nil {
				return err
			}
		}
		return nil
	}
	if a.cfg.Output != "table" {
		return writeStructured(w, a.cfg.Output, its)
	}

	if len(its) == 0 {
		fmt.Fprintln(w, ui.InfoLine("no archived iterations yet, use /complete-iteration after deployment"))
		return nil
	}
	tbl := formatter.NewTable(w, "ITERATION", "VERSION", "STATUS", "STARTED", "COMPLETED", "MODULES", "SUMMARY")
	tbl.SetMaxWidth(6, 48)
	for _, it := range its {
		modules := "-"
		if it.Stats != nil {
			modules = fmt.Sprint(it.Stats.TotalModules)
		}
		tbl.AddRow(it.ID, it.Version, ui.Status(string(it.Status)), day(it.StartedAt), day(it.CompletedAt), modules, it.Summary)
	}
	return tbl.Render()
}

// day trims a timestamp to its date.
func day(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	if ts == "" {
		return "-"
	}
	return ts
}
