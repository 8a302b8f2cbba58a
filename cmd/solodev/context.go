package main

import (
	"fmt"

	"github.com/spf13/cobra"

	ctxloader "github.com/solodevflow/solodev/internal/context"
	"github.com/solodevflow/solodev/internal/state"
)

var contextMaxTokens int

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "List the files a phase or module needs",
	Long: `Resolve the documents, templates and state fields relevant to a unit of
work, with an estimate of how much of a context window they take.

Outside requirements, only documents approved in the prerequisite phase are
listed; skipped dependencies are reported as warnings.

Examples:
  solodev context phase architecture
  solodev context module auth implementation -o yaml`,
}

var contextPhaseCmd = &cobra.Command{
	Use:   "phase <phase>",
	Short: "Context for a whole phase",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runContext(cmd, func(l *ctxloader.Loader) *ctxloader.Result {
			return l.ForPhase(phaseArg(args[0]))
		})
	},
}

var contextModuleCmd = &cobra.Command{
	Use:   "module <module> <phase>",
	Short: "Context for one module, including approved dependencies",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runContext(cmd, func(l *ctxloader.Loader) *ctxloader.Result {
			return l.ForModule(args[0], phaseArg(args[1]))
		})
	},
}

func init() {
	rootCmd.AddCommand(contextCmd)
	contextCmd.AddCommand(contextPhaseCmd, contextModuleCmd)
	contextCmd.PersistentFlags().IntVar(&contextMaxTokens, "max-tokens", ctxloader.DefaultMaxTokens, "Context window size used for the budget")
}

// phaseArg accepts phase aliases and keeps unknown names for the error message.
func phaseArg(name string) state.Phase {
	if p := state.ParsePhase(name); p != "" {
		return p
	}
	return state.Phase(name)
}

func runContext(cmd *cobra.Command, resolve func(*ctxloader.Loader) *ctxloader.Result) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	loader := ctxloader.NewLoader(a.mgr.Repository(),
		ctxloader.WithDocsDir(a.cfg.DocsDir),
		ctxloader.WithMaxTokens(contextMaxTokens),
		ctxloader.WithLogger(a.logger),
	)
	res := resolve(loader)

	format := "json"
	if a.cfg.Output == "yaml" {
		format = "yaml"
	}
	if err := writeStructured(cmd.OutOrStdout(), format, res); err != nil {
		return err
	}
	if !res.Success {
		VerbosePrintf(cmd, "context failed: %s\n", res.Error)
		return fmt.Errorf("%w: %s", errCommandFailed, res.Error)
	}
	return nil
}
