package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/solodevflow/solodev/internal/command"
	"github.com/solodevflow/solodev/internal/fileio"
)

// runSlash runs the arguments as a slash command through the executor.
// Commands that change state hold the state lock for the whole run.
func runSlash(cmd *cobra.Command, args []string) error {
	rest, err := splitGlobalFlags(args)
	if err != nil {
		return err
	}
	if len(rest) == 0 || rest[0] == "-h" || rest[0] == "--help" {
		return cmd.Help()
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	input := slashInput(rest)
	name, err := command.ExtractName(input)
	if err != nil {
		return err
	}
	VerbosePrintf(cmd, "running %s in %s\n", input, a.root)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var res *command.Result
	run := func() error {
		res = a.exec.Execute(ctx, input)
		return nil
	}
	def, known := a.exec.Registry().Get(name)
	if known && !def.ReadOnly {
		if err := fileio.WithStateLock(ctx, a.lockPath(), a.cfg.LockTimeoutDuration(), run); err != nil {
			return err
		}
	} else {
		_ = run()
	}

	if err := renderResult(cmd.OutOrStdout(), a.cfg.Output, name, res); err != nil {
		return err
	}
	if !res.Success {
		return errCommandFailed
	}
	return nil
}

// slashInput rebuilds a command line from shell arguments. The slash is
// optional on the command name; arguments containing whitespace are quoted
// so they survive tokenizing.
func slashInput(args []string) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		if i == 0 {
			parts[i] = "/" + strings.TrimPrefix(arg, "/")
			continue
		}
		parts[i] = quoteArg(arg)
	}
	return strings.Join(parts, " ")
}

func quoteArg(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\n\"'") {
		return arg
	}
	if strings.Contains(arg, `"`) {
		return "'" + arg + "'"
	}
	return `"` + arg + `"`
}
