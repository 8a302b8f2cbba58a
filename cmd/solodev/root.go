package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	output     string
	cfgFile    string
	projectDir string
)

// errCommandFailed marks a failure that has already been rendered.
var errCommandFailed = errors.New("command failed")

// rootCmd represents the base command when called without any subcommands.
// Anything that is not a subcommand below is run as a slash command, so
// flag parsing is left to the command parser.
var rootCmd = &cobra.Command{
	Use:   "solodev [command] [args] [--flag value]",
	Short: "Lifecycle workflow for solo developers",
	Long: `solodev walks a project through five phases per iteration:
requirements, architecture, implementation, testing and deployment.
State lives in .solodev/state.json; every transition is gated by approval.

Lifecycle commands (the leading slash is optional):
  init                 Initialize the project state
  start-requirements   Begin requirements analysis
  start-architecture   Begin architecture design (requirements approved)
  start-implementation Begin implementation (architecture approved)
  start-testing        Begin testing (implementation approved)
  start-deployment     Begin deployment (testing approved)
  approve [target]     Approve the current phase, a named phase or a module
  rollback <phase> <reason>
  status               Show project progress
  add-module <name>    Register a module and its dependencies
  update-module <name> <status>
  test-phase <sub-phase> <status>
  sync-git             Record the HEAD commit
  complete-iteration   Archive the iteration and start the next one

Tooling:
  validate   Check state.json and document references
  context    List the files a phase or module needs
  modules    List modules across phases
  history    Show archived iterations
  config     Show resolved configuration
  version    Show version information

Examples:
  solodev init my-app --type backend
  solodev /approve auth
  solodev rollback architecture "schema misses audit fields"`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	DisableFlagParsing: true,
	Args:               cobra.ArbitraryArgs,
	RunE:               runSlash,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errCommandFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: .solodev/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&projectDir, "dir", "", "Project root (default: current directory)")
}

// GetVerbose returns the verbose flag value for use by subcommands.
func GetVerbose() bool {
	return verbose
}

// GetOutput returns the output format flag for use by subcommands.
func GetOutput() string {
	return output
}

// VerbosePrintf prints only when verbose mode is enabled.
func VerbosePrintf(cmd *cobra.Command, format string, args ...any) {
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), format, args...)
	}
}

// splitGlobalFlags pulls the root's persistent flags out of raw arguments,
// which the root command receives unparsed. The rest is returned in order.
func splitGlobalFlags(args []string) ([]string, error) {
	var rest []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")

		var target *string
		switch name {
		case "-v", "--verbose":
			verbose = true
			continue
		case "-o", "--output":
			target = &output
		case "--config":
			target = &cfgFile
		case "--dir":
			target = &projectDir
		default:
			rest = append(rest, arg)
			continue
		}

		if !hasValue {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("flag needs an argument: %s", name)
			}
			i++
			value = args[i]
		}
		*target = value
	}
	return rest, nil
}
