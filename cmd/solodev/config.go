package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/solodevflow/solodev/internal/config"
	"github.com/solodevflow/solodev/internal/formatter"
)

var (
	configShow bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View solodev configuration.

Configuration priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (SOLODEV_*)
  3. Project config (.solodev/config.yaml)
  4. Home config (~/.solodev/config.yaml)
  5. Defaults

Environment variables:
  SOLODEV_CONFIG           - Explicit config file path (overrides the project config location)
  SOLODEV_OUTPUT           - Default output format (table, json, yaml)
  SOLODEV_BASE_DIR         - Data directory inside the project (default: .solodev)
  SOLODEV_DOCS_DIR         - Documents root (default: docs)
  SOLODEV_VERBOSE          - Enable verbose output (true/1)
  SOLODEV_ACTOR            - Name recorded as approver (default: OS user)
  SOLODEV_CACHE_TTL        - State cache lifetime (default: 5s)
  SOLODEV_SIZE_WARNING_KB  - State file size warning (default: 80)
  SOLODEV_SIZE_LIMIT_KB    - State file size limit (default: 100)
  SOLODEV_LOCK_TIMEOUT     - Wait for the state lock (default: 5s)

Examples:
  solodev config --show           # Show resolved configuration
  solodev config --show -o json   # Output as JSON`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().BoolVar(&configShow, "show", false, "Show resolved configuration with sources")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if !configShow {
		// Show help if no flags
		return cmd.Help()
	}

	root, err := resolveRoot(projectDir)
	if err != nil {
		return err
	}
	resolved := config.Resolve(root, cfgFile, &config.Config{Output: GetOutput(), Verbose: GetVerbose()})

	w := cmd.OutOrStdout()
	if format, _ := resolved.Output.Value.(string); format == "json" || format == "yaml" {
		return writeStructured(w, format, resolved)
	}

	fmt.Fprintln(w, "solodev configuration")
	fmt.Fprintln(w, "=====================")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Config files:")
	home, _ := os.UserHomeDir()
	printConfigFile(cmd, "Home:   ", filepath.Join(home, ".solodev", "config.yaml"))
	projectConfig := cfgFile
	if projectConfig == "" {
		projectConfig = os.Getenv(config.EnvConfig)
	}
	if projectConfig == "" {
		projectConfig = filepath.Join(root, ".solodev", "config.yaml")
	}
	printConfigFile(cmd, "Project:", projectConfig)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Resolved values:")
	tbl := formatter.NewTable(w, "KEY", "VALUE", "SOURCE")
	for _, e := range resolved.Entries() {
		tbl.AddRow(e.Key, fmt.Sprint(e.Value), string(e.Source))
	}
	if err := tbl.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables (if set):")
	envVars := []string{
		config.EnvConfig,
		config.EnvOutput,
		config.EnvBaseDir,
		config.EnvDocsDir,
		config.EnvVerbose,
		config.EnvActor,
		config.EnvCacheTTL,
		config.EnvSizeWarningKB,
		config.EnvSizeLimitKB,
		config.EnvLockTimeout,
	}
	anySet := false
	for _, env := range envVars {
		if v := os.Getenv(env); v != "" {
			fmt.Fprintf(w, "  %s=%s\n", env, v)
			anySet = true
		}
	}
	if !anySet {
		fmt.Fprintln(w, "  (none set)")
	}

	return nil
}

func printConfigFile(cmd *cobra.Command, label, path string) {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "  ✓ %s %s\n", label, path)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "  ✗ %s %s (not found)\n", label, path)
	}
}
