package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/solodevflow/solodev/internal/state"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the version, state schema version, and runtime details.`,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "solodev version %s\n", version)
		fmt.Fprintf(w, "  State schema: %s\n", state.SchemaVersion)
		fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
		fmt.Fprintf(w, "  Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
