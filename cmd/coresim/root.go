// Command coresim drives the coherence core from the command line:
// run-all and single-step execution of the parallel dot-product demo,
// a benchmark suite, and a plain dot-product report.
package main

import (
	"os"

	"github.com/rs/xid"
	"github.com/spf13/cobra"

	"github.com/example/coresim/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "coresim",
	Short: "coresim drives a snooping MESI multiprocessor simulator",
	Long: "coresim builds a small shared-memory multiprocessor with per-core " +
		"write-back caches kept coherent by a snooping MESI protocol, and " +
		"runs the parallel dot-product demo workload against it.",
}

// newRunID mints an opaque run identifier for log correlation, purely
// cosmetic: it never substitutes for a cache's own opaque integer
// identity from the coherence package.
func newRunID() string {
	return xid.New().String()
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug-level logging")
}

func loggerFromFlags(cmd *cobra.Command) *logging.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	level := logging.LevelInfo
	if debug {
		level = logging.LevelDebug
	}
	return logging.New(level, "coresim").With("run_id", newRunID())
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
