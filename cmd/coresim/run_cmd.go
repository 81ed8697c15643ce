package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/coresim/internal/sim"
	"github.com/example/coresim/internal/workload"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run the dot-product workload in run-all mode (one goroutine per PE, no scheduling)",
	RunE:  runRunAll,
}

func init() {
	runCmd.Flags().Int("pes", 4, "number of processing elements")
	runCmd.Flags().Int("per-pe", 4, "vector elements processed by each PE")
	runCmd.Flags().Int("memory-words", 0, "backing memory size in words, checked against the workload's minimum (0 = 4096); actual memory is sized exactly to the workload")
	rootCmd.AddCommand(runCmd)
}

func runRunAll(cmd *cobra.Command, args []string) error {
	logger := loggerFromFlags(cmd)

	numPEs, _ := cmd.Flags().GetInt("pes")
	perPE, _ := cmd.Flags().GetInt("per-pe")
	memWords, _ := cmd.Flags().GetInt("memory-words")

	cfg := &sim.Config{NumPEs: numPEs, VectorPerPE: perPE, MemoryWords: memWords, Mode: sim.ModeRunAll}
	if err := sim.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	logger.Infof("building %d PEs, %d words/PE", cfg.NumPEs, cfg.VectorPerPE)

	result, stats, err := workload.RunParallelDotProduct(cfg.NumPEs, cfg.VectorPerPE, workload.WithLogHook(logger.AsHook()))
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	fmt.Printf("dot product = %v\n", result)
	for i, st := range stats.Cache {
		fmt.Printf("cache %d: hits=%d misses=%d fills=%d writebacks=%d busRd=%d busRdX=%d inv=%d\n",
			i, st.Hits, st.Misses, st.LineFills, st.Writebacks, st.BusRd, st.BusRdX, st.BusInvalidate)
	}
	return nil
}
