package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/example/coresim/internal/sim"
	"github.com/example/coresim/internal/workload"
)

var stepCmd = &cobra.Command{
	Use:   "step",
	Short: "run the dot-product workload in single-step round-robin mode",
	RunE:  runStep,
}

func init() {
	stepCmd.Flags().Int("pes", 4, "number of processing elements")
	stepCmd.Flags().Int("per-pe", 4, "vector elements processed by each PE")
	stepCmd.Flags().Int("memory-words", 0, "backing memory size in words, checked against the workload's minimum (0 = 4096); actual memory is sized exactly to the workload")
	rootCmd.AddCommand(stepCmd)
}

func runStep(cmd *cobra.Command, args []string) error {
	logger := loggerFromFlags(cmd)

	numPEs, _ := cmd.Flags().GetInt("pes")
	perPE, _ := cmd.Flags().GetInt("per-pe")
	memWords, _ := cmd.Flags().GetInt("memory-words")

	cfg := &sim.Config{NumPEs: numPEs, VectorPerPE: perPE, MemoryWords: memWords, Mode: sim.ModeStep}
	if err := sim.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("step: %w", err)
	}

	logger.Infof("stepping %d PEs round-robin, %d words/PE", cfg.NumPEs, cfg.VectorPerPE)

	w, err := workload.BuildWiring(cfg.NumPEs, cfg.VectorPerPE, workload.WithLogHook(logger.AsHook()))
	if err != nil {
		return fmt.Errorf("step: %w", err)
	}

	ids := make([]string, cfg.NumPEs)
	for i := range w.Elements {
		ids[i] = fmt.Sprintf("pe%d", w.Elements[i].ID())
	}
	coord := sim.NewStepCoordinator(ids)

	var wg sync.WaitGroup
	for i := 0; i < cfg.NumPEs; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			id := ids[idx]
			e := w.Elements[idx]
			for {
				turn := coord.WaitForTurn(id)
				if turn < 0 {
					return
				}
				finished := e.HasFinished()
				if !finished {
					if err := e.ExecuteNext(); err != nil {
						logger.Errorf("PE %d: %v", idx, err)
						coord.MarkTurnDone(id, true)
						return
					}
					finished = e.HasFinished()
				}
				coord.MarkTurnDone(id, finished)
				if finished {
					return
				}
			}
		}(i)
	}
	wg.Wait()

	_, stats, err := workload.SumResults(w)
	if err != nil {
		return fmt.Errorf("step: %w", err)
	}

	for i, st := range stats.Cache {
		fmt.Printf("cache %d: hits=%d misses=%d fills=%d writebacks=%d busRd=%d busRdX=%d inv=%d (turns=%d)\n",
			i, st.Hits, st.Misses, st.LineFills, st.Writebacks, st.BusRd, st.BusRdX, st.BusInvalidate, coord.Turn())
	}
	return nil
}
