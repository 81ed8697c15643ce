package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/coresim/internal/workload"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "run the dot-product workload at increasing problem sizes and report instructions/sec",
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().Int("pes", 4, "number of processing elements")
	benchCmd.Flags().Int("iterations", 3, "repetitions averaged at each problem size")
	rootCmd.AddCommand(benchCmd)
}

// benchResult holds one problem size's measured throughput.
type benchResult struct {
	PerPE            int
	InstructionsDone uint64
	Duration         time.Duration
	InstructionsSec  float64
}

func runBenchOnce(numPEs, perPE int) (benchResult, error) {
	start := time.Now()
	_, stats, err := workload.RunParallelDotProduct(numPEs, perPE)
	elapsed := time.Since(start)
	if err != nil {
		return benchResult{}, err
	}

	// Every PE runs the seed LOAD and the final STORE once and the loop
	// body once per element of its slice.
	prog := workload.BuildDotProductProgram(workload.DotProductConfig{SliceLen: perPE})
	perPEInstructions := uint64(2 + (len(prog)-2)*perPE)
	var total uint64
	for range stats.PEReadOps {
		total += perPEInstructions
	}

	rate := float64(0)
	if elapsed > 0 {
		rate = float64(total) / elapsed.Seconds()
	}

	return benchResult{
		PerPE:            perPE,
		InstructionsDone: total,
		Duration:         elapsed,
		InstructionsSec:  rate,
	}, nil
}

func runBench(cmd *cobra.Command, args []string) error {
	logger := loggerFromFlags(cmd)

	numPEs, _ := cmd.Flags().GetInt("pes")
	iterations, _ := cmd.Flags().GetInt("iterations")
	if iterations <= 0 {
		iterations = 1
	}

	logger.Infof("benchmarking %d PEs over %d iterations per size", numPEs, iterations)

	sizes := []int{16, 64, 256}
	fmt.Println("=== Dot-product benchmark suite ===")
	for _, perPE := range sizes {
		var totalRate float64
		var totalDuration time.Duration

		for i := 0; i < iterations; i++ {
			res, err := runBenchOnce(numPEs, perPE)
			if err != nil {
				return fmt.Errorf("bench: %w", err)
			}
			totalRate += res.InstructionsSec
			totalDuration += res.Duration
		}

		avgRate := totalRate / float64(iterations)
		avgDuration := totalDuration / time.Duration(iterations)
		fmt.Printf("per-PE=%d (%d iterations): avg %.2f instructions/sec, avg time %v\n", perPE, iterations, avgRate, avgDuration)
	}
	return nil
}
