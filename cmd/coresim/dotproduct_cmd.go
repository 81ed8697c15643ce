package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/coresim/internal/workload"
)

var dotproductCmd = &cobra.Command{
	Use:   "dotproduct",
	Short: "run the parallel dot-product demo and print the result plus aggregate coherence stats",
	RunE:  runDotProduct,
}

func init() {
	dotproductCmd.Flags().Int("pes", 4, "number of processing elements")
	dotproductCmd.Flags().Int("per-pe", 4, "vector elements processed by each PE")
	rootCmd.AddCommand(dotproductCmd)
}

func runDotProduct(cmd *cobra.Command, args []string) error {
	logger := loggerFromFlags(cmd)

	numPEs, _ := cmd.Flags().GetInt("pes")
	perPE, _ := cmd.Flags().GetInt("per-pe")

	logger.Infof("dot product over %d PEs x %d elements", numPEs, perPE)

	result, stats, err := workload.RunParallelDotProduct(numPEs, perPE)
	if err != nil {
		return fmt.Errorf("dotproduct: %w", err)
	}

	fmt.Printf("dot product = %v\n", result)

	var busRd, busRdX, inv, snoopInv, snoopShared, snoopFlush uint64
	for _, st := range stats.Cache {
		busRd += st.BusRd
		busRdX += st.BusRdX
		inv += st.BusInvalidate
		snoopInv += st.SnoopToInvalid
		snoopShared += st.SnoopToShared
		snoopFlush += st.SnoopFlushes
	}
	fmt.Printf("aggregate bus traffic: BusRd=%d BusRdX=%d Invalidate=%d\n", busRd, busRdX, inv)
	fmt.Printf("aggregate snoop reactions: ->Invalid=%d ->Shared=%d flushes=%d\n", snoopInv, snoopShared, snoopFlush)

	for i := range stats.Cache {
		fmt.Printf("PE %d: reads=%d writes=%d | cache hits=%d misses=%d\n",
			i, stats.PEReadOps[i], stats.PEWriteOps[i], stats.Cache[i].Hits, stats.Cache[i].Misses)
	}
	return nil
}
