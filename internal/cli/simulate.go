package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/garethgeorge/hybridspace/internal/logger"
	"github.com/garethgeorge/hybridspace/internal/progress"
	"github.com/garethgeorge/hybridspace/internal/spacemgr"
	"github.com/garethgeorge/hybridspace/internal/workload"
	"github.com/spf13/cobra"
)

func newSimulateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run randomized workloads and check invariants after every operation",
		Long: `Run randomized allocate/deallocate workloads against independent devices
in parallel. Every invariant is checked after each operation and the run
stops at the first violation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sim := a.cfg.Simulate
			seed := sim.Seed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			cfg := workload.Config{
				Devices:    sim.Devices,
				Ops:        sim.Ops,
				Capacity:   a.cfg.DiskSize,
				MaxRequest: sim.MaxRequest,
				Seed:       seed,
				Strict:     a.cfg.StrictDealloc,
			}
			logger.LogInfo("simulation started", map[string]interface{}{
				"devices":  cfg.Devices,
				"ops":      cfg.Ops,
				"capacity": cfg.Capacity,
				"seed":     cfg.Seed,
			})

			results, err := workload.Simulate(cmd.Context(), cfg, func(device int) progress.BarProgressTracker {
				return progress.NewLoggingBarTracker(logger.WithFields(map[string]interface{}{"device": device}))
			})
			if werr := writeStats(cmd, results); werr != nil {
				return werr
			}
			if err != nil {
				logger.LogError("simulation failed", err, map[string]interface{}{"seed": cfg.Seed})
				return fmt.Errorf("simulation failed: %w", err)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Int("devices", 4, "number of independent devices to simulate")
	flags.Int("ops", 1000, "operations per device")
	flags.Int64("seed", 0, "base random seed (0 picks one from the clock)")
	flags.Int("max-request", 10, "largest block count per random request")
	a.v.BindPFlag("simulate.devices", flags.Lookup("devices"))
	a.v.BindPFlag("simulate.ops", flags.Lookup("ops"))
	a.v.BindPFlag("simulate.seed", flags.Lookup("seed"))
	a.v.BindPFlag("simulate.max_request", flags.Lookup("max-request"))
	return cmd
}

func writeStats(cmd *cobra.Command, results []workload.Stats) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tSEED\tOPS\tALLOC\tFREE\tREJECTED\tDOUBLE-FREE\tFREE-BLOCKS\tGROUPS\tFINGERPRINT")
	for _, s := range results {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%016x\n",
			s.Device, s.Seed, s.Ops, s.Allocations, s.Frees, s.RejectedTotal(),
			s.Rejected[spacemgr.KindDoubleFree], s.FreeBlocks, s.Groups, s.Fingerprint)
	}
	return tw.Flush()
}
