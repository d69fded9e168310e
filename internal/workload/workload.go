package workload

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/garethgeorge/hybridspace/internal/progress"
	"github.com/garethgeorge/hybridspace/internal/spacemgr"
	"golang.org/x/sync/errgroup"
)

type OpKind int

const (
	OpAllocate OpKind = iota
	OpDeallocate
)

func (k OpKind) String() string {
	if k == OpAllocate {
		return "allocate"
	}
	return "deallocate"
}

// Op is a single request against a manager.
type Op struct {
	Kind  OpKind
	Start int
	Count int
}

func (o Op) String() string {
	return fmt.Sprintf("%s(%d, %d)", o.Kind, o.Start, o.Count)
}

// Apply runs op against m.
func Apply(m *spacemgr.Manager, op Op) error {
	if op.Kind == OpAllocate {
		_, err := m.Allocate(op.Start, op.Count)
		return err
	}
	return m.Deallocate(op.Start, op.Count)
}

// Generator produces a seeded stream of requests. Most deallocations target
// ranges that an earlier allocation was observed to claim; the rest are
// random, so rejections and lenient double frees are exercised too.
type Generator struct {
	rng        *rand.Rand
	capacity   int
	maxRequest int
	live       []Op
}

func NewGenerator(seed int64, capacity, maxRequest int) *Generator {
	return &Generator{
		rng:        rand.New(rand.NewSource(seed)),
		capacity:   capacity,
		maxRequest: max(maxRequest, 1),
	}
}

// randomOp draws starts from [-maxRequest, capacity] so requests can fall off
// either end of the device.
func (g *Generator) randomOp(kind OpKind) Op {
	return Op{
		Kind:  kind,
		Start: g.rng.Intn(g.capacity+g.maxRequest+1) - g.maxRequest,
		Count: g.rng.Intn(g.maxRequest) + 1,
	}
}

func (g *Generator) Next() Op {
	r := g.rng.Intn(10)
	switch {
	case r < 5:
		return g.randomOp(OpAllocate)
	case r < 8 && len(g.live) > 0:
		i := g.rng.Intn(len(g.live))
		op := g.live[i]
		g.live[i] = g.live[len(g.live)-1]
		g.live = g.live[:len(g.live)-1]
		op.Kind = OpDeallocate
		return op
	case r < 9:
		return g.randomOp(OpDeallocate)
	default:
		op := g.randomOp(OpKind(g.rng.Intn(2)))
		op.Count = -g.rng.Intn(2)
		return op
	}
}

// Observe records the outcome of an op produced by Next.
func (g *Generator) Observe(op Op, err error) {
	if op.Kind == OpAllocate && err == nil {
		g.live = append(g.live, op)
	}
}

// Stats summarises one simulated device.
type Stats struct {
	Device      int
	Seed        int64
	Ops         int
	Allocations int
	Frees       int
	Rejected    map[spacemgr.ErrorKind]int

	FreeBlocks  int
	Groups      int
	Fingerprint uint64
}

func (s Stats) RejectedTotal() int {
	total := 0
	for _, n := range s.Rejected {
		total += n
	}
	return total
}

// Run applies n generated ops to m and verifies every invariant after each
// one. Rejected requests are tallied; an invariant violation or any other
// error stops the run.
func Run(ctx context.Context, m *spacemgr.Manager, gen *Generator, n int, tracker progress.BarProgressTracker) (stats Stats, err error) {
	stats.Rejected = make(map[spacemgr.ErrorKind]int)
	tracker.SetTotal(int64(n))
	defer func() {
		stats.FreeBlocks = m.FreeBlocks()
		stats.Groups = len(m.Groups())
		stats.Fingerprint = m.Fingerprint()
	}()

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		op := gen.Next()
		err := Apply(m, op)
		gen.Observe(op, err)
		stats.Ops++

		switch {
		case err == nil && op.Kind == OpAllocate:
			stats.Allocations++
		case err == nil:
			stats.Frees++
		case spacemgr.KindOf(err) != 0:
			stats.Rejected[spacemgr.KindOf(err)]++
		default:
			return stats, fmt.Errorf("op %d %v: %w", i, op, err)
		}

		if err := m.Verify(); err != nil {
			return stats, fmt.Errorf("after op %d %v: %w", i, op, err)
		}
		tracker.SetDone(i + 1)
	}
	return stats, nil
}

// Config describes a simulation across independent devices.
type Config struct {
	Devices    int
	Ops        int
	Capacity   int
	MaxRequest int
	Seed       int64
	Strict     bool
}

// Simulate runs cfg.Devices independent managers concurrently. Each manager
// is driven by a single goroutine with seed cfg.Seed+device.
func Simulate(ctx context.Context, cfg Config, newTracker func(device int) progress.BarProgressTracker) ([]Stats, error) {
	if newTracker == nil {
		newTracker = func(int) progress.BarProgressTracker { return progress.NoopBarProgressTracker{} }
	}
	var opts []spacemgr.Option
	if cfg.Strict {
		opts = append(opts, spacemgr.WithStrictDeallocation())
	}

	results := make([]Stats, cfg.Devices)
	eg, ctx := errgroup.WithContext(ctx)
	for device := 0; device < cfg.Devices; device++ {
		eg.Go(func() error {
			tracker := newTracker(device)
			tracker.SetMessage(fmt.Sprintf("simulating device %d", device))
			defer tracker.MarkFinished()

			m, err := spacemgr.New(cfg.Capacity, opts...)
			if err != nil {
				tracker.SetError(err)
				return fmt.Errorf("device %d: %w", device, err)
			}
			seed := cfg.Seed + int64(device)
			stats, err := Run(ctx, m, NewGenerator(seed, cfg.Capacity, cfg.MaxRequest), cfg.Ops, tracker)
			stats.Device = device
			stats.Seed = seed
			results[device] = stats
			if err != nil {
				tracker.SetError(err)
				return fmt.Errorf("device %d (seed %d): %w", device, seed, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
