// Package paircount is the spatial pair-counting engine: given two point
// clouds and a sequence of radial bin edges, it counts, per bin, how many
// ordered pairs fall within that bin's distance range, and optionally
// accumulates the mean distance per bin.
//
// The hard part lives in three leaf packages: grid (the cell lattice that
// prunes the search), bins (the squared-edge classifier), and kernel (the
// scalar/SIMD-dispatched distance-and-bin inner loop). This package wires
// them together behind a worker pool that takes a shuffled order of outer
// cells, statically partitioned by stride across workers — the
// ParallelDriver of the design.
package paircount

import (
	"runtime"

	"github.com/haloclust/paircount/grid"
)

// Config describes one pair-counting run.
type Config struct {
	// D1, D2 are the input point clouds. When Autocorr is true, D2 is
	// ignored and D1 is paired against itself.
	D1, D2 grid.Points
	// BBox must strictly contain every point of D1 (and D2, unless
	// Autocorr).
	BBox grid.BoundingBox
	// Autocorr requests D2 = D1: a single lattice is built and aliased.
	Autocorr bool
	// Rmax is the grid's search radius; Rupp[len(Rupp)-1] must be <= Rmax,
	// or the outermost bin silently undercounts.
	Rmax float64
	// Rupp is the ordered sequence of K bin edges, rupp[0] < ... < rupp[K-1].
	Rupp []float64
	// NumThreads is the number of worker goroutines; must be >= 1.
	NumThreads int
	// BinRefineFactor overrides the cell-subdivision factor. Zero selects
	// the spec's default: 1 when NumThreads > 1, 2 otherwise (see
	// SPEC_FULL.md §4.4 on the source's ambiguous refine-factor history).
	BinRefineFactor int
	// ComputeMeanDistance requests the optional per-bin mean-distance
	// accumulator (the source's OUTPUT_RPAVG toggle).
	ComputeMeanDistance bool
	// MaxCells guards against a pathologically fine lattice exhausting
	// memory; zero disables the guard. Exceeding it reports OutOfMemory
	// before any lattice is allocated.
	MaxCells int
}

func (c Config) binRefineFactor() int {
	if c.BinRefineFactor > 0 {
		return c.BinRefineFactor
	}
	if c.NumThreads > 1 {
		return 1
	}
	return 2
}

func (c Config) numThreads() int {
	if c.NumThreads < 1 {
		return 1
	}
	return c.NumThreads
}

// DefaultNumThreads returns runtime.NumCPU(), the conventional "use all
// cores" choice callers pass through Config.NumThreads.
func DefaultNumThreads() int { return runtime.NumCPU() }
