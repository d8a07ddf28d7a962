// Package kernel implements the distance/bin classification inner loop:
// given two cells of points, it computes all pairwise squared distances,
// filters to [rmin^2, rmax^2), and accumulates per-bin counts (and
// optionally summed distances).
//
// Two code paths exist, selected once at process start by CPU-feature
// detection (see kernel_amd64.go / kernel_generic.go): a portable scalar
// loop and a lane-batched variant that processes BatchWidth points of
// cellB at a time. Both must produce bit-identical histograms for any
// input; see kernel_amd64_test.go's equivalence check. Building actual SIMD
// intrinsics is out of scope here (the caller supplies those, if any) —
// this package only implements the dispatch contract and a portable
// lane-batched reference path that a future intrinsics-backed
// implementation could replace without changing callers.
package kernel

import (
	"math"

	"github.com/haloclust/paircount/bins"
	"github.com/haloclust/paircount/grid"
)

// blockSize bounds the inner dimension of the scalar loop so cellB's
// coordinates stay resident in cache while cellA is scanned.
const blockSize = 16

// BatchWidth is the number of cellB points processed together by the
// lane-batched path.
const BatchWidth = 4

// accumulate is resolved once at init time to either scalarAccumulate or
// batchAccumulate, mirroring the teacher's one-time bytesPerVec/dispatch
// resolution in biosimd_amd64.go.
var accumulate func(a, b grid.Cell, table *bins.Table, hist []uint64, distSum []float64)

// Accumulate computes all pairwise squared distances between cellA and
// cellB, classifies those within [rmin^2, rmax^2) into a bin via table, and
// updates hist[k] += 1 (and distSum[k] += sqrt(r2) when distSum != nil).
//
// No self-pair filter is applied: when cellA and cellB are the same cell
// (the autocorrelation diagonal), the i==j term contributes r2 == 0, which
// is excluded only when rmin^2 > 0. Passing rmin == 0 under autocorrelation
// counts self-pairs; that is the caller's contract, not this package's.
func Accumulate(cellA, cellB grid.Cell, table *bins.Table, hist []uint64, distSum []float64) {
	accumulate(cellA, cellB, table, hist, distSum)
}

// classifyAndAdd performs the descending bin scan shared by both the
// scalar and lane-batched paths, so the two can never disagree on which
// bin a given r2 lands in.
func classifyAndAdd(table *bins.Table, r2 float64, hist []uint64, distSum []float64) {
	k := table.Classify(r2)
	if k == bins.Out {
		return
	}
	hist[k]++
	if distSum != nil {
		distSum[k] += math.Sqrt(r2)
	}
}

// scalarAccumulate is the straightforward double loop, blocked in the inner
// (cellB) dimension. Grounded on the reference C kernel's BLOCK_SIZE=16
// inner loop (countpairs_nopbc.c) and on biosimd's generic fallback style
// of a plain, allocation-free byte/float loop with no platform-specific
// dependencies.
func scalarAccumulate(cellA, cellB grid.Cell, table *bins.Table, hist []uint64, distSum []float64) {
	rmin2 := table.RminSqr()
	rmax2 := table.RmaxSqr()
	nA, nB := cellA.N(), cellB.N()
	for i := 0; i < nA; i++ {
		x1, y1, z1 := cellA.X[i], cellA.Y[i], cellA.Z[i]
		for j0 := 0; j0 < nB; j0 += blockSize {
			end := j0 + blockSize
			if end > nB {
				end = nB
			}
			for j := j0; j < end; j++ {
				dx := x1 - cellB.X[j]
				dy := y1 - cellB.Y[j]
				dz := z1 - cellB.Z[j]
				r2 := dx*dx + dy*dy + dz*dz
				if r2 >= rmax2 || r2 < rmin2 {
					continue
				}
				classifyAndAdd(table, r2, hist, distSum)
			}
		}
	}
}
