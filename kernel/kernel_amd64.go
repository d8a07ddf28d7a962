// +build amd64,!appengine

package kernel

import (
	"github.com/klauspost/cpuid/v2"

	"github.com/haloclust/paircount/bins"
	"github.com/haloclust/paircount/grid"
)

// hasBatchSupport reports whether the CPU has the vector facilities the
// lane-batched path is designed to let the compiler autovectorize (at
// minimum SSE2's 128-bit registers hold two float64 lanes; this module does
// not hand-write assembly, so any amd64 CPU qualifies, but the check mirrors
// the teacher's pattern of gating a vectorized path behind a runtime
// feature probe rather than a pure build-tag decision).
func hasBatchSupport() bool {
	return cpuid.CPU.Supports(cpuid.SSE2)
}

func init() {
	if hasBatchSupport() {
		accumulate = batchAccumulate
	} else {
		accumulate = scalarAccumulate
	}
}

// batchAccumulate processes cellB in groups of BatchWidth points. For each
// cellA point it computes BatchWidth squared distances at once, builds a
// range mask, and skips the bin scan entirely for lanes outside
// [rmin^2, rmax^2) — mirroring the reference kernel's AVX path, with the
// vector register replaced by a fixed-size Go array (see kernel.go's doc
// comment on why no actual intrinsics are built here). The tail, shorter
// than BatchWidth, falls back to the scalar per-point loop. Traversal order
// (ascending j, lanes 0..BatchWidth-1 in order within a batch) matches
// scalarAccumulate's order exactly, so distSum accumulates identically.
func batchAccumulate(cellA, cellB grid.Cell, table *bins.Table, hist []uint64, distSum []float64) {
	rmin2 := table.RminSqr()
	rmax2 := table.RmaxSqr()
	nA, nB := cellA.N(), cellB.N()
	nFull := nB - nB%BatchWidth

	var dx, dy, dz, r2 [BatchWidth]float64
	for i := 0; i < nA; i++ {
		x1, y1, z1 := cellA.X[i], cellA.Y[i], cellA.Z[i]

		for j := 0; j < nFull; j += BatchWidth {
			anyInRange := false
			for lane := 0; lane < BatchWidth; lane++ {
				dx[lane] = x1 - cellB.X[j+lane]
				dy[lane] = y1 - cellB.Y[j+lane]
				dz[lane] = z1 - cellB.Z[j+lane]
				r2[lane] = dx[lane]*dx[lane] + dy[lane]*dy[lane] + dz[lane]*dz[lane]
				if r2[lane] < rmax2 && r2[lane] >= rmin2 {
					anyInRange = true
				}
			}
			if !anyInRange {
				continue
			}
			for lane := 0; lane < BatchWidth; lane++ {
				if r2[lane] >= rmax2 || r2[lane] < rmin2 {
					continue
				}
				classifyAndAdd(table, r2[lane], hist, distSum)
			}
		}

		// Tail: fewer than BatchWidth points remain.
		for j := nFull; j < nB; j++ {
			ddx := x1 - cellB.X[j]
			ddy := y1 - cellB.Y[j]
			ddz := z1 - cellB.Z[j]
			rr2 := ddx*ddx + ddy*ddy + ddz*ddz
			if rr2 >= rmax2 || rr2 < rmin2 {
				continue
			}
			classifyAndAdd(table, rr2, hist, distSum)
		}
	}
}
