// Package bins classifies squared pairwise distances into radial bin
// ordinals for a monotone sequence of bin edges.
package bins

import (
	"sort"

	"github.com/pkg/errors"
)

// Out is returned by Classify/ClassifyBinary for a squared distance outside
// [rmin^2, rmax^2).
const Out = -1

// Table holds an ordered sequence of bin edges and their squares. Bin k (1 <=
// k <= K-1) covers the half-open interval [Rupp[k-1], Rupp[k]) in linear
// distance. Bin 0 is the unused lower-bound slot.
type Table struct {
	Rupp    []float64
	RuppSqr []float64
}

// New validates edges (K >= 2, strictly increasing, rmax > 0) and
// precomputes their squares.
func New(rupp []float64) (*Table, error) {
	if len(rupp) < 2 {
		return nil, errors.Errorf("bins: need at least 2 edges, got %d", len(rupp))
	}
	for i := 1; i < len(rupp); i++ {
		if rupp[i] <= rupp[i-1] {
			return nil, errors.Errorf("bins: edges must be strictly increasing, rupp[%d]=%v <= rupp[%d]=%v", i, rupp[i], i-1, rupp[i-1])
		}
	}
	if rupp[0] < 0 {
		return nil, errors.New("bins: rupp[0] must be non-negative")
	}
	ruppSqr := make([]float64, len(rupp))
	for i, r := range rupp {
		ruppSqr[i] = r * r
	}
	return &Table{Rupp: rupp, RuppSqr: ruppSqr}, nil
}

// K returns the number of edges.
func (t *Table) K() int { return len(t.Rupp) }

// RminSqr returns rupp[0]^2, the lower bound of the covered range.
func (t *Table) RminSqr() float64 { return t.RuppSqr[0] }

// RmaxSqr returns rupp[K-1]^2, the upper bound of the covered range.
func (t *Table) RmaxSqr() float64 { return t.RuppSqr[len(t.RuppSqr)-1] }

// Classify returns the unique k in [1, K-1] such that
// RuppSqr[k-1] <= r2 < RuppSqr[k], or Out if r2 falls outside
// [RminSqr, RmaxSqr). Scans from k=K-1 downward, as the reference kernel
// does, so ties at an exact edge resolve to the upper (closed-below) bin.
func (t *Table) Classify(r2 float64) int {
	if r2 < t.RminSqr() || r2 >= t.RmaxSqr() {
		return Out
	}
	for k := len(t.RuppSqr) - 1; k >= 1; k-- {
		if r2 >= t.RuppSqr[k-1] {
			return k
		}
	}
	return Out
}

// ClassifyBinary is equivalent to Classify but locates the bin with a binary
// search instead of a linear scan; it yields the identical ordinal for any
// input. Worthwhile once K grows large enough that the linear scan's branch
// mispredictions dominate.
func (t *Table) ClassifyBinary(r2 float64) int {
	if r2 < t.RminSqr() || r2 >= t.RmaxSqr() {
		return Out
	}
	// sort.Search finds the smallest k such that RuppSqr[k] > r2; that k is
	// exactly the bin ordinal under the closed-below/open-above convention.
	k := sort.Search(len(t.RuppSqr), func(k int) bool { return t.RuppSqr[k] > r2 })
	return k
}
