package paircount

import (
	"math"
	"sync"

	baseerrors "github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"golang.org/x/sys/cpu"

	"github.com/haloclust/paircount/bins"
	"github.com/haloclust/paircount/grid"
	"github.com/haloclust/paircount/kernel"
)

// workerHist is one worker's exclusive accumulator. The cache-line pad
// keeps adjacent workers' histograms from sharing a line, the Go analogue
// of spec.md §5's "pad slices to a cache line if the K*sizeof(counter)
// footprint is small".
type workerHist struct {
	counts  []uint64
	distSum []float64
	_       cpu.CacheLinePad
}

// Run executes one pair-counting call: Build -> Count -> Reduce -> Report,
// each phase a blocking barrier as spec.md §4.4 requires. On any failure,
// no partial Result is returned; Go's garbage collector reclaims whatever
// lattice or histogram memory was allocated during the attempt once this
// function's local references go out of scope, satisfying the "release on
// every exit path" requirement without explicit free calls.
func Run(cfg Config) (Result, error) {
	table, err := bins.New(cfg.Rupp)
	if err != nil {
		return Result{}, wrapErr(InvalidBins, err)
	}
	if cfg.Rmax <= 0 {
		return Result{}, wrapErr(InvalidBins, errRmaxNonPositive)
	}

	bf := cfg.binRefineFactor()

	// The MaxCells guard runs before any lattice is allocated, using the same
	// per-axis cell count grid.Build computes.
	if cfg.MaxCells > 0 {
		cells := 1.0
		for _, span := range [3]float64{cfg.BBox.Xmax - cfg.BBox.Xmin, cfg.BBox.Ymax - cfg.BBox.Ymin, cfg.BBox.Zmax - cfg.BBox.Zmin} {
			cells *= math.Max(1, math.Floor(span*float64(bf)/cfg.Rmax))
		}
		if cells > float64(cfg.MaxCells) {
			return Result{}, wrapErr(OutOfMemory, errTooManyCells)
		}
	}

	log.Debug.Printf("paircount: building lattice(s), autocorr=%v, binRefineFactor=%d", cfg.Autocorr, bf)

	pair, err := buildLatticePair(cfg, bf)
	if err != nil {
		return Result{}, err
	}

	nThreads := cfg.numThreads()
	K := table.K()

	workers := make([]workerHist, nThreads)
	for w := range workers {
		workers[w].counts = make([]uint64, K)
		if cfg.ComputeMeanDistance {
			workers[w].distSum = make([]float64, K)
		}
	}

	nCells := pair.A.NumCells()
	// Visit outer cells in a scrambled order (load-balance only; never
	// changes the resulting histogram) so a run of sparse cells at the
	// start of the lattice doesn't all land on the same worker while a
	// dense region lands on another. Each worker's share of that order is
	// assigned statically below, by stride, rather than handed out over a
	// shared channel: a channel would make which worker processes which
	// cell a function of goroutine scheduling, which would make DistMean's
	// floating-point reduction order (and so its exact value) vary from run
	// to run whenever NumThreads > 1. A fixed per-worker assignment keeps
	// the ascending-worker-id reduction below reproducible for a given
	// NumThreads, at the cost of a fast worker no longer being able to pick
	// up a slow worker's remaining cells mid-run.
	order := make([]int, nCells)
	for i := range order {
		order[i] = i
	}
	shuffleCells(order)

	log.Debug.Printf("paircount: starting %d workers over %d cells", nThreads, nCells)

	var wg sync.WaitGroup
	var callErr baseerrors.Once
	for w := 0; w < nThreads; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error.Printf("paircount: worker %d panicked: %v", w, r)
					callErr.Set(errWorkerPanic)
				}
			}()
			wh := &workers[w]
			for i := w; i < nCells; i += nThreads {
				processOuterCell(pair, order[i], bf, table, wh)
			}
		}(w)
	}
	wg.Wait()
	if err := callErr.Err(); err != nil {
		// spec.md's four-kind taxonomy has no "worker died" entry; OutOfMemory
		// is the closest fit, since both share the contract that nothing
		// partial is ever returned and whatever was allocated is released.
		return Result{}, wrapErr(OutOfMemory, err)
	}

	log.Debug.Printf("paircount: reducing %d worker histograms", nThreads)
	hist := Histogram{Counts: make([]uint64, K)}
	var distSum []float64
	if cfg.ComputeMeanDistance {
		distSum = make([]float64, K)
		hist.DistMean = make([]float64, K)
	}
	// Reduce in ascending worker id, and within a worker in the fixed,
	// statically-assigned outer cell order set up above, so DistMean is
	// reproducible bit-for-bit across repeated runs for a given NumThreads
	// (spec.md §5).
	for w := 0; w < nThreads; w++ {
		for k := 0; k < K; k++ {
			hist.Counts[k] += workers[w].counts[k]
		}
		if cfg.ComputeMeanDistance {
			for k := 0; k < K; k++ {
				distSum[k] += workers[w].distSum[k]
			}
		}
	}
	if cfg.ComputeMeanDistance {
		for k := 0; k < K; k++ {
			if hist.Counts[k] > 0 {
				hist.DistMean[k] = distSum[k] / float64(hist.Counts[k])
			}
		}
	}
	hist.Counts[0] = 0

	return Result{Rupp: cfg.Rupp, Histogram: hist}, nil
}

// buildLatticePair builds lattice1 (and, unless autocorr, lattice2)
// concurrently: the two builds are independent, so building them in
// parallel with base/traverse shortens the Build phase's wall-clock time
// when two large clouds are gridded against the same box.
func buildLatticePair(cfg Config, bf int) (grid.LatticePair, error) {
	if cfg.Autocorr {
		a, err := grid.Build(cfg.D1, cfg.BBox, cfg.Rmax, bf)
		if err != nil {
			return grid.LatticePair{}, wrapErr(InvalidGeometry, err)
		}
		return grid.LatticePair{A: a, B: a}, nil
	}

	var a, b *grid.Lattice
	var aErr, bErr error
	err := traverse.Each(2, func(i int) error {
		switch i {
		case 0:
			a, aErr = grid.Build(cfg.D1, cfg.BBox, cfg.Rmax, bf)
			return aErr
		default:
			b, bErr = grid.Build(cfg.D2, cfg.BBox, cfg.Rmax, bf)
			return bErr
		}
	})
	if err != nil {
		if aErr != nil {
			return grid.LatticePair{}, wrapErr(InvalidGeometry, aErr)
		}
		return grid.LatticePair{}, wrapErr(InvalidGeometry, bErr)
	}
	if a.Nx != b.Nx || a.Ny != b.Ny || a.Nz != b.Nz {
		return grid.LatticePair{}, wrapErr(GridMismatch, errGridMismatch)
	}
	return grid.LatticePair{A: a, B: b}, nil
}

// processOuterCell enumerates the (2*bf+1)^3 neighborhood of outer cell idx
// and feeds every (outer, neighbor) pair of cells through the kernel. The
// driver checks the row-major index reconstruction as a correctness
// invariant, matching the reference kernel's debug assertion.
func processOuterCell(pair grid.LatticePair, idx, bf int, table *bins.Table, wh *workerHist) {
	l := pair.A
	ix, iy, iz := l.Coords(idx)
	if l.Index(ix, iy, iz) != idx {
		panic("paircount: row-major index reconstruction mismatch")
	}
	if !l.Occupied(idx) {
		return
	}
	first := l.Cells[idx]

	for dix := -bf; dix <= bf; dix++ {
		jx := ix + dix
		if jx < 0 || jx >= l.Nx {
			continue
		}
		for diy := -bf; diy <= bf; diy++ {
			jy := iy + diy
			if jy < 0 || jy >= l.Ny {
				continue
			}
			for diz := -bf; diz <= bf; diz++ {
				jz := iz + diz
				if jz < 0 || jz >= l.Nz {
					continue
				}
				j := pair.B.Index(jx, jy, jz)
				if !pair.B.Occupied(j) {
					continue
				}
				second := pair.B.Cells[j]
				kernel.Accumulate(first, second, table, wh.counts, wh.distSum)
			}
		}
	}
}

func shuffleCells(order []int) {
	const salt = 0x9e3779b97f4a7c15
	n := len(order)
	for i := n - 1; i > 0; i-- {
		j := int(grid.ShuffleSeed(order[i], salt) % uint64(i+1))
		order[i], order[j] = order[j], order[i]
	}
}
