// Package grid builds the uniform 3-D cell lattice that the pair-counting
// kernel searches instead of scanning every point against every other point.
//
// The lattice guarantees that any two points closer than rmax live in cells
// whose (ix, iy, iz) indices differ by at most binRefineFactor along each
// axis; the driver relies on this to limit its neighbor search to a
// (2*bf+1)^3 block of cells around each outer cell.
package grid

import (
	"math"

	"github.com/dgryski/go-farm"
	"github.com/kelindar/bitmap"
	"github.com/pkg/errors"
)

// Points is a point cloud: three parallel coordinate slices of equal length.
type Points struct {
	X, Y, Z []float64
}

// Len returns the number of points in the cloud.
func (p Points) Len() int { return len(p.X) }

// BoundingBox is the axis-aligned box every point of a cloud must lie within.
type BoundingBox struct {
	Xmin, Xmax float64
	Ymin, Ymax float64
	Zmin, Zmax float64
}

func (b BoundingBox) valid() error {
	if b.Xmax <= b.Xmin || b.Ymax <= b.Ymin || b.Zmax <= b.Zmin {
		return errors.Errorf("grid: degenerate bounding box %+v", b)
	}
	return nil
}

func (b BoundingBox) contains(x, y, z float64) bool {
	return x >= b.Xmin && x <= b.Xmax &&
		y >= b.Ymin && y <= b.Ymax &&
		z >= b.Zmin && z <= b.Zmax
}

// Cell is a contiguous group of points sharing one lattice voxel. A cell
// exclusively owns its coordinate slices.
type Cell struct {
	X, Y, Z []float64
}

// N returns the number of points held by the cell.
func (c Cell) N() int { return len(c.X) }

// Lattice is an (Nx, Ny, Nz) grid of cells in row-major order: the cell at
// (ix, iy, iz) lives at linear index ix*Ny*Nz + iy*Nz + iz.
type Lattice struct {
	Nx, Ny, Nz int
	Cells      []Cell

	// occupied marks which linear cell indices hold at least one point, so
	// the driver can skip empty neighbor cells without touching their (empty)
	// coordinate slices.
	occupied bitmap.Bitmap
}

// NumCells returns Nx*Ny*Nz.
func (l *Lattice) NumCells() int { return l.Nx * l.Ny * l.Nz }

// Index returns the row-major linear index for cell coordinates (ix, iy, iz).
func (l *Lattice) Index(ix, iy, iz int) int {
	return ix*l.Ny*l.Nz + iy*l.Nz + iz
}

// Coords recovers (ix, iy, iz) from a linear index, the inverse of Index.
// Callers that need a correctness check should verify
// iz+Nz*iy+Nz*Ny*ix == idx, mirroring the assertion in the original C kernel.
func (l *Lattice) Coords(idx int) (ix, iy, iz int) {
	iz = idx % l.Nz
	ix = idx / (l.Nz * l.Ny)
	iy = (idx - iz - ix*l.Nz*l.Ny) / l.Nz
	return
}

// Occupied reports whether the cell at the given linear index holds any
// points. Empty cells are common near the edges of an irregular point cloud
// and are skipped by the driver without dereferencing their Cell.
func (l *Lattice) Occupied(idx int) bool {
	return l.occupied.Contains(uint32(idx))
}

// Build partitions pts into cells of a uniform lattice covering bbox, sized
// so that each axis's cell width is at least rmax/binRefineFactor. Every
// point must lie inside bbox; Build returns an error otherwise.
//
// Allocation is two-pass: a first counting pass sizes each cell's backing
// slice exactly once, then a fill pass copies coordinates in, avoiding the
// repeated reallocation a naive append-per-point approach would incur.
func Build(pts Points, bbox BoundingBox, rmax float64, binRefineFactor int) (*Lattice, error) {
	if rmax <= 0 {
		return nil, errors.New("grid: rmax must be positive")
	}
	if binRefineFactor < 1 {
		return nil, errors.New("grid: binRefineFactor must be >= 1")
	}
	if err := bbox.valid(); err != nil {
		return nil, err
	}
	n := pts.Len()
	if len(pts.Y) != n || len(pts.Z) != n {
		return nil, errors.New("grid: X, Y, Z must have equal length")
	}

	nx := axisCellCount(bbox.Xmax-bbox.Xmin, rmax, binRefineFactor)
	ny := axisCellCount(bbox.Ymax-bbox.Ymin, rmax, binRefineFactor)
	nz := axisCellCount(bbox.Zmax-bbox.Zmin, rmax, binRefineFactor)

	wx := (bbox.Xmax - bbox.Xmin) / float64(nx)
	wy := (bbox.Ymax - bbox.Ymin) / float64(ny)
	wz := (bbox.Zmax - bbox.Zmin) / float64(nz)

	l := &Lattice{Nx: nx, Ny: ny, Nz: nz, Cells: make([]Cell, nx*ny*nz)}
	l.occupied.Grow(uint32(l.NumCells()))

	cellOf := make([]int, n)
	counts := make([]int, l.NumCells())
	for i := 0; i < n; i++ {
		x, y, z := pts.X[i], pts.Y[i], pts.Z[i]
		if !bbox.contains(x, y, z) {
			return nil, errors.Errorf("grid: point %d (%v,%v,%v) lies outside bounding box %+v", i, x, y, z, bbox)
		}
		ix := clampIndex(int((x-bbox.Xmin)/wx), nx)
		iy := clampIndex(int((y-bbox.Ymin)/wy), ny)
		iz := clampIndex(int((z-bbox.Zmin)/wz), nz)
		idx := l.Index(ix, iy, iz)
		cellOf[i] = idx
		counts[idx]++
	}

	for idx, c := range counts {
		if c == 0 {
			continue
		}
		l.Cells[idx].X = make([]float64, 0, c)
		l.Cells[idx].Y = make([]float64, 0, c)
		l.Cells[idx].Z = make([]float64, 0, c)
		l.occupied.Set(uint32(idx))
	}
	for i := 0; i < n; i++ {
		idx := cellOf[i]
		cell := &l.Cells[idx]
		cell.X = append(cell.X, pts.X[i])
		cell.Y = append(cell.Y, pts.Y[i])
		cell.Z = append(cell.Z, pts.Z[i])
	}
	return l, nil
}

func axisCellCount(span, rmax float64, binRefineFactor int) int {
	n := int(math.Floor(span * float64(binRefineFactor) / rmax))
	if n < 1 {
		n = 1
	}
	return n
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// LatticePair carries the two lattices a cross-correlation (or
// autocorrelation) run searches. Under autocorrelation B aliases A: there is
// exactly one owner of the underlying cell storage, so no double-free or
// double-build ever occurs.
type LatticePair struct {
	A, B *Lattice
}

// BuildPair builds the lattice(s) for a run. When autocorr is true, only D1
// is gridded and B aliases A. Otherwise both clouds are gridded against the
// same bounding box and binRefineFactor, and their cell counts are required
// to agree (a GridMismatch precondition the caller surfaces as an error).
func BuildPair(d1, d2 Points, bbox BoundingBox, rmax float64, binRefineFactor int, autocorr bool) (LatticePair, error) {
	a, err := Build(d1, bbox, rmax, binRefineFactor)
	if err != nil {
		return LatticePair{}, err
	}
	if autocorr {
		return LatticePair{A: a, B: a}, nil
	}
	b, err := Build(d2, bbox, rmax, binRefineFactor)
	if err != nil {
		return LatticePair{}, err
	}
	if a.Nx != b.Nx || a.Ny != b.Ny || a.Nz != b.Nz {
		return LatticePair{}, errors.Errorf("grid: mismatched lattices %dx%dx%d vs %dx%dx%d", a.Nx, a.Ny, a.Nz, b.Nx, b.Ny, b.Nz)
	}
	return LatticePair{A: a, B: b}, nil
}

// ShuffleSeed derives a deterministic pseudo-random ordering key for a cell
// index. The driver uses this to visit outer cells in a scrambled order so
// that its stride-partitioned workers don't have a spatially clustered run
// of light cells land on some workers while others inherit all the dense
// ones; it has no effect on the resulting histogram, only on load balance.
func ShuffleSeed(idx int, salt uint64) uint64 {
	var buf [8]byte
	v := uint64(idx) ^ salt
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
	buf[4] = byte(v >> 32)
	buf[5] = byte(v >> 40)
	buf[6] = byte(v >> 48)
	buf[7] = byte(v >> 56)
	return farm.Hash64(buf[:])
}
