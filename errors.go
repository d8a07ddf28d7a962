package paircount

import "github.com/pkg/errors"

var (
	errRmaxNonPositive = errors.New("paircount: rmax must be positive")
	errTooManyCells    = errors.New("paircount: lattice cell count exceeds Config.MaxCells")
	errGridMismatch    = errors.New("paircount: cross-correlation lattices disagree on (nx, ny, nz)")
	errWorkerPanic     = errors.New("paircount: worker goroutine panicked")
)

// ErrKind classifies why a Run call failed.
type ErrKind int

const (
	// InvalidGeometry: a point lies outside the bounding box, or an axis of
	// the bounding box is degenerate (xmax <= xmin).
	InvalidGeometry ErrKind = iota
	// InvalidBins: K < 2, non-monotone edges, or rmax <= 0.
	InvalidBins
	// GridMismatch: the two lattices built for a cross-correlation disagree
	// on (nx, ny, nz).
	GridMismatch
	// OutOfMemory: an allocation guard rejected an oversized request before
	// any lattice or histogram memory was committed. Run also reports a
	// panic inside a counting worker under this kind.
	OutOfMemory
)

func (k ErrKind) String() string {
	switch k {
	case InvalidGeometry:
		return "InvalidGeometry"
	case InvalidBins:
		return "InvalidBins"
	case GridMismatch:
		return "GridMismatch"
	case OutOfMemory:
		return "OutOfMemory"
	default:
		return "Unknown"
	}
}

// Error is the fatal error a Run call reports. There is no per-cell
// recovery: any failure here means no histogram or mean-distance array is
// returned, and any memory already allocated during the attempt is released
// before Error is returned.
type Error struct {
	Kind  ErrKind
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.cause.Error()
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.cause }

func wrapErr(kind ErrKind, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, cause: errors.WithStack(cause)}
}
