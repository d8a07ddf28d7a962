// Package report formats pair-counting results for human consumption. It is
// the external collaborator the engine hands its histogram to; the engine
// itself never formats output, keeping computation and presentation
// separate (see SPEC_FULL.md §6's note on the reference kernel mixing the
// two).
package report

import (
	"bufio"
	"fmt"
	"io"

	"blainsmith.com/go/seahash"
	"github.com/klauspost/compress/gzip"
)

// WriteLines writes one fixed-width line per bin k = 1..K-1:
//
//	<count:10d> <rpavg:20.8f> <rlow:20.8f> <rhigh:20.8f>
//
// where rlow = rupp[k-1], rhigh = rupp[k], and rpavg is the bin's mean
// distance, or 0.0 when the run did not request it.
func WriteLines(w io.Writer, rupp []float64, counts []uint64, distMean []float64) error {
	if len(counts) != len(rupp) {
		return fmt.Errorf("report: counts has length %d, want %d (len(rupp))", len(counts), len(rupp))
	}
	bw := bufio.NewWriter(w)
	for k := 1; k < len(rupp); k++ {
		rpavg := 0.0
		if distMean != nil {
			rpavg = distMean[k]
		}
		if _, err := fmt.Fprintf(bw, "%10d %20.8f %20.8f %20.8f\n", counts[k], rpavg, rupp[k-1], rupp[k]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// NewCompressedWriter wraps w in a gzip writer for archiving large
// reporting streams (many bins, many runs logged over time), grounded on
// the teacher's interval package reaching for klauspost/compress/gzip
// rather than the standard library's slower implementation. Callers must
// Close the returned writer to flush the gzip trailer. Used by
// cmd/pair-count's -gzip flag.
func NewCompressedWriter(w io.Writer) io.WriteCloser {
	return gzip.NewWriter(w)
}

// Checksum returns a fast, non-cryptographic hash of a histogram's counts,
// useful as a one-line log fingerprint to confirm two runs (e.g. scalar vs
// SIMD kernel, or two thread counts) produced the same result without
// diffing the full bin table.
func Checksum(counts []uint64) uint64 {
	buf := make([]byte, 8*len(counts))
	for i, c := range counts {
		buf[8*i+0] = byte(c)
		buf[8*i+1] = byte(c >> 8)
		buf[8*i+2] = byte(c >> 16)
		buf[8*i+3] = byte(c >> 24)
		buf[8*i+4] = byte(c >> 32)
		buf[8*i+5] = byte(c >> 40)
		buf[8*i+6] = byte(c >> 48)
		buf[8*i+7] = byte(c >> 56)
	}
	return seahash.Sum64(buf)
}
