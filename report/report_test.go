package report_test

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haloclust/paircount/report"
)

func TestWriteLinesFormat(t *testing.T) {
	var buf bytes.Buffer
	rupp := []float64{0.0, 1.0, 2.0}
	counts := []uint64{0, 3, 7}
	distMean := []float64{0, 0.5, 1.75}

	require.NoError(t, report.WriteLines(&buf, rupp, counts, distMean))

	want := "" +
		"         3           0.50000000           0.00000000           1.00000000\n" +
		"         7           1.75000000           1.00000000           2.00000000\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteLinesWithoutMeanDistanceReportsZero(t *testing.T) {
	var buf bytes.Buffer
	rupp := []float64{0.0, 5.0}
	counts := []uint64{0, 4}

	require.NoError(t, report.WriteLines(&buf, rupp, counts, nil))

	want := "         4           0.00000000           0.00000000           5.00000000\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteLinesRejectsLengthMismatch(t *testing.T) {
	var buf bytes.Buffer
	err := report.WriteLines(&buf, []float64{0.0, 1.0}, []uint64{0}, nil)
	assert.Error(t, err)
}

func TestNewCompressedWriterRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	gz := report.NewCompressedWriter(&buf)
	rupp := []float64{0.0, 1.0}
	counts := []uint64{0, 2}

	require.NoError(t, report.WriteLines(gz, rupp, counts, nil))
	require.NoError(t, gz.Close())

	zr, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	defer zr.Close()

	got, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "         2           0.00000000           0.00000000           1.00000000\n", string(got))
}

func TestChecksumIsStableAndOrderSensitive(t *testing.T) {
	a := report.Checksum([]uint64{1, 2, 3})
	b := report.Checksum([]uint64{1, 2, 3})
	c := report.Checksum([]uint64{3, 2, 1})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
