// Command pair-count reads one or two whitespace-separated coordinate
// files and reports the radial pair-count histogram between them, using
// the paircount engine. Parsing the input files and the CLI surface itself
// are exactly the collaborators SPEC_FULL.md §1 says live outside the
// kernel: this file exists only to exercise the engine end-to-end.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/haloclust/paircount"
	"github.com/haloclust/paircount/grid"
	"github.com/haloclust/paircount/report"
)

var (
	d1Path      = flag.String("d1", "", "Path to the first point cloud's coordinate file (one 'x y z' triple per line)")
	d2Path      = flag.String("d2", "", "Path to the second point cloud's coordinate file; omit for autocorrelation")
	rmax        = flag.Float64("rmax", 0, "Maximum pair separation the grid is built for")
	edgesFlag   = flag.String("edges", "", "Comma-separated ascending bin edges, e.g. '0,1,2,4'")
	parallelism = flag.Int("parallelism", 0, "Number of worker goroutines; 0 = runtime.NumCPU()")
	meanDist    = flag.Bool("mean-dist", false, "Also accumulate and report the mean distance per bin")
	out         = flag.String("out", "", "Output path for the report; default stdout")
	gzipOut     = flag.Bool("gzip", false, "Compress the report output with gzip")
)

func main() {
	shutdown := grail.Init()
	defer shutdown()

	flag.Parse()
	ctx := vcontext.Background()

	d1, bbox1, err := readCloud(ctx, *d1Path)
	if err != nil {
		log.Error.Printf("pair-count: reading -d1: %v", err)
		os.Exit(1)
	}

	cfg := paircount.Config{
		D1:                  d1,
		Rmax:                *rmax,
		Rupp:                parseEdges(*edgesFlag),
		NumThreads:          resolveParallelism(*parallelism),
		ComputeMeanDistance: *meanDist,
	}
	cfg.BBox = bbox1

	if *d2Path == "" {
		cfg.Autocorr = true
	} else {
		d2, bbox2, err := readCloud(ctx, *d2Path)
		if err != nil {
			log.Error.Printf("pair-count: reading -d2: %v", err)
			os.Exit(1)
		}
		cfg.D2 = d2
		cfg.BBox = unionBox(bbox1, bbox2)
	}

	result, err := paircount.Run(cfg)
	if err != nil {
		log.Error.Printf("pair-count: %v", err)
		os.Exit(1)
	}

	if err := writeReport(ctx, result); err != nil {
		log.Error.Printf("pair-count: writing report: %v", err)
		os.Exit(1)
	}
	log.Debug.Printf("pair-count: histogram checksum %x", report.Checksum(result.Histogram.Counts))
}

// writeReport directs the report to -out (or stdout), optionally gzipped.
func writeReport(ctx context.Context, result paircount.Result) error {
	var w io.Writer = os.Stdout
	closeFile := func() error { return nil }
	if *out != "" {
		f, err := file.Create(ctx, *out)
		if err != nil {
			return err
		}
		w = f.Writer(ctx)
		closeFile = func() error { return f.Close(ctx) }
	}

	if *gzipOut {
		gz := report.NewCompressedWriter(w)
		writeErr := report.WriteLines(gz, result.Rupp, result.Histogram.Counts, result.Histogram.DistMean)
		closeErr := gz.Close()
		if writeErr != nil {
			closeFile()
			return writeErr
		}
		if closeErr != nil {
			closeFile()
			return closeErr
		}
		return closeFile()
	}

	if err := report.WriteLines(w, result.Rupp, result.Histogram.Counts, result.Histogram.DistMean); err != nil {
		closeFile()
		return err
	}
	return closeFile()
}

func resolveParallelism(n int) int {
	if n > 0 {
		return n
	}
	return paircount.DefaultNumThreads()
}

func parseEdges(s string) []float64 {
	parts := strings.Split(s, ",")
	edges := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			log.Error.Printf("pair-count: invalid edge %q: %v", p, err)
			os.Exit(1)
		}
		edges = append(edges, v)
	}
	return edges
}

// readCloud parses a whitespace-separated "x y z" coordinate file and
// returns the points' tightest bounding box widened on every side by a
// small margin (the margin keeps points that land exactly on the computed min/max from
// violating the engine's "strictly inside" precondition).
func readCloud(ctx context.Context, path string) (grid.Points, grid.BoundingBox, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return grid.Points{}, grid.BoundingBox{}, err
	}
	defer f.Close(ctx)

	var pts grid.Points
	scanner := bufio.NewScanner(f.Reader(ctx))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return grid.Points{}, grid.BoundingBox{}, fmt.Errorf("malformed line %q", line)
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return grid.Points{}, grid.BoundingBox{}, err
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return grid.Points{}, grid.BoundingBox{}, err
		}
		z, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return grid.Points{}, grid.BoundingBox{}, err
		}
		pts.X = append(pts.X, x)
		pts.Y = append(pts.Y, y)
		pts.Z = append(pts.Z, z)
	}
	if err := scanner.Err(); err != nil {
		return grid.Points{}, grid.BoundingBox{}, err
	}
	return pts, boundingBoxWithMargin(pts), nil
}

func boundingBoxWithMargin(pts grid.Points) grid.BoundingBox {
	if len(pts.X) == 0 {
		return grid.BoundingBox{Xmin: -1, Xmax: 1, Ymin: -1, Ymax: 1, Zmin: -1, Zmax: 1}
	}
	bbox := grid.BoundingBox{
		Xmin: pts.X[0], Xmax: pts.X[0],
		Ymin: pts.Y[0], Ymax: pts.Y[0],
		Zmin: pts.Z[0], Zmax: pts.Z[0],
	}
	for i := range pts.X {
		bbox.Xmin = min(bbox.Xmin, pts.X[i])
		bbox.Xmax = max(bbox.Xmax, pts.X[i])
		bbox.Ymin = min(bbox.Ymin, pts.Y[i])
		bbox.Ymax = max(bbox.Ymax, pts.Y[i])
		bbox.Zmin = min(bbox.Zmin, pts.Z[i])
		bbox.Zmax = max(bbox.Zmax, pts.Z[i])
	}
	const margin = 1e-6
	bbox.Xmin -= margin
	bbox.Xmax += margin
	bbox.Ymin -= margin
	bbox.Ymax += margin
	bbox.Zmin -= margin
	bbox.Zmax += margin
	return bbox
}

func unionBox(a, b grid.BoundingBox) grid.BoundingBox {
	return grid.BoundingBox{
		Xmin: min(a.Xmin, b.Xmin), Xmax: max(a.Xmax, b.Xmax),
		Ymin: min(a.Ymin, b.Ymin), Ymax: max(a.Ymax, b.Ymax),
		Zmin: min(a.Zmin, b.Zmin), Zmax: max(a.Zmax, b.Zmax),
	}
}
