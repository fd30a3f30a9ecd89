// Package main plots persisted seed collections from a seedfinder database:
// a weight versus z-vertex scatter and a z-vertex histogram per run.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/apex-hep/trackseed/internal/tracker/storage/sqlite"
)

func main() {
	dbPath := flag.String("db", "", "seedfinder sqlite database (required)")
	runID := flag.String("run", "", "run id to plot; defaults to the newest run")
	outDir := flag.String("out", "plots", "output directory for PNG files")
	list := flag.Bool("list", false, "list runs and exit")
	flag.Parse()

	if *dbPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("seed-plot: %v", err)
	}
	defer store.Close()

	runs, err := store.Runs()
	if err != nil {
		log.Fatalf("seed-plot: %v", err)
	}
	if *list {
		for _, r := range runs {
			fmt.Printf("%s\t%d\n", r.RunID, r.CreatedUnixNanos)
		}
		return
	}
	if *runID == "" {
		if len(runs) == 0 {
			log.Fatal("seed-plot: database has no runs")
		}
		*runID = runs[0].RunID
	}

	seeds, err := store.SeedsForRun(*runID)
	if err != nil {
		log.Fatalf("seed-plot: %v", err)
	}
	if len(seeds) == 0 {
		log.Fatalf("seed-plot: run %s has no seeds", *runID)
	}
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("seed-plot: %v", err)
	}

	if err := plotWeightScatter(seeds, filepath.Join(*outDir, "weight_vs_zvertex.png")); err != nil {
		log.Fatalf("seed-plot: %v", err)
	}
	if err := plotZVertexHist(seeds, filepath.Join(*outDir, "zvertex_hist.png")); err != nil {
		log.Fatalf("seed-plot: %v", err)
	}
	log.Printf("plotted %d seeds of run %s to %s", len(seeds), *runID, *outDir)
}

func plotWeightScatter(seeds []sqlite.SeedRow, file string) error {
	p := plot.New()
	p.Title.Text = "Seed weight vs z-vertex"
	p.X.Label.Text = "z vertex [mm]"
	p.Y.Label.Text = "weight"

	pts := make(plotter.XYs, len(seeds))
	for i, s := range seeds {
		pts[i] = plotter.XY{X: s.ZVertex, Y: s.Weight}
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("build scatter: %w", err)
	}
	sc.GlyphStyle.Radius = vg.Points(1.5)
	sc.GlyphStyle.Color = color.RGBA{B: 200, A: 255}
	p.Add(sc)

	if err := p.Save(10*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save %s: %w", file, err)
	}
	return nil
}

func plotZVertexHist(seeds []sqlite.SeedRow, file string) error {
	p := plot.New()
	p.Title.Text = "Seed z-vertex distribution"
	p.X.Label.Text = "z vertex [mm]"
	p.Y.Label.Text = "seeds"

	vals := make(plotter.Values, len(seeds))
	for i, s := range seeds {
		vals[i] = s.ZVertex
	}
	h, err := plotter.NewHist(vals, 50)
	if err != nil {
		return fmt.Errorf("build histogram: %w", err)
	}
	h.FillColor = color.RGBA{R: 120, G: 160, B: 220, A: 255}
	p.Add(h)

	if err := p.Save(10*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save %s: %w", file, err)
	}
	return nil
}
