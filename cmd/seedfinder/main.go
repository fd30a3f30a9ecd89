// Package main runs the seed finding chain over a directory of per-event
// cell CSV files and optionally persists the results to a sqlite database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/apex-hep/trackseed/internal/monitoring"
	"github.com/apex-hep/trackseed/internal/tracker/geometry"
	"github.com/apex-hep/trackseed/internal/tracker/l1cells"
	"github.com/apex-hep/trackseed/internal/tracker/pipeline"
	"github.com/apex-hep/trackseed/internal/tracker/storage/sqlite"
)

// Config holds the command line configuration.
type Config struct {
	InputDir   string
	Detector   string
	Events     int
	SkipEvents int
	DBPath     string
	Workers    int
	BFieldZ    float64
	TargetPart int
	Verbose    bool
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.InputDir, "input", "", "directory containing event cell CSV files (required)")
	flag.StringVar(&cfg.Detector, "detector", "", "detector description CSV (required)")
	flag.IntVar(&cfg.Events, "events", 1, "number of events to process")
	flag.IntVar(&cfg.SkipEvents, "skip", 0, "number of leading events to skip")
	flag.StringVar(&cfg.DBPath, "db", "", "sqlite database to persist results to (optional)")
	flag.IntVar(&cfg.Workers, "workers", 0, "worker limit, 0 for one per CPU")
	flag.Float64Var(&cfg.BFieldZ, "bfield", 2.0, "longitudinal magnetic field in tesla")
	flag.IntVar(&cfg.TargetPart, "target-partition", 0, "target cells per clustering partition, 0 for the default")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "log per-event stage counts")
	flag.Parse()
	return cfg
}

func main() {
	cfg := parseFlags()
	if cfg.InputDir == "" || cfg.Detector == "" {
		flag.Usage()
		os.Exit(2)
	}
	if !cfg.Verbose {
		monitoring.SetLogger(nil)
	}
	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("seedfinder: %v", err)
	}
}

func run(ctx context.Context, cfg Config) error {
	det, err := geometry.LoadDetector(cfg.Detector)
	if err != nil {
		return err
	}

	pcfg := pipeline.DefaultConfig()
	pcfg.BFieldZ = cfg.BFieldZ
	pcfg.Workers = cfg.Workers
	if cfg.TargetPart > 0 {
		pcfg.Cluster.TargetPartitionSize = cfg.TargetPart
		if m := 2 * cfg.TargetPart; m > pcfg.Cluster.MaxPartitionSize {
			pcfg.Cluster.MaxPartitionSize = m
		}
	}

	var store *sqlite.Store
	if cfg.DBPath != "" {
		store, err = sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		run, err := store.CreateRun(pcfg)
		if err != nil {
			return err
		}
		pcfg.Sink = store.NewRunSink(run.RunID)
		log.Printf("persisting to %s, run %s", cfg.DBPath, run.RunID)
	}

	p, err := pipeline.New(pcfg)
	if err != nil {
		return err
	}

	start := time.Now()
	var totalCells, totalSeeds int
	processed := 0
	for eventID := cfg.SkipEvents; eventID < cfg.SkipEvents+cfg.Events; eventID++ {
		cells, modules, err := l1cells.ReadEvent(cfg.InputDir, eventID, det)
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("event %d: no input file, stopping", eventID)
			break
		}
		if err != nil {
			return fmt.Errorf("event %d: %w", eventID, err)
		}
		res, err := p.ProcessEvent(ctx, eventID, cells, modules)
		if err != nil {
			return err
		}
		totalCells += len(cells)
		totalSeeds += len(res.Seeds)
		processed++
	}

	elapsed := time.Since(start)
	log.Printf("processed %d events in %v: %d cells, %d seeds",
		processed, elapsed.Round(time.Millisecond), totalCells, totalSeeds)
	return nil
}
