package geometry

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Digitization holds the channel geometry of one module's readout: the local
// coordinate of channel (0,0) and the channel pitch along both local axes.
// Measurement variance uses the standard pitch^2/12 binary-resolution term.
type Digitization struct {
	Offset0, Offset1 float64
	Pitch0, Pitch1   float64
}

// Variance0 returns the local-axis-0 variance of a single-channel measurement.
func (d Digitization) Variance0() float64 { return d.Pitch0 * d.Pitch0 / 12 }

// Variance1 returns the local-axis-1 variance of a single-channel measurement.
func (d Digitization) Variance1() float64 { return d.Pitch1 * d.Pitch1 / 12 }

// Module is the geometric and digitization context of one sensor. Cells and
// measurements refer to modules by index into the event's module collection.
type Module struct {
	ID           uint64
	Placement    Transform
	Digitization Digitization
}

// Detector maps module ids to their context. Built once from the geometry
// files, shared read-only across events.
type Detector struct {
	byID map[uint64]Module
}

// NewDetector builds a detector from a module list.
func NewDetector(modules []Module) *Detector {
	d := &Detector{byID: make(map[uint64]Module, len(modules))}
	for _, m := range modules {
		d.byID[m.ID] = m
	}
	return d
}

// Module looks up a module by id.
func (d *Detector) Module(id uint64) (Module, bool) {
	m, ok := d.byID[id]
	return m, ok
}

// Len returns the number of known modules.
func (d *Detector) Len() int { return len(d.byID) }

// LoadDetector reads a detector description CSV with one module per row:
//
//	module_id, tx, ty, tz, r00..r22 (row-major rotation), offset0, offset1, pitch0, pitch1
//
// The first row is treated as a header.
func LoadDetector(path string) (*Detector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open detector file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	var modules []Module
	for row := 0; ; row++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read detector row %d: %w", row, err)
		}
		if row == 0 {
			continue // header
		}
		if len(rec) != 17 {
			return nil, fmt.Errorf("detector row %d: got %d fields, want 17", row, len(rec))
		}
		vals := make([]float64, 16)
		id, err := strconv.ParseUint(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("detector row %d module id: %w", row, err)
		}
		for i := 1; i < 17; i++ {
			vals[i-1], err = strconv.ParseFloat(rec[i], 64)
			if err != nil {
				return nil, fmt.Errorf("detector row %d field %d: %w", row, i, err)
			}
		}
		t := Identity
		t[3], t[7], t[11] = vals[0], vals[1], vals[2]
		t[0], t[1], t[2] = vals[3], vals[4], vals[5]
		t[4], t[5], t[6] = vals[6], vals[7], vals[8]
		t[8], t[9], t[10] = vals[9], vals[10], vals[11]
		modules = append(modules, Module{
			ID:        id,
			Placement: t,
			Digitization: Digitization{
				Offset0: vals[12], Offset1: vals[13],
				Pitch0: vals[14], Pitch1: vals[15],
			},
		})
	}
	return NewDetector(modules), nil
}
