package l1cells

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/apex-hep/trackseed/internal/tracker/geometry"
)

// EventFileName returns the cell file name for an event id, e.g.
// "event000000042-cells.csv".
func EventFileName(eventID int) string {
	return fmt.Sprintf("event%09d-cells.csv", eventID)
}

// ReadEvent reads one event's cells from dir. Rows are
// "module_id,channel0,channel1,activation"; the first row is a header.
// Returned cells are sorted by (module, channel1, channel0) and reference
// the returned event-local module collection by index. Modules appearing in
// the file but unknown to the detector are an error.
func ReadEvent(dir string, eventID int, det *geometry.Detector) ([]Cell, []Module, error) {
	path := filepath.Join(dir, EventFileName(eventID))
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open event %d: %w", eventID, err)
	}
	defer f.Close()

	cells, modules, err := readCells(f, det)
	if err != nil {
		return nil, nil, fmt.Errorf("event %d: %w", eventID, err)
	}
	return cells, modules, nil
}

func readCells(f io.Reader, det *geometry.Detector) ([]Cell, []Module, error) {
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	var cells []Cell
	var modules []Module
	moduleLink := make(map[uint64]uint32)

	for row := 0; ; row++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read cell row %d: %w", row, err)
		}
		if row == 0 {
			continue // header
		}
		if len(rec) != 4 {
			return nil, nil, fmt.Errorf("cell row %d: got %d fields, want 4", row, len(rec))
		}
		moduleID, err := strconv.ParseUint(rec[0], 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("cell row %d module id: %w", row, err)
		}
		c0, err := strconv.ParseInt(rec[1], 10, 32)
		if err != nil {
			return nil, nil, fmt.Errorf("cell row %d channel0: %w", row, err)
		}
		c1, err := strconv.ParseInt(rec[2], 10, 32)
		if err != nil {
			return nil, nil, fmt.Errorf("cell row %d channel1: %w", row, err)
		}
		act, err := strconv.ParseFloat(rec[3], 32)
		if err != nil {
			return nil, nil, fmt.Errorf("cell row %d activation: %w", row, err)
		}

		link, ok := moduleLink[moduleID]
		if !ok {
			mod, known := det.Module(moduleID)
			if !known {
				return nil, nil, fmt.Errorf("cell row %d: unknown module %d", row, moduleID)
			}
			link = uint32(len(modules))
			moduleLink[moduleID] = link
			modules = append(modules, mod)
		}

		cells = append(cells, Cell{
			Channel0:   int32(c0),
			Channel1:   int32(c1),
			Activation: float32(act),
			ModuleLink: link,
		})
	}

	SortCells(cells)
	return cells, modules, nil
}

// SortCells orders cells by (module, channel1, channel0), the canonical
// order assumed by partitioning and the clustering adjacency scan.
func SortCells(cells []Cell) {
	sort.Slice(cells, func(i, j int) bool {
		a, b := cells[i], cells[j]
		if a.ModuleLink != b.ModuleLink {
			return a.ModuleLink < b.ModuleLink
		}
		if a.Channel1 != b.Channel1 {
			return a.Channel1 < b.Channel1
		}
		return a.Channel0 < b.Channel0
	})
}
