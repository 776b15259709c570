package trace

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// ErrEmptyDiagram is returned when a CSV source holds no coordinate row.
var ErrEmptyDiagram = errors.New("diagram has no coordinate row")

// ParseCSV reads a diagram from normalized CSV (see package doc).
//
// The first record is the column axis; every following record is one row.
// Rows whose length differs from the axis are rejected with ErrShapeMismatch.
func ParseCSV(r io.Reader) (*Diagram, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyDiagram
	}

	x, err := parseRecord(records[0])
	if err != nil {
		return nil, fmt.Errorf("coordinate row: %w", err)
	}

	d := &Diagram{X: x, Values: make([][]float64, 0, len(records)-1)}
	for i, rec := range records[1:] {
		row, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		d.Values = append(d.Values, row)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func parseRecord(rec []string) ([]float64, error) {
	out := make([]float64, len(rec))
	for i, cell := range rec {
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// WriteCSV writes d in the format read by ParseCSV.
func WriteCSV(w io.Writer, d *Diagram) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(formatRecord(d.X)); err != nil {
		return fmt.Errorf("failed to write coordinate row: %w", err)
	}
	for r, row := range d.Values {
		if err := cw.Write(formatRecord(row)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatRecord(vals []float64) []string {
	rec := make([]string, len(vals))
	for i, v := range vals {
		rec[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return rec
}

// SaveCSV writes d to path with WriteCSV.
func SaveCSV(path string, d *Diagram) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create diagram file: %w", err)
	}
	if err := WriteCSV(f, d); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadCSV opens path and parses it with ParseCSV. The diagram is named after
// the file base name without extension.
func LoadCSV(path string) (*Diagram, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open diagram: %w", err)
	}
	defer f.Close()

	d, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	d.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return d, nil
}

// DiagramCache provides thread-safe caching of loaded diagrams keyed by path.
//
// Cached diagrams remain in memory until removed via Evict() or Clear().
// Callers must not mutate a diagram returned by the cache.
type DiagramCache struct {
	mu       sync.RWMutex
	diagrams map[string]*Diagram
}

// NewDiagramCache creates an empty cache ready for concurrent use.
func NewDiagramCache() *DiagramCache {
	return &DiagramCache{
		diagrams: make(map[string]*Diagram),
	}
}

// Load returns the cached diagram for path, reading it from disk on a miss.
//
// The cache is keyed on the exact path string; a relative and an absolute
// path to the same file produce two entries.
func (c *DiagramCache) Load(path string) (*Diagram, error) {
	c.mu.RLock()
	if d, ok := c.diagrams[path]; ok {
		c.mu.RUnlock()
		return d, nil
	}
	c.mu.RUnlock()

	d, err := LoadCSV(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.diagrams[path] = d
	c.mu.Unlock()

	return d, nil
}

// Len returns the number of cached diagrams.
func (c *DiagramCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.diagrams)
}

// Evict removes a single diagram from the cache. Unknown paths are ignored.
func (c *DiagramCache) Evict(path string) {
	c.mu.Lock()
	delete(c.diagrams, path)
	c.mu.Unlock()
}

// Clear removes every cached diagram.
func (c *DiagramCache) Clear() {
	c.mu.Lock()
	c.diagrams = make(map[string]*Diagram)
	c.mu.Unlock()
}
