package core

import (
	"time"

	"github.com/google/uuid"
)

// ColumnKind is the inferred type of a payload column.
type ColumnKind int

const (
	KindNumeric ColumnKind = iota
	KindText
)

func (k ColumnKind) String() string {
	if k == KindText {
		return "text"
	}
	return "numeric"
}

// MarshalText encodes the kind by name.
func (k ColumnKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Column is one payload field of a message table. Exactly one of Floats or
// Texts is populated, depending on Kind.
type Column struct {
	Name   string
	Kind   ColumnKind
	Floats []float64
	Texts  []string

	// nulls marks missing cells; nil once the table has been sanitized.
	nulls []bool
}

// IsNull reports whether row i holds a missing value.
func (c *Column) IsNull(i int) bool {
	return c.nulls != nil && c.nulls[i]
}

// Value returns row i formatted for display.
func (c *Column) Value(i int) any {
	if c.Kind == KindText {
		return c.Texts[i]
	}
	return c.Floats[i]
}

// Table is one message recording: rows keyed by a strictly increasing
// timestamp in microseconds since the epoch.
type Table struct {
	Time    []int64
	Columns []Column
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Time)
}

// Start returns the first timestamp. The table must not be empty.
func (t *Table) Start() int64 {
	return t.Time[0]
}

// End returns the last timestamp. The table must not be empty.
func (t *Table) End() int64 {
	return t.Time[len(t.Time)-1]
}

// Payloads returns the payload column names in file order.
func (t *Table) Payloads() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named payload column.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// slice returns rows [lo, hi) sharing the underlying arrays.
func (t *Table) slice(lo, hi int) *Table {
	out := &Table{Time: t.Time[lo:hi], Columns: make([]Column, len(t.Columns))}
	for i, c := range t.Columns {
		nc := Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == KindText {
			nc.Texts = c.Texts[lo:hi]
		} else {
			nc.Floats = c.Floats[lo:hi]
		}
		if c.nulls != nil {
			nc.nulls = c.nulls[lo:hi]
		}
		out.Columns[i] = nc
	}
	return out
}

// Series is a single payload column paired with its timestamps.
type Series struct {
	Name   string     `json:"name"`
	Kind   ColumnKind `json:"kind"`
	Time   []int64    `json:"time"`
	Floats []float64  `json:"floats,omitempty"`
	Texts  []string   `json:"texts,omitempty"`
}

// Network maps message names to tables.
type Network map[string]*Table

// Stage is the construction state of a Dataset.
type Stage int

const (
	StageUninitialized Stage = iota
	StageIngesting
	StageSanitizing
	StageResampling
	StageAligning
	StageReady
)

func (s Stage) String() string {
	switch s {
	case StageIngesting:
		return "ingesting"
	case StageSanitizing:
		return "sanitizing"
	case StageResampling:
		return "resampling"
	case StageAligning:
		return "aligning"
	case StageReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Dataset is the result of one construction: every network's tables plus the
// anomalies recorded along the way. It is read-only once Stage is StageReady.
type Dataset struct {
	Name  string
	Root  string
	RunID uuid.UUID

	networks  map[string]Network
	filtered  map[string]bool
	anomalies anomalyLog
	alignment AlignSummary
	stats     Stats
	stage     Stage
}

// Stats are totals gathered during construction.
type Stats struct {
	Files     int
	Messages  int
	Rows      int
	BytesRead int64
	Duration  time.Duration
}

func newDataset(name, root string) *Dataset {
	return &Dataset{
		Name:     name,
		Root:     root,
		RunID:    uuid.New(),
		networks: make(map[string]Network),
		filtered: make(map[string]bool),
	}
}

// Stage returns the construction state.
func (d *Dataset) Stage() Stage {
	return d.stage
}

// advance moves the state machine forward. Backward transitions are ignored.
func (d *Dataset) advance(s Stage) bool {
	if s <= d.stage {
		return false
	}
	d.stage = s
	return true
}

// Alignment returns the summary of the alignment pass.
func (d *Dataset) Alignment() AlignSummary {
	return d.alignment
}

// Stats returns construction totals.
func (d *Dataset) Stats() Stats {
	return d.stats
}

// Anomalies returns a copy of every anomaly recorded.
func (d *Dataset) Anomalies() []Anomaly {
	return append([]Anomaly(nil), d.anomalies...)
}
