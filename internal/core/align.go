package core

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Extent is the reduction of table bounds used by the aligner. Merge is
// associative and commutative and the zero Extent is its identity, so the
// result does not depend on the order tables are visited.
type Extent struct {
	MaxMin int64 `json:"max_min"` // latest first timestamp
	MinMax int64 `json:"min_max"` // earliest last timestamp
	MinMin int64 `json:"min_min"` // earliest first timestamp
	MaxMax int64 `json:"max_max"` // latest last timestamp
	Tables int   `json:"tables"`
}

// ExtentOf returns the extent of a single non-empty table.
func ExtentOf(t *Table) Extent {
	return Extent{MaxMin: t.Start(), MinMax: t.End(), MinMin: t.Start(), MaxMax: t.End(), Tables: 1}
}

// Merge combines two extents.
func (e Extent) Merge(o Extent) Extent {
	if e.Tables == 0 {
		return o
	}
	if o.Tables == 0 {
		return e
	}
	return Extent{
		MaxMin: max(e.MaxMin, o.MaxMin),
		MinMax: min(e.MinMax, o.MinMax),
		MinMin: min(e.MinMin, o.MinMin),
		MaxMax: max(e.MaxMax, o.MaxMax),
		Tables: e.Tables + o.Tables,
	}
}

// reduceExtent folds every non-empty table of every network.
func reduceExtent(networks map[string]Network) Extent {
	var ext Extent
	for _, net := range networks {
		for _, t := range net {
			if t.Len() > 0 {
				ext = ext.Merge(ExtentOf(t))
			}
		}
	}
	return ext
}

// AlignSummary describes what an alignment pass did.
type AlignSummary struct {
	Mode    AlignMode `json:"mode"`
	Applied bool      `json:"applied"`
	Extent  Extent    `json:"extent"`

	// Window is the inclusive range kept. Unbounded sides hold the table's own bound.
	WindowStart int64 `json:"window_start"`
	WindowEnd   int64 `json:"window_end"`

	TrimmedBeginning time.Duration `json:"trimmed_beginning"`
	TrimmedEnd       time.Duration `json:"trimmed_end"`
	Span             time.Duration `json:"span"`
	Dropped          int           `json:"dropped"`
}

// Overlaps reports whether the aligned window is non-empty.
func (s AlignSummary) Overlaps() bool {
	return s.Span >= 0
}

// micros converts microseconds to a Duration, saturating at the int64 bounds.
func micros(us int64) time.Duration {
	const limit = math.MaxInt64 / int64(time.Microsecond)
	switch {
	case us > limit:
		return math.MaxInt64
	case us < -limit:
		return math.MinInt64
	}
	return time.Duration(us) * time.Microsecond
}

// elapsed is micros(to-from), saturating when the difference overflows.
func elapsed(from, to int64) time.Duration {
	d, ok := timeSpan(from, to)
	switch {
	case ok:
		return micros(d)
	case to > from:
		return math.MaxInt64
	default:
		return math.MinInt64
	}
}

// bounds returns the inclusive truncation range for mode.
func (e Extent) bounds(mode AlignMode) (lo, hi int64) {
	lo, hi = math.MinInt64, math.MaxInt64
	if mode.alignsBeginning() {
		lo = e.MaxMin
	}
	if mode.alignsEnd() {
		hi = e.MinMax
	}
	return lo, hi
}

// truncate keeps the rows of t with lo <= time <= hi.
func truncate(t *Table, lo, hi int64) *Table {
	first := sort.Search(t.Len(), func(i int) bool { return t.Time[i] >= lo })
	last := sort.Search(t.Len(), func(i int) bool { return t.Time[i] > hi })
	if first == 0 && last == t.Len() {
		return t
	}
	if first >= last {
		return t.slice(0, 0)
	}
	return t.slice(first, last)
}

// align truncates every table onto the common window and removes tables
// left empty, recording them as out of sync. The summary is stored on d.
//
// Truncation moves table starts forward, so reducing a second time could
// yield a narrower window. A dataset already aligned with the same mode
// reuses its window instead, which makes repeated calls a no-op.
func (d *Dataset) align(mode AlignMode, log *zap.Logger) AlignSummary {
	summary := AlignSummary{Mode: mode}
	if mode == AlignNone || mode == "" {
		return summary
	}

	var ext Extent
	if prev := d.alignment; prev.Applied && prev.Mode == mode {
		ext = prev.Extent
	} else {
		ext = reduceExtent(d.networks)
	}
	summary.Extent = ext
	if ext.Tables == 0 {
		log.Info("nothing to align", zap.String("mode", string(mode)))
		return summary
	}
	summary.Applied = true

	log.Info("aligning timestamps", zap.String("mode", string(mode)))

	lo, hi := ext.bounds(mode)
	summary.WindowStart, summary.WindowEnd = ext.MinMin, ext.MaxMax
	if mode.alignsBeginning() {
		summary.WindowStart = lo
		summary.TrimmedBeginning = elapsed(ext.MinMin, ext.MaxMin)
	}
	if mode.alignsEnd() {
		summary.WindowEnd = hi
		summary.TrimmedEnd = elapsed(ext.MinMax, ext.MaxMax)
	}
	summary.Span = elapsed(ext.MaxMin, ext.MinMax)

	for _, network := range sortedKeys(d.networks) {
		net := d.networks[network]
		for _, message := range sortedKeys(net) {
			t := truncate(net[message], lo, hi)
			if t.Len() > 0 {
				net[message] = t
				continue
			}
			delete(net, message)
			d.anomalies.record(Anomaly{Kind: AnomalyOutOfSync, Network: network, Message: message})
			summary.Dropped++
			log.Debug("message dropped by alignment",
				zap.String("network", network), zap.String("message", message))
		}
	}

	log.Info("timestamps aligned",
		zap.String("mode", string(mode)),
		zap.Time("window_start", time.UnixMicro(summary.WindowStart).UTC()),
		zap.Time("window_end", time.UnixMicro(summary.WindowEnd).UTC()),
		zap.Int("dropped", summary.Dropped),
		zap.Duration("trimmed_beginning", summary.TrimmedBeginning),
		zap.Duration("trimmed_end", summary.TrimmedEnd),
		zap.Duration("span", summary.Span),
	)
	d.alignment = summary
	return summary
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
