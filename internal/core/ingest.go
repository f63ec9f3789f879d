package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ingestConfig is the subset of Options the ingester needs.
type ingestConfig struct {
	minSize         int64
	timestampColumn string
	nullTokens      map[string]bool
}

func newIngestConfig(o Options) ingestConfig {
	return ingestConfig{
		minSize:         o.MinFileSize,
		timestampColumn: o.TimestampColumn,
		nullTokens:      toSet(o.NullTokens),
	}
}

// ingestResult is a parsed recording plus bookkeeping for logs and stats.
type ingestResult struct {
	table      *Table
	bytesRead  int64
	duplicates int
}

// ReadTable parses one recording into a time-indexed table using the given
// options. Errors are marked ErrEmptyInput or ErrLoad.
func ReadTable(path string, opts Options) (*Table, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	res, err := readTable(path, newIngestConfig(opts))
	if err != nil {
		return nil, err
	}
	return res.table, nil
}

func readTable(path string, cfg ingestConfig) (*ingestResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "stat recording"), ErrLoad)
	}
	if info.Size() <= cfg.minSize {
		return nil, errors.Mark(errors.Newf("file is %d bytes", info.Size()), ErrEmptyInput)
	}

	rec, err := openRecording(path)
	if err != nil {
		return nil, errors.Mark(err, ErrLoad)
	}
	defer rec.Close()

	r := csv.NewReader(rec)
	r.ReuseRecord = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, errors.Mark(errors.New("no columns to parse"), ErrEmptyInput)
	}
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "read header"), ErrLoad)
	}
	names := dedupeHeader(header)

	tsIdx := -1
	for i, h := range names {
		if h == cfg.timestampColumn {
			tsIdx = i
			break
		}
	}
	if tsIdx < 0 {
		return nil, loadErrorf("timestamp column %q not found in header", cfg.timestampColumn)
	}

	payloadIdx := make([]int, 0, len(names)-1)
	for i := range names {
		if i != tsIdx {
			payloadIdx = append(payloadIdx, i)
		}
	}

	var (
		times  []int64
		raw    = make([][]string, len(payloadIdx))
		seen   = make(map[int64]struct{})
		dupes  int
		lineNo = 1
	)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		lineNo++
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "line %d", lineNo), ErrLoad)
		}

		ts, err := parseTimestamp(record[tsIdx])
		if err != nil {
			return nil, loadErrorf("line %d: invalid timestamp %q", lineNo, record[tsIdx])
		}
		if _, dup := seen[ts]; dup {
			dupes++
			continue
		}
		seen[ts] = struct{}{}

		times = append(times, ts)
		for j, idx := range payloadIdx {
			raw[j] = append(raw[j], strings.TrimSpace(record[idx]))
		}
	}

	if len(times) == 0 {
		return nil, errors.Mark(errors.New("no data rows after header"), ErrEmptyInput)
	}

	table := &Table{Time: times, Columns: make([]Column, len(payloadIdx))}
	for j, idx := range payloadIdx {
		table.Columns[j] = buildColumn(names[idx], raw[j], cfg.nullTokens)
	}
	sortByTime(table)

	return &ingestResult{table: table, bytesRead: rec.BytesRead, duplicates: dupes}, nil
}

// parseTimestamp accepts integer microseconds, tolerating an integral float
// rendering such as "1664000000000000.0".
func parseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ts, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errors.Newf("not an integer: %q", s)
	}
	return int64(f), nil
}

// dedupeHeader trims header names and suffixes repeats with ".1", ".2", ...
func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	counts := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if n := counts[name]; n > 0 {
			out[i] = fmt.Sprintf("%s.%d", name, n)
		} else {
			out[i] = name
		}
		counts[name]++
	}
	return out
}

// buildColumn infers the column kind: numeric when every non-null cell parses
// as a float, text otherwise. Cells parsing to NaN count as null.
func buildColumn(name string, cells []string, nullTokens map[string]bool) Column {
	col := Column{Name: name, Kind: KindNumeric}
	nulls := make([]bool, len(cells))
	anyNull := false
	floats := make([]float64, len(cells))

	for i, cell := range cells {
		if nullTokens[cell] || isNaNCell(cell) {
			nulls[i] = true
			anyNull = true
			floats[i] = math.NaN()
			continue
		}
		if col.Kind == KindText {
			continue
		}
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			col.Kind = KindText
			continue
		}
		if math.IsNaN(f) {
			nulls[i] = true
			anyNull = true
		}
		floats[i] = f
	}

	if col.Kind == KindText {
		col.Texts = make([]string, len(cells))
		for i, cell := range cells {
			if !nulls[i] {
				col.Texts[i] = cell
			}
		}
	} else {
		col.Floats = floats
	}
	if anyNull {
		col.nulls = nulls
	}
	return col
}

// isNaNCell reports whether s spells NaN, with any case and an optional sign.
func isNaNCell(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	return strings.EqualFold(s, "nan")
}

type byTime struct {
	idx  []int
	time []int64
}

func (b byTime) Len() int           { return len(b.idx) }
func (b byTime) Less(i, j int) bool { return b.time[b.idx[i]] < b.time[b.idx[j]] }
func (b byTime) Swap(i, j int)      { b.idx[i], b.idx[j] = b.idx[j], b.idx[i] }

// sortByTime orders rows ascending by timestamp. Timestamps are already
// unique, so the order is total.
func sortByTime(t *Table) {
	if sort.SliceIsSorted(t.Time, func(i, j int) bool { return t.Time[i] < t.Time[j] }) {
		return
	}
	perm := byTime{idx: make([]int, len(t.Time)), time: t.Time}
	for i := range perm.idx {
		perm.idx[i] = i
	}
	sort.Stable(perm)
	t.Time = permute(t.Time, perm.idx)
	for i := range t.Columns {
		c := &t.Columns[i]
		if c.Kind == KindText {
			c.Texts = permute(c.Texts, perm.idx)
		} else {
			c.Floats = permute(c.Floats, perm.idx)
		}
		if c.nulls != nil {
			c.nulls = permute(c.nulls, perm.idx)
		}
	}
}

func permute[T any](s []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = s[j]
	}
	return out
}
