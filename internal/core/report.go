package core

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Counts are the number of messages per anomaly kind.
type Counts struct {
	Empty     int `json:"empty"`
	Error     int `json:"error"`
	Null      int `json:"null"`
	OutOfSync int `json:"out_of_sync"`
}

// Total returns the sum of all counts.
func (c Counts) Total() int {
	return c.Empty + c.Error + c.Null + c.OutOfSync
}

func (c *Counts) add(kind AnomalyKind) {
	switch kind {
	case AnomalyEmpty:
		c.Empty++
	case AnomalyLoadError:
		c.Error++
	case AnomalyNullCleaned:
		c.Null++
	case AnomalyOutOfSync:
		c.OutOfSync++
	}
}

// ReportEntry is one affected message.
type ReportEntry struct {
	Message     string `json:"message"`
	Cause       string `json:"cause,omitempty"`
	RemovedRows int    `json:"removed_rows,omitempty"`
	NullCells   int    `json:"null_cells,omitempty"`
}

// ReportGroup lists the affected messages of one network, sorted by message.
type ReportGroup struct {
	Network string        `json:"network"`
	Entries []ReportEntry `json:"entries"`
}

// ReportSection holds every anomaly of one kind, grouped by network.
type ReportSection struct {
	Kind   string        `json:"kind"`
	Title  string        `json:"title"`
	Count  int           `json:"count"`
	Groups []ReportGroup `json:"groups"`
}

// Report is the integrity report of a dataset. Networks and messages are
// sorted so two reports of the same input compare equal.
type Report struct {
	Log       string          `json:"log"`
	Counts    Counts          `json:"counts"`
	Sections  []ReportSection `json:"sections"`
	Alignment AlignSummary    `json:"alignment"`
	Messages  int             `json:"messages"`
	Rows      int             `json:"rows"`
	BytesRead int64           `json:"bytes_read"`
}

// Clean reports whether no anomaly was recorded.
func (r Report) Clean() bool {
	return r.Counts.Total() == 0
}

// BuildReport groups the anomaly log of d in a single pass.
func BuildReport(d *Dataset) Report {
	r := Report{
		Log:       d.Name,
		Alignment: d.alignment,
		Messages:  d.stats.Messages,
		Rows:      d.stats.Rows,
		BytesRead: d.stats.BytesRead,
	}

	grouped := make(map[AnomalyKind]map[string][]ReportEntry)
	for _, a := range d.anomalies {
		r.Counts.add(a.Kind)
		if grouped[a.Kind] == nil {
			grouped[a.Kind] = make(map[string][]ReportEntry)
		}
		e := ReportEntry{Message: a.Message, RemovedRows: a.RemovedRows, NullCells: a.NullCells}
		if a.Cause != nil {
			e.Cause = a.Cause.Error()
		}
		grouped[a.Kind][a.Network] = append(grouped[a.Kind][a.Network], e)
	}

	for _, kind := range anomalyKinds {
		byNet := grouped[kind]
		if len(byNet) == 0 {
			continue
		}
		sec := ReportSection{Kind: kind.String()}
		for _, network := range sortedKeys(byNet) {
			entries := byNet[network]
			sort.SliceStable(entries, func(i, j int) bool { return entries[i].Message < entries[j].Message })
			sec.Groups = append(sec.Groups, ReportGroup{Network: network, Entries: entries})
			sec.Count += len(entries)
		}
		sec.Title = sectionTitle(kind, sec.Count)
		r.Sections = append(r.Sections, sec)
	}
	return r
}

func sectionTitle(kind AnomalyKind, n int) string {
	switch kind {
	case AnomalyEmpty:
		return fmt.Sprintf("%d empty messages have been ignored", n)
	case AnomalyLoadError:
		return fmt.Sprintf("%d messages could not be loaded due to errors", n)
	case AnomalyNullCleaned:
		return fmt.Sprintf("%d messages have been cleared of null values", n)
	case AnomalyOutOfSync:
		return fmt.Sprintf("%d messages are empty after aligning timestamps", n)
	default:
		return fmt.Sprintf("%d messages", n)
	}
}

// Describe renders the detail of an entry for its section.
func (e ReportEntry) Describe(kind string) string {
	switch kind {
	case AnomalyLoadError.String():
		return fmt.Sprintf("%s with error: %q", e.Message, e.Cause)
	case AnomalyNullCleaned.String():
		return fmt.Sprintf("%s with %d rows removed (%d null values)", e.Message, e.RemovedRows, e.NullCells)
	case AnomalyEmpty.String():
		if e.Cause != "" {
			return fmt.Sprintf("%s (%s)", e.Message, e.Cause)
		}
	}
	return e.Message
}

// FormatMicros renders a timestamp in microseconds as UTC.
func FormatMicros(us int64) string {
	return time.UnixMicro(us).UTC().Format("2006-01-02 15:04:05.000000")
}

// AlignmentLines describes the alignment pass, or nothing if none was applied.
func (r Report) AlignmentLines() []string {
	a := r.Alignment
	if !a.Applied {
		return nil
	}
	var lines []string
	switch a.Mode {
	case AlignBoth:
		lines = append(lines, fmt.Sprintf(
			"Timestamps aligned at %s : %s. %d messages were dropped, %s removed from beginning, %s removed from end",
			FormatMicros(a.WindowStart), FormatMicros(a.WindowEnd), a.Dropped, a.TrimmedBeginning, a.TrimmedEnd))
	case AlignBeginning:
		lines = append(lines, fmt.Sprintf(
			"Timestamps aligned at beginning at %s. %d messages were dropped, %s removed from beginning",
			FormatMicros(a.WindowStart), a.Dropped, a.TrimmedBeginning))
	case AlignEnd:
		lines = append(lines, fmt.Sprintf(
			"Timestamps aligned at end at %s. %d messages were dropped, %s removed from end",
			FormatMicros(a.WindowEnd), a.Dropped, a.TrimmedEnd))
	}
	if a.Overlaps() {
		lines = append(lines, fmt.Sprintf("Log lasts %s", a.Span))
	} else {
		lines = append(lines, fmt.Sprintf("No common time window: recordings are disjoint by %s", -a.Span))
	}
	return lines
}

// Totals summarises what the dataset retained.
func (r Report) Totals() string {
	return fmt.Sprintf("%s messages, %s rows, %s read",
		humanize.Comma(int64(r.Messages)), humanize.Comma(int64(r.Rows)), humanize.Bytes(uint64(r.BytesRead)))
}

// WriteText renders the report as plain text.
func (r Report) WriteText(w io.Writer) error {
	var b strings.Builder
	rule := strings.Repeat("=", 22)
	fmt.Fprintf(&b, "%s %s integrity report %s\n", rule, r.Log, rule)

	if r.Clean() {
		fmt.Fprintf(&b, "No integrity issues found in log %s\n", r.Log)
	}
	for _, sec := range r.Sections {
		fmt.Fprintf(&b, "%s:\n", sec.Title)
		for _, g := range sec.Groups {
			fmt.Fprintf(&b, "\t%d in network %s:\n", len(g.Entries), g.Network)
			for i, e := range g.Entries {
				fmt.Fprintf(&b, "\t\t%d : %s\n", i+1, e.Describe(sec.Kind))
			}
		}
	}
	for _, line := range r.AlignmentLines() {
		fmt.Fprintln(&b, line)
	}
	fmt.Fprintln(&b, r.Totals())
	fmt.Fprintln(&b, strings.Repeat("=", 2*len(rule)+len(r.Log)+len(" integrity report ")+1))

	_, err := io.WriteString(w, b.String())
	return err
}

// String returns the text rendering.
func (r Report) String() string {
	var b strings.Builder
	_ = r.WriteText(&b)
	return b.String()
}
