package core

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportFixture() *Dataset {
	d := datasetOf(map[string]Network{"can0": {"OK": tableOf([]int64{0})}})
	d.Name = "run1"
	d.anomalies.record(Anomaly{Kind: AnomalyOutOfSync, Network: "can1", Message: "LATE"})
	d.anomalies.record(Anomaly{Kind: AnomalyNullCleaned, Network: "can0", Message: "NULLY", RemovedRows: 1, NullCells: 2})
	d.anomalies.record(Anomaly{Kind: AnomalyLoadError, Network: "can0", Message: "BROKEN", Cause: errors.New("bad")})
	d.anomalies.record(Anomaly{Kind: AnomalyEmpty, Network: "can1", Message: "ZED", Cause: errors.New("file is 0 bytes")})
	d.anomalies.record(Anomaly{Kind: AnomalyEmpty, Network: "can0", Message: "EMPTY"})
	d.anomalies.record(Anomaly{Kind: AnomalyEmpty, Network: "can1", Message: "ALPHA"})
	d.stats = Stats{Messages: 2, Rows: 1234, BytesRead: 1500}
	return d
}

func TestBuildReport_GroupsAndSorts(t *testing.T) {
	r := BuildReport(reportFixture())

	assert.Equal(t, Counts{Empty: 3, Error: 1, Null: 1, OutOfSync: 1}, r.Counts)
	assert.Equal(t, 6, r.Counts.Total())
	assert.False(t, r.Clean())

	require.Len(t, r.Sections, 4)
	kinds := make([]string, len(r.Sections))
	for i, s := range r.Sections {
		kinds[i] = s.Kind
	}
	assert.Equal(t, []string{"empty", "load_error", "null_cleaned", "out_of_sync"}, kinds)

	empty := r.Sections[0]
	assert.Equal(t, 3, empty.Count)
	assert.Equal(t, "3 empty messages have been ignored", empty.Title)
	require.Len(t, empty.Groups, 2)
	assert.Equal(t, "can0", empty.Groups[0].Network)
	assert.Equal(t, "can1", empty.Groups[1].Network)
	assert.Equal(t, "ALPHA", empty.Groups[1].Entries[0].Message)
	assert.Equal(t, "ZED", empty.Groups[1].Entries[1].Message)
}

func TestReport_WriteText(t *testing.T) {
	r := BuildReport(reportFixture())

	rule := strings.Repeat("=", 22)
	want := strings.Join([]string{
		rule + " run1 integrity report " + rule,
		"3 empty messages have been ignored:",
		"\t1 in network can0:",
		"\t\t1 : EMPTY",
		"\t2 in network can1:",
		"\t\t1 : ALPHA",
		"\t\t2 : ZED (file is 0 bytes)",
		"1 messages could not be loaded due to errors:",
		"\t1 in network can0:",
		"\t\t1 : BROKEN with error: \"bad\"",
		"1 messages have been cleared of null values:",
		"\t1 in network can0:",
		"\t\t1 : NULLY with 1 rows removed (2 null values)",
		"1 messages are empty after aligning timestamps:",
		"\t1 in network can1:",
		"\t\t1 : LATE",
		"2 messages, 1,234 rows, 1.5 kB read",
		strings.Repeat("=", 67),
		"",
	}, "\n")

	var b strings.Builder
	require.NoError(t, r.WriteText(&b))
	assert.Equal(t, want, b.String())
	assert.Equal(t, want, r.String())
}

func TestReport_Clean(t *testing.T) {
	d := datasetOf(map[string]Network{"can0": {"OK": tableOf([]int64{0})}})
	d.Name = "quiet"
	r := BuildReport(d)

	assert.True(t, r.Clean())
	assert.Empty(t, r.Sections)
	assert.Contains(t, r.String(), "No integrity issues found in log quiet\n")
}

func TestReport_AlignmentLines(t *testing.T) {
	r := Report{Alignment: AlignSummary{
		Mode:             AlignBoth,
		Applied:          true,
		WindowStart:      1_664_000_000_000_000,
		WindowEnd:        1_664_000_060_500_000,
		TrimmedBeginning: 2 * time.Second,
		TrimmedEnd:       3 * time.Second,
		Span:             60500 * time.Millisecond,
		Dropped:          1,
	}}
	assert.Equal(t, []string{
		"Timestamps aligned at 2022-09-24 06:13:20.000000 : 2022-09-24 06:14:20.500000. " +
			"1 messages were dropped, 2s removed from beginning, 3s removed from end",
		"Log lasts 1m0.5s",
	}, r.AlignmentLines())

	r.Alignment.Mode = AlignEnd
	r.Alignment.Span = -time.Second
	lines := r.AlignmentLines()
	assert.Equal(t, "Timestamps aligned at end at 2022-09-24 06:14:20.500000. 1 messages were dropped, 3s removed from end", lines[0])
	assert.Equal(t, "No common time window: recordings are disjoint by 1s", lines[1])

	assert.Nil(t, Report{}.AlignmentLines())
}

func TestReport_JSON(t *testing.T) {
	data, err := json.Marshal(BuildReport(reportFixture()))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run1", decoded["log"])
	counts := decoded["counts"].(map[string]any)
	assert.Equal(t, float64(3), counts["empty"])
	assert.Equal(t, float64(1), counts["out_of_sync"])
}

func TestReport_Deterministic(t *testing.T) {
	first := BuildReport(reportFixture()).String()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildReport(reportFixture()).String())
	}
}
