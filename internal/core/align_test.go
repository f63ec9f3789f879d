package core

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func twoNetworks() map[string]Network {
	return map[string]Network{
		"can0": {
			"A": tableOf([]int64{0, 10, 20, 30, 40}),
			"B": tableOf([]int64{15, 25, 35, 45, 55}),
		},
		"can1": {
			"C": tableOf([]int64{5, 20, 50}),
		},
	}
}

func TestExtent_Merge(t *testing.T) {
	a := ExtentOf(tableOf([]int64{0, 40}))
	b := ExtentOf(tableOf([]int64{15, 55}))
	c := ExtentOf(tableOf([]int64{5, 50}))

	want := Extent{MaxMin: 15, MinMax: 40, MinMin: 0, MaxMax: 55, Tables: 3}
	orders := [][]Extent{{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a}}
	for _, order := range orders {
		var got Extent
		for _, e := range order {
			got = got.Merge(e)
		}
		assert.Equal(t, want, got)
	}

	// grouping does not matter either
	assert.Equal(t, a.Merge(b).Merge(c), a.Merge(b.Merge(c)))
	// zero value is the identity
	assert.Equal(t, a, Extent{}.Merge(a))
	assert.Equal(t, a, a.Merge(Extent{}))
}

func TestAlign_Both(t *testing.T) {
	d := datasetOf(twoNetworks())
	summary := d.align(AlignBoth, zap.NewNop())

	require.True(t, summary.Applied)
	assert.Equal(t, int64(15), summary.WindowStart)
	assert.Equal(t, int64(40), summary.WindowEnd)
	assert.Equal(t, 15*time.Microsecond, summary.TrimmedBeginning)
	assert.Equal(t, 15*time.Microsecond, summary.TrimmedEnd)
	assert.Equal(t, 25*time.Microsecond, summary.Span)
	assert.True(t, summary.Overlaps())
	assert.Zero(t, summary.Dropped)

	a, err := d.Table("can0", "A")
	require.NoError(t, err)
	assert.Equal(t, []int64{20, 30, 40}, a.Time)
	assert.Equal(t, []float64{2, 3, 4}, a.Columns[0].Floats)

	b, _ := d.Table("can0", "B")
	assert.Equal(t, []int64{15, 25, 35}, b.Time)

	c, _ := d.Table("can1", "C")
	assert.Equal(t, []int64{20}, c.Time)

	for _, network := range d.Networks() {
		net, _ := d.Network(network)
		for _, tbl := range net {
			assert.GreaterOrEqual(t, tbl.Start(), summary.WindowStart)
			assert.LessOrEqual(t, tbl.End(), summary.WindowEnd)
		}
	}
}

func TestAlign_BeginningAndEnd(t *testing.T) {
	d := datasetOf(twoNetworks())
	summary := d.align(AlignBeginning, zap.NewNop())
	assert.Equal(t, int64(15), summary.WindowStart)
	assert.Equal(t, int64(55), summary.WindowEnd)
	assert.Zero(t, summary.TrimmedEnd)
	a, _ := d.Table("can0", "A")
	assert.Equal(t, []int64{20, 30, 40}, a.Time)
	c, _ := d.Table("can1", "C")
	assert.Equal(t, []int64{20, 50}, c.Time)

	d = datasetOf(twoNetworks())
	summary = d.align(AlignEnd, zap.NewNop())
	assert.Equal(t, int64(0), summary.WindowStart)
	assert.Equal(t, int64(40), summary.WindowEnd)
	assert.Zero(t, summary.TrimmedBeginning)
	b, _ := d.Table("can0", "B")
	assert.Equal(t, []int64{15, 25, 35}, b.Time)
}

func TestAlign_None(t *testing.T) {
	d := datasetOf(twoNetworks())
	summary := d.align(AlignNone, zap.NewNop())
	assert.False(t, summary.Applied)
	a, _ := d.Table("can0", "A")
	assert.Equal(t, 5, a.Len())
}

func TestAlign_Idempotent(t *testing.T) {
	d := datasetOf(twoNetworks())
	first := d.align(AlignBoth, zap.NewNop())
	snapshot := map[string][]int64{}
	for _, network := range d.Networks() {
		msgs, _ := d.Messages(network)
		for _, m := range msgs {
			tbl, _ := d.Table(network, m)
			snapshot[network+"/"+m] = append([]int64(nil), tbl.Time...)
		}
	}

	second := d.align(AlignBoth, zap.NewNop())
	assert.Equal(t, first.WindowStart, second.WindowStart)
	assert.Equal(t, first.WindowEnd, second.WindowEnd)
	assert.Zero(t, second.Dropped)
	for key, times := range snapshot {
		network, message, _ := strings.Cut(key, "/")
		tbl, err := d.Table(network, message)
		require.NoError(t, err)
		assert.Equal(t, times, tbl.Time, key)
	}
}

func TestAlign_DropsMessagesOutsideWindow(t *testing.T) {
	d := datasetOf(map[string]Network{
		"can0": {
			"A":      tableOf([]int64{0, 100}),
			"B":      tableOf([]int64{10, 90}),
			"SPARSE": tableOf([]int64{0, 5, 95, 100}),
		},
	})
	// SPARSE has no row inside [10, 90] and previously had nulls cleaned
	d.anomalies.record(Anomaly{Kind: AnomalyNullCleaned, Network: "can0", Message: "SPARSE", RemovedRows: 1})

	summary := d.align(AlignBoth, zap.NewNop())
	assert.Equal(t, 1, summary.Dropped)

	msgs, err := d.Messages("can0")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, msgs)

	a, ok := d.anomalies.lookup("can0", "SPARSE")
	require.True(t, ok)
	assert.Equal(t, AnomalyOutOfSync, a.Kind)
	assert.Zero(t, d.anomalies.count(AnomalyNullCleaned))
}

func TestAlign_DisjointRecordings(t *testing.T) {
	d := datasetOf(map[string]Network{
		"can0": {
			"EARLY": tableOf([]int64{0, 10}),
			"LATE":  tableOf([]int64{50, 60}),
		},
	})
	summary := d.align(AlignBoth, zap.NewNop())
	assert.False(t, summary.Overlaps())
	assert.Equal(t, -40*time.Microsecond, summary.Span)
	assert.Equal(t, 2, summary.Dropped)

	msgs, _ := d.Messages("can0")
	assert.Empty(t, msgs)
}

func TestAlign_ExtremeTimestampsSaturate(t *testing.T) {
	d := datasetOf(map[string]Network{
		"can0": {
			"WIDE":   tableOf([]int64{-9e18, 9e18}),
			"NARROW": tableOf([]int64{9e18 - 10, 9e18}),
		},
	})
	summary := d.align(AlignBoth, zap.NewNop())
	assert.Equal(t, time.Duration(math.MaxInt64), summary.TrimmedBeginning)
	assert.Equal(t, time.Duration(0), summary.TrimmedEnd)
	assert.Equal(t, 10*time.Microsecond, summary.Span)
	assert.True(t, summary.Overlaps())

	disjoint := datasetOf(map[string]Network{
		"can0": {
			"EARLY": tableOf([]int64{-9e18}),
			"LATE":  tableOf([]int64{9e18}),
		},
	})
	summary = disjoint.align(AlignBoth, zap.NewNop())
	assert.Equal(t, time.Duration(math.MinInt64), summary.Span)
	assert.False(t, summary.Overlaps())
	assert.Equal(t, 2, summary.Dropped)
}

func TestTruncate_Inclusive(t *testing.T) {
	tbl := tableOf([]int64{10, 20, 30, 40})
	out := truncate(tbl, 20, 30)
	assert.Equal(t, []int64{20, 30}, out.Time)
	assert.Same(t, tbl, truncate(tbl, 0, 100))
	assert.Zero(t, truncate(tbl, 21, 29).Len())
}
