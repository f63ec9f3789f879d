package core

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResample_ForwardFill(t *testing.T) {
	table := tableOf([]int64{0, 2500}, 7, 42)

	out, err := Resample(table, 1000*time.Microsecond, ResampleForwardFill)
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 1000, 2000}, out.Time)
	assert.Equal(t, []float64{7, 7, 7}, out.Columns[0].Floats)
}

func TestResample_ForwardFillHoldsLastValue(t *testing.T) {
	table := tableOf([]int64{0, 2500, 3000, 3100}, 7, 42, 43, 44)

	out, err := Resample(table, time.Millisecond, ResampleForwardFill)
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 1000, 2000, 3000}, out.Time)
	assert.Equal(t, []float64{7, 7, 7, 43}, out.Columns[0].Floats)
}

func TestResample_ForwardFillText(t *testing.T) {
	table := &Table{
		Time:    []int64{100, 350},
		Columns: []Column{{Name: "gear", Kind: KindText, Texts: []string{"N", "1"}}},
	}
	out, err := Resample(table, 100*time.Microsecond, ResampleForwardFill)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200, 300}, out.Time)
	assert.Equal(t, []string{"N", "N", "N"}, out.Columns[0].Texts)
}

func TestResample_MeanInterpolate(t *testing.T) {
	// buckets of 1000µs from t0=0:
	//   [0,1000)    -> mean(2, 4) = 3
	//   [1000,2000) -> empty
	//   [2000,3000) -> empty
	//   [3000,4000) -> 9
	table := tableOf([]int64{0, 500, 3200}, 2, 4, 9)

	out, err := Resample(table, time.Millisecond, ResampleMeanInterpolate)
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 1000, 2000, 3000}, out.Time)
	assert.InDeltaSlice(t, []float64{3, 5, 7, 9}, out.Columns[0].Floats, 1e-9)
}

func TestResample_GridStartsAtFirstTimestamp(t *testing.T) {
	table := tableOf([]int64{1_000_123, 1_001_500}, 1, 2)

	out, err := Resample(table, time.Millisecond, ResampleMeanInterpolate)
	require.NoError(t, err)
	assert.Equal(t, []int64{1_000_123, 1_001_123}, out.Time)
	assert.Equal(t, []float64{1, 2}, out.Columns[0].Floats)
}

func TestResample_MeanRejectsText(t *testing.T) {
	table := &Table{
		Time: []int64{0, 1},
		Columns: []Column{
			{Name: "speed", Kind: KindNumeric, Floats: []float64{1, 2}},
			{Name: "gear", Kind: KindText, Texts: []string{"N", "1"}},
		},
	}
	_, err := Resample(table, time.Millisecond, ResampleMeanInterpolate)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompatibleType))
	assert.Contains(t, err.Error(), "gear")
}

func TestResample_InvalidInterval(t *testing.T) {
	_, err := Resample(tableOf([]int64{0}), time.Nanosecond, ResampleForwardFill)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestResample_SingleRow(t *testing.T) {
	out, err := Resample(tableOf([]int64{5}, 1.5), time.Second, ResampleMeanInterpolate)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, out.Time)
	assert.Equal(t, []float64{1.5}, out.Columns[0].Floats)
}

func TestResample_ExtremeSpanIsLoadError(t *testing.T) {
	tests := []struct {
		name  string
		times []int64
	}{
		{"span near int64 max", []int64{0, 9e18}},
		{"span overflows int64", []int64{-9e18, 9e18}},
	}
	for _, tt := range tests {
		for _, mode := range []ResampleMode{ResampleForwardFill, ResampleMeanInterpolate} {
			t.Run(tt.name+"/"+string(mode), func(t *testing.T) {
				var out *Table
				var err error
				require.NotPanics(t, func() {
					out, err = Resample(tableOf(tt.times), time.Microsecond, mode)
				})
				require.Error(t, err)
				assert.Nil(t, out)
				assert.True(t, errors.Is(err, ErrLoad))
			})
		}
	}
}

func TestResampleBounded_GridLimit(t *testing.T) {
	table := tableOf([]int64{0, 1000, 2000})

	out, err := ResampleBounded(table, time.Millisecond, ResampleForwardFill, 3)
	require.NoError(t, err)
	assert.Len(t, out.Time, 3)

	_, err = ResampleBounded(table, time.Millisecond, ResampleForwardFill, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoad))
	assert.Contains(t, err.Error(), "more than 2 grid points")

	_, err = ResampleBounded(table, time.Millisecond, ResampleForwardFill, 0)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}
