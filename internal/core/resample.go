package core

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Resample regularizes t onto a grid of fixed interval starting at the first
// timestamp: t0 + k*interval for k = 0 .. (tLast-t0)/interval. The grid is
// capped at DefaultMaxGridPoints; see ResampleBounded.
//
// ResampleMeanInterpolate averages the rows of each bucket
// [t0+k*iv, t0+(k+1)*iv) and fills empty buckets by linear interpolation
// between the nearest filled buckets. It fails with ErrIncompatibleType when
// a column is not numeric.
//
// ResampleForwardFill gives every grid point the value of the last row at or
// before it.
func Resample(t *Table, interval time.Duration, mode ResampleMode) (*Table, error) {
	return ResampleBounded(t, interval, mode, DefaultMaxGridPoints)
}

// ResampleBounded is Resample with an explicit grid cap. A table whose span
// would need more than maxPoints grid points, or whose span does not fit in
// int64 microseconds, fails with ErrLoad instead of allocating.
func ResampleBounded(t *Table, interval time.Duration, mode ResampleMode, maxPoints int) (*Table, error) {
	iv := interval.Microseconds()
	if iv < 1 {
		return nil, invalidConfigf("resample interval %s must be at least 1µs", interval)
	}
	if maxPoints < 1 {
		return nil, invalidConfigf("grid limit (%d) must be positive", maxPoints)
	}
	if t.Len() == 0 {
		return t, nil
	}

	start := t.Start()
	span, ok := timeSpan(start, t.End())
	if !ok {
		return nil, loadErrorf("timestamps %d to %d are too far apart to resample", start, t.End())
	}
	if steps := span / iv; steps >= int64(maxPoints) {
		return nil, loadErrorf("resampling %s at %s needs more than %d grid points",
			micros(span), interval, maxPoints)
	}
	n := int(span/iv) + 1
	grid := make([]int64, n)
	for k := range grid {
		grid[k] = start + int64(k)*iv
	}

	switch mode {
	case ResampleMeanInterpolate, "":
		return meanInterpolate(t, grid, iv)
	case ResampleForwardFill:
		return forwardFill(t, grid), nil
	default:
		return nil, invalidConfigf("unrecognized resample mode %q", mode)
	}
}

// timeSpan returns to-from, or false when the difference overflows int64.
func timeSpan(from, to int64) (int64, bool) {
	d := to - from
	if (to >= from) != (d >= 0) {
		return 0, false
	}
	return d, true
}

func meanInterpolate(t *Table, grid []int64, iv int64) (*Table, error) {
	for _, c := range t.Columns {
		if c.Kind != KindNumeric {
			return nil, errors.Mark(
				errors.Newf("column %q is %s, averaging requires numeric payloads", c.Name, c.Kind),
				ErrIncompatibleType)
		}
	}

	start := grid[0]
	bucket := make([]int, t.Len())
	counts := make([]int, len(grid))
	for i, ts := range t.Time {
		k := int((ts - start) / iv)
		bucket[i] = k
		counts[k]++
	}

	out := &Table{Time: grid, Columns: make([]Column, len(t.Columns))}
	for j, c := range t.Columns {
		sums := make([]float64, len(grid))
		for i, v := range c.Floats {
			sums[bucket[i]] += v
		}
		prev := -1
		for k := range sums {
			if counts[k] == 0 {
				continue
			}
			sums[k] /= float64(counts[k])
			if prev >= 0 && k-prev > 1 {
				interpolate(sums, prev, k)
			}
			prev = k
		}
		out.Columns[j] = Column{Name: c.Name, Kind: KindNumeric, Floats: sums}
	}
	return out, nil
}

// interpolate fills vals[a+1:b] on the straight line between vals[a] and vals[b].
func interpolate(vals []float64, a, b int) {
	span := float64(b - a)
	for k := a + 1; k < b; k++ {
		frac := float64(k-a) / span
		vals[k] = vals[a] + (vals[b]-vals[a])*frac
	}
}

func forwardFill(t *Table, grid []int64) *Table {
	src := make([]int, len(grid))
	j := 0
	for k, g := range grid {
		for j+1 < t.Len() && t.Time[j+1] <= g {
			j++
		}
		src[k] = j
	}

	out := &Table{Time: grid, Columns: make([]Column, len(t.Columns))}
	for i, c := range t.Columns {
		nc := Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == KindText {
			nc.Texts = permute(c.Texts, src)
		} else {
			nc.Floats = permute(c.Floats, src)
		}
		out.Columns[i] = nc
	}
	return out
}
