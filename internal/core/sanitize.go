package core

// Sanitize removes every row holding a null in any column. It returns the
// cleaned table, the number of rows removed, and the number of null cells seen.
// The input table is not modified.
func Sanitize(t *Table) (*Table, int, int) {
	keep := make([]bool, t.Len())
	for i := range keep {
		keep[i] = true
	}

	nullCells := 0
	for _, c := range t.Columns {
		if c.nulls == nil {
			continue
		}
		for i, null := range c.nulls {
			if null {
				nullCells++
				keep[i] = false
			}
		}
	}
	if nullCells == 0 {
		return t, 0, 0
	}

	kept := 0
	for _, k := range keep {
		if k {
			kept++
		}
	}

	out := &Table{Time: make([]int64, 0, kept), Columns: make([]Column, len(t.Columns))}
	for i := range t.Time {
		if keep[i] {
			out.Time = append(out.Time, t.Time[i])
		}
	}
	for j, c := range t.Columns {
		nc := Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == KindText {
			nc.Texts = make([]string, 0, kept)
		} else {
			nc.Floats = make([]float64, 0, kept)
		}
		for i := range t.Time {
			if !keep[i] {
				continue
			}
			if c.Kind == KindText {
				nc.Texts = append(nc.Texts, c.Texts[i])
			} else {
				nc.Floats = append(nc.Floats, c.Floats[i])
			}
		}
		out.Columns[j] = nc
	}

	return out, t.Len() - kept, nullCells
}
