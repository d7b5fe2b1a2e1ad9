package pipeline

import "time"

// Reorder moves the record at index from to index to inside one column
// and renumbers the whole column 0..n-1 in its final order.
//
// column must already be in manual order. Every record of the column gets a
// position patch. ok is false when the move changes nothing.
func Reorder(column []Record, from, to int, now time.Time) (ordered []Record, patches []Patch, ok bool) {
	n := len(column)
	if from < 0 || from >= n {
		return nil, nil, false
	}
	to = clamp(to, 0, n-1)
	if from == to {
		return nil, nil, false
	}

	ordered = relocate(column, from, to)
	patches = renumber(ordered, now)
	return ordered, patches, true
}

// MoveResult is the outcome of moving a record into another column.
type MoveResult struct {
	// Origin and Dest are the two columns after the move, renumbered.
	Origin []Record
	Dest   []Record
	// Moved carries the new status and position of the moved record.
	Moved Patch
	// Shifted holds position patches for neighbours whose rank changed,
	// origin column first.
	Shifted []Patch
}

// Move takes the record at index from out of origin and inserts it into dest
// at index to, which is clamped to [0, len(dest)]. Both columns must be in
// manual order. ok is false when from does not address a record.
func Move(origin []Record, from int, dest []Record, to int, status Status, now time.Time) (res MoveResult, ok bool) {
	if from < 0 || from >= len(origin) {
		return MoveResult{}, false
	}
	to = clamp(to, 0, len(dest))

	moved := origin[from].Clone()

	res.Origin = make([]Record, 0, len(origin)-1)
	for i, r := range origin {
		if i != from {
			res.Origin = append(res.Origin, r.Clone())
		}
	}

	res.Dest = make([]Record, 0, len(dest)+1)
	for _, r := range dest[:to] {
		res.Dest = append(res.Dest, r.Clone())
	}
	res.Dest = append(res.Dest, moved)
	for _, r := range dest[to:] {
		res.Dest = append(res.Dest, r.Clone())
	}

	res.Shifted = append(res.Shifted, shifted(res.Origin, now)...)
	for i := range res.Dest {
		if res.Dest[i].ID == moved.ID {
			res.Dest[i].Status = status
			res.Dest[i].Position = i
			res.Dest[i].UpdatedAt = now
			res.Moved = Patch{ID: moved.ID, Status: ptr(status), Position: ptr(i), UpdatedAt: ptr(now)}
			continue
		}
		if res.Dest[i].Position != i {
			res.Dest[i].Position = i
			res.Dest[i].UpdatedAt = now
			res.Shifted = append(res.Shifted, Patch{ID: res.Dest[i].ID, Position: ptr(i), UpdatedAt: ptr(now)})
		}
	}
	return res, true
}

// Contiguous reports whether the manual order of col is exactly 0..n-1.
func Contiguous(col []Record) bool {
	sorted := make([]Record, len(col))
	copy(sorted, col)
	SortRecords(sorted, SortManual)
	for i, r := range sorted {
		if r.Position != i {
			return false
		}
	}
	return true
}

func relocate(col []Record, from, to int) []Record {
	out := make([]Record, 0, len(col))
	for i, r := range col {
		if i != from {
			out = append(out, r.Clone())
		}
	}
	out = append(out, Record{})
	copy(out[to+1:], out[to:])
	out[to] = col[from].Clone()
	return out
}

func renumber(col []Record, now time.Time) []Patch {
	patches := make([]Patch, len(col))
	for i := range col {
		col[i].Position = i
		col[i].UpdatedAt = now
		patches[i] = Patch{ID: col[i].ID, Position: ptr(i), UpdatedAt: ptr(now)}
	}
	return patches
}

// shifted renumbers col and returns patches only for records that moved.
func shifted(col []Record, now time.Time) []Patch {
	var patches []Patch
	for i := range col {
		if col[i].Position == i {
			continue
		}
		col[i].Position = i
		col[i].UpdatedAt = now
		patches = append(patches, Patch{ID: col[i].ID, Position: ptr(i), UpdatedAt: ptr(now)})
	}
	return patches
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
