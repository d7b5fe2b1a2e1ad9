package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// SortMode selects how a column is displayed. Only SortManual uses Position.
type SortMode string

const (
	SortManual   SortMode = "manual"
	SortDateDesc SortMode = "date_desc"
	SortDateAsc  SortMode = "date_asc"
	SortNameAsc  SortMode = "name_asc"
)

var ErrUnknownSortMode = errors.New("unknown sort mode")

func (m SortMode) Valid() bool {
	switch m {
	case SortManual, SortDateDesc, SortDateAsc, SortNameAsc:
		return true
	}
	return false
}

// ParseSortMode returns SortManual for an empty string.
func ParseSortMode(raw string) (SortMode, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return SortManual, nil
	}
	m := SortMode(raw)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSortMode, raw)
	}
	return m, nil
}

// Column returns the records of one status ordered by mode.
// The result is a fresh slice of clones.
func Column(records []Record, status Status, mode SortMode) []Record {
	col := make([]Record, 0)
	for _, r := range records {
		if r.Status == status {
			col = append(col, r.Clone())
		}
	}
	SortRecords(col, mode)
	return col
}

// Columns groups records by status in board order.
func Columns(records []Record, mode SortMode) map[Status][]Record {
	out := make(map[Status][]Record, len(Statuses))
	for _, s := range Statuses {
		out[s] = Column(records, s, mode)
	}
	return out
}

// SortRecords sorts in place. Unknown modes fall back to manual.
func SortRecords(col []Record, mode SortMode) {
	var less func(a, b Record) bool
	switch mode {
	case SortDateDesc:
		less = func(a, b Record) bool {
			da, db := displayDate(a), displayDate(b)
			if !da.Equal(db) {
				return da.After(db)
			}
			return a.ID < b.ID
		}
	case SortDateAsc:
		less = func(a, b Record) bool {
			da, db := displayDate(a), displayDate(b)
			if !da.Equal(db) {
				return da.Before(db)
			}
			return a.ID < b.ID
		}
	case SortNameAsc:
		less = func(a, b Record) bool {
			ca, cb := strings.ToLower(a.Company), strings.ToLower(b.Company)
			if ca != cb {
				return ca < cb
			}
			ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title)
			if ta != tb {
				return ta < tb
			}
			return a.ID < b.ID
		}
	default:
		less = func(a, b Record) bool {
			if a.Position != b.Position {
				return a.Position < b.Position
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		}
	}
	sort.SliceStable(col, func(i, j int) bool { return less(col[i], col[j]) })
}

// displayDate is the application date, or the creation time when unset.
func displayDate(r Record) time.Time {
	if r.ApplicationDate != nil {
		return *r.ApplicationDate
	}
	return r.CreatedAt
}
