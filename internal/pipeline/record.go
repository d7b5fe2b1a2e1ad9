package pipeline

import "time"

// Record is one job application as the board sees it.
type Record struct {
	ID              string     `json:"id"`
	Status          Status     `json:"status"`
	Position        int        `json:"position"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ApplicationDate *time.Time `json:"application_date"`
	LastContactDate *time.Time `json:"last_contact_date"`

	Company string `json:"company_name"`
	Title   string `json:"role_title"`
}

// Clone returns a copy that shares no pointers with r.
func (r Record) Clone() Record {
	r.ApplicationDate = cloneTime(r.ApplicationDate)
	r.LastContactDate = cloneTime(r.LastContactDate)
	return r
}

// Patch is a sparse update of one record. Nil fields are left untouched.
type Patch struct {
	ID              string
	Status          *Status
	Position        *int
	UpdatedAt       *time.Time
	ApplicationDate *time.Time
	LastContactDate *time.Time
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Status == nil && p.Position == nil && p.UpdatedAt == nil &&
		p.ApplicationDate == nil && p.LastContactDate == nil
}

// ApplyTo returns r with the patch fields written over it.
func (p Patch) ApplyTo(r Record) Record {
	r = r.Clone()
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Position != nil {
		r.Position = *p.Position
	}
	if p.UpdatedAt != nil {
		r.UpdatedAt = *p.UpdatedAt
	}
	if p.ApplicationDate != nil {
		r.ApplicationDate = cloneTime(p.ApplicationDate)
	}
	if p.LastContactDate != nil {
		r.LastContactDate = cloneTime(p.LastContactDate)
	}
	return r
}

// Merge overlays o on p. Fields set in o win.
func (p Patch) Merge(o Patch) Patch {
	if p.ID == "" {
		p.ID = o.ID
	}
	if o.Status != nil {
		p.Status = o.Status
	}
	if o.Position != nil {
		p.Position = o.Position
	}
	if o.UpdatedAt != nil {
		p.UpdatedAt = o.UpdatedAt
	}
	if o.ApplicationDate != nil {
		p.ApplicationDate = o.ApplicationDate
	}
	if o.LastContactDate != nil {
		p.LastContactDate = o.LastContactDate
	}
	return p
}

// PositionUpdate is the payload persisted after a manual reorder.
type PositionUpdate struct {
	ID        string
	Position  int
	UpdatedAt time.Time
}

// PositionUpdates extracts the position entries of a patch set.
// Patches without a position are skipped.
func PositionUpdates(patches []Patch) []PositionUpdate {
	out := make([]PositionUpdate, 0, len(patches))
	for _, p := range patches {
		if p.Position == nil {
			continue
		}
		u := PositionUpdate{ID: p.ID, Position: *p.Position}
		if p.UpdatedAt != nil {
			u.UpdatedAt = *p.UpdatedAt
		}
		out = append(out, u)
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func ptr[T any](v T) *T { return &v }
