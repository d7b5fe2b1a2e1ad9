package dtos

import "github.com/justsurfingit/pipeline-board/internal/board"

type SortRequest struct {
	Mode string `json:"mode" binding:"required,oneof=manual date_desc date_asc name_asc"`
}

// MoveRequest is a completed drop, as reported by a client that tracks the
// gesture itself.
type MoveRequest struct {
	ActiveID string `json:"active_id" binding:"required"`
	OverID   string `json:"over_id"`
	OverType string `json:"over_type" binding:"omitempty,oneof=card column"`
}

// PointerEvent is one step of a replayed gesture. Over* describe what is
// under the pointer and only matter for "up".
type PointerEvent struct {
	Type     string  `json:"type" binding:"required,oneof=move up cancel"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	OverID   string  `json:"over_id"`
	OverType string  `json:"over_type" binding:"omitempty,oneof=card column"`
}

type GestureRequest struct {
	ActiveID string         `json:"active_id" binding:"required"`
	StartX   float64        `json:"start_x"`
	StartY   float64        `json:"start_y"`
	Events   []PointerEvent `json:"events" binding:"required,min=1,dive"`
}

type BoardResponse struct {
	SortMode string             `json:"sort_mode"`
	Version  uint64             `json:"version"`
	Columns  []board.ColumnView `json:"columns"`
	Notices  []board.Notice     `json:"notices"`
}

type CommitResponse struct {
	Outcome     string        `json:"outcome"`
	Description string        `json:"description,omitempty"`
	Error       string        `json:"error,omitempty"`
	Board       BoardResponse `json:"board"`
}
