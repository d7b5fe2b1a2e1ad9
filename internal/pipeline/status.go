package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Status is a workflow stage. Every application lives in exactly one.
type Status string

const (
	StatusToApply   Status = "to_apply"
	StatusApplied   Status = "applied"
	StatusWaiting   Status = "waiting"
	StatusInterview Status = "interview"
	StatusOffer     Status = "offer"
	StatusRejected  Status = "rejected"
)

// Statuses lists the stages in board column order.
var Statuses = []Status{
	StatusToApply,
	StatusApplied,
	StatusWaiting,
	StatusInterview,
	StatusOffer,
	StatusRejected,
}

var statusLabels = map[Status]string{
	StatusToApply:   "À postuler",
	StatusApplied:   "Candidature envoyée",
	StatusWaiting:   "En attente",
	StatusInterview: "Entretien",
	StatusOffer:     "Offre",
	StatusRejected:  "Refusé",
}

var ErrUnknownStatus = errors.New("unknown status")

// Valid reports whether s is one of the six stages.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label is the human readable column title.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// ParseStatus accepts the stage identifier in any case.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	return s, nil
}
