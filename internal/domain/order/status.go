package order

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusToPay     Status = "to_pay"
	StatusToShip    Status = "to_ship"
	StatusToReceive Status = "to_receive"
	StatusCompleted Status = "completed"
	StatusRefund    Status = "refund"
	StatusCancelled Status = "cancelled"
)

// Statuses is the closed vocabulary, in lifecycle order.
var Statuses = []Status{
	StatusToPay,
	StatusToShip,
	StatusToReceive,
	StatusCompleted,
	StatusRefund,
	StatusCancelled,
}

// validTransitions defines the guarded lifecycle graph. The admin override does
// not consult it.
var validTransitions = map[Status][]Status{
	StatusToPay:     {StatusToShip, StatusRefund, StatusCancelled},
	StatusToShip:    {StatusToReceive, StatusRefund, StatusCancelled},
	StatusToReceive: {StatusCompleted, StatusRefund, StatusCancelled},
	StatusCompleted: {}, // terminal state
	StatusRefund:    {}, // terminal state
	StatusCancelled: {}, // terminal state
}

func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s.Valid() && len(validTransitions[s]) == 0
}

// CanTransition checks if an order in status from may move to status to
func CanTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// sourcesOf returns every status that may transition to target.
func sourcesOf(target Status) []Status {
	var from []Status
	for _, s := range Statuses {
		if CanTransition(s, target) {
			from = append(from, s)
		}
	}
	return from
}

// ParseStatus accepts only the canonical vocabulary.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(raw))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	return s, nil
}

// NormalizeLegacyStatus maps the spaced spellings written by older revisions
// ("to pay", "to ship", "to receive") onto the canonical vocabulary. It is used
// by store migrations only; request input goes through ParseStatus.
func NormalizeLegacyStatus(raw string) (Status, bool) {
	s := Status(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_"))
	return s, s.Valid()
}

// LegacyStatusSpellings lists stored values that NormalizeLegacyStatus rewrites.
func LegacyStatusSpellings() map[string]Status {
	legacy := make(map[string]Status)
	for _, s := range Statuses {
		if spaced := strings.ReplaceAll(string(s), "_", " "); spaced != string(s) {
			legacy[spaced] = s
		}
	}
	return legacy
}
