package record

import (
	"fmt"
)

// Status is the lifecycle state shared by both record kinds.
// Deleted is terminal.
type Status uint8

const (
	StatusDraft Status = iota
	StatusAccepted
	StatusDeleted
)

var statusNames = []string{"Draft", "Accepted", "Deleted"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}

	return fmt.Sprintf("Status(%d)", uint8(s))
}

// ParseStatus parses the table spelling of a status.
func ParseStatus(s string) (Status, error) {
	v, err := parseEnum("status", s, statusNames)

	return Status(v), err
}

// Statuses lists all statuses in declaration order.
func Statuses() []Status {
	return []Status{StatusDraft, StatusAccepted, StatusDeleted}
}

// Functionality tells functional and non-functional requirements apart.
type Functionality uint8

const (
	Functional Functionality = iota
	NonFunctional
)

var functionalityNames = []string{"Functional", "NonFunctional"}

func (f Functionality) String() string {
	if int(f) < len(functionalityNames) {
		return functionalityNames[f]
	}

	return fmt.Sprintf("Functionality(%d)", uint8(f))
}

// ParseFunctionality parses "Functional" or "NonFunctional".
// "Non-Functional" is accepted too, it is how operators tend to type it.
func ParseFunctionality(s string) (Functionality, error) {
	if s == "Non-Functional" {
		return NonFunctional, nil
	}

	v, err := parseEnum("functional", s, functionalityNames)

	return Functionality(v), err
}

// Functionalities lists all values in declaration order.
func Functionalities() []Functionality {
	return []Functionality{Functional, NonFunctional}
}

// Priority of a requirement. Lower values are more severe:
// Mandated > High > Med > Low.
type Priority uint8

const (
	PriorityMandated Priority = iota
	PriorityHigh
	PriorityMed
	PriorityLow
)

var priorityNames = []string{"Mandated", "High", "Med", "Low"}

func (p Priority) String() string {
	if int(p) < len(priorityNames) {
		return priorityNames[p]
	}

	return fmt.Sprintf("Priority(%d)", uint8(p))
}

// MoreSevere reports whether p outranks other.
func (p Priority) MoreSevere(other Priority) bool {
	return p < other
}

// ParsePriority parses the table spelling of a priority.
func ParsePriority(s string) (Priority, error) {
	v, err := parseEnum("priority", s, priorityNames)

	return Priority(v), err
}

// Priorities lists all priorities from most to least severe.
func Priorities() []Priority {
	return []Priority{PriorityMandated, PriorityHigh, PriorityMed, PriorityLow}
}

func parseEnum(field, s string, names []string) (uint8, error) {
	for i, name := range names {
		if s == name {
			return uint8(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %s %q (want one of %v)", ErrInvalidValue, field, s, names)
}
