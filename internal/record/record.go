// Package record defines the two record kinds reqtsv stores, their enums,
// and the table schemas that serialize them.
package record

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidValue is returned when a field holds a value the model forbids.
var ErrInvalidValue = errors.New("invalid value")

// Table file names.
const (
	ComponentTable   = "component.tsv"
	RequirementTable = "requirement.tsv"
)

// Component is an organizational unit requirements are filed against.
type Component struct {
	ID          uint64
	Name        string
	Description string // multi-line, escaped
	Created     time.Time
	Status      Status
	Author      string
}

// Requirement belongs to a component by ID. ComponentID is never validated
// against the component table and may dangle.
type Requirement struct {
	ID          uint64
	ComponentID uint64
	Title       string
	Functional  Functionality
	Created     time.Time
	Text        string // multi-line, escaped
	Version     uint64
	Author      string
	Priority    Priority
	Status      Status
	Risks       string // multi-line, escaped
}

// Validate checks the character rules of every text field.
func (c *Component) Validate() error {
	return errors.Join(
		CheckSingleLine("name", c.Name),
		CheckMultiLine("description", c.Description),
		CheckSingleLine("author", c.Author),
	)
}

// Validate checks the character rules of every text field.
func (r *Requirement) Validate() error {
	return errors.Join(
		CheckSingleLine("title", r.Title),
		CheckMultiLine("requirement_text", r.Text),
		CheckSingleLine("author", r.Author),
		CheckMultiLine("risks", r.Risks),
	)
}

// CheckSingleLine rejects tabs and raw line breaks.
func CheckSingleLine(field, value string) error {
	if i := strings.IndexAny(value, "\t\r\n"); i >= 0 {
		return fmt.Errorf("%w: %s contains %s at byte %d", ErrInvalidValue, field, describe(value[i]), i)
	}

	return nil
}

// CheckMultiLine rejects tabs and raw line breaks in the stored (escaped) form
// of a multi-line field.
func CheckMultiLine(field, value string) error {
	return CheckSingleLine(field, value)
}

func describe(b byte) string {
	switch b {
	case '\t':
		return "a tab"
	case '\r':
		return "a carriage return"
	default:
		return "a line break"
	}
}

// EscapedNewline is how a line break is stored inside a table cell.
const EscapedNewline = `\n`

// EscapeNewlines rewrites CRLF, LF and lone CR to the two-character sequence
// [EscapedNewline].
func EscapeNewlines(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}

	s = strings.ReplaceAll(s, "\r\n", EscapedNewline)
	s = strings.ReplaceAll(s, "\n", EscapedNewline)

	return strings.ReplaceAll(s, "\r", EscapedNewline)
}

// UnescapeNewlines turns the stored form back into real line breaks.
func UnescapeNewlines(s string) string {
	return strings.ReplaceAll(s, EscapedNewline, "\n")
}
