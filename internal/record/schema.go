package record

import (
	"fmt"
	"strconv"
	"time"

	"github.com/calvinalkan/reqtsv/internal/table"
)

// DateLayout is the creation_date cell format.
const DateLayout = time.RFC3339Nano

// ComponentSchema maps [Component] to component.tsv.
var ComponentSchema = &table.Schema[Component]{
	Columns: []string{"id", "name", "description", "creation_date", "status", "author"},
	Encode: func(c *Component) []string {
		return []string{
			formatID(c.ID),
			c.Name,
			c.Description,
			c.Created.Format(DateLayout),
			c.Status.String(),
			c.Author,
		}
	},
	Decode: decodeComponent,
}

// RequirementSchema maps [Requirement] to requirement.tsv.
var RequirementSchema = &table.Schema[Requirement]{
	Columns: []string{
		"id", "component_id", "title", "functional", "creation_date",
		"requirement_text", "version", "author", "priority", "status", "risks",
	},
	Encode: func(r *Requirement) []string {
		return []string{
			formatID(r.ID),
			formatID(r.ComponentID),
			r.Title,
			r.Functional.String(),
			r.Created.Format(DateLayout),
			r.Text,
			formatID(r.Version),
			r.Author,
			r.Priority.String(),
			r.Status.String(),
			r.Risks,
		}
	},
	Decode: decodeRequirement,
}

func decodeComponent(cells []string) (Component, error) {
	var (
		c   Component
		err error
	)

	c.ID, err = parseUint("id", cells[0])
	if err != nil {
		return c, err
	}

	c.Name = cells[1]
	c.Description = cells[2]

	c.Created, err = parseDate(cells[3])
	if err != nil {
		return c, err
	}

	c.Status, err = ParseStatus(cells[4])
	if err != nil {
		return c, err
	}

	c.Author = cells[5]

	return c, c.Validate()
}

func decodeRequirement(cells []string) (Requirement, error) {
	var (
		r   Requirement
		err error
	)

	r.ID, err = parseUint("id", cells[0])
	if err != nil {
		return r, err
	}

	r.ComponentID, err = parseUint("component_id", cells[1])
	if err != nil {
		return r, err
	}

	r.Title = cells[2]

	r.Functional, err = ParseFunctionality(cells[3])
	if err != nil {
		return r, err
	}

	r.Created, err = parseDate(cells[4])
	if err != nil {
		return r, err
	}

	r.Text = cells[5]

	r.Version, err = parseUint("version", cells[6])
	if err != nil {
		return r, err
	}

	r.Author = cells[7]

	r.Priority, err = ParsePriority(cells[8])
	if err != nil {
		return r, err
	}

	r.Status, err = ParseStatus(cells[9])
	if err != nil {
		return r, err
	}

	r.Risks = cells[10]

	return r, r.Validate()
}

func formatID(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseUint(field, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an unsigned integer", ErrInvalidValue, field, s)
	}

	return v, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: creation_date %q: %w", ErrInvalidValue, s, err)
	}

	return t, nil
}
