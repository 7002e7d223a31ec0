package store

import (
	"time"

	"github.com/calvinalkan/reqtsv/internal/record"
)

// Components is the component kind. Name is its identity field.
var Components = Kind[record.Component]{
	Name:   "component",
	Schema: record.ComponentSchema,

	ID:        func(c *record.Component) uint64 { return c.ID },
	Status:    func(c *record.Component) record.Status { return c.Status },
	SetStatus: func(c *record.Component, s record.Status) { c.Status = s },

	Conflict: func(existing, incoming *record.Component) (string, bool) {
		return "name", existing.Name == incoming.Name
	},

	Init: func(c *record.Component, id uint64, now time.Time) {
		c.ID = id
		c.Created = now.Round(0)
		c.Status = record.StatusAccepted
	},

	Apply: func(c *record.Component, edit *record.Component) {
		c.Name = edit.Name
		c.Description = edit.Description
		c.Author = edit.Author
	},

	Validate: (*record.Component).Validate,
}

// Requirements is the requirement kind. Title and requirement text are each
// an identity field. Every accepted edit bumps the version.
var Requirements = Kind[record.Requirement]{
	Name:   "requirement",
	Schema: record.RequirementSchema,

	ID:        func(r *record.Requirement) uint64 { return r.ID },
	Status:    func(r *record.Requirement) record.Status { return r.Status },
	SetStatus: func(r *record.Requirement, s record.Status) { r.Status = s },

	Conflict: func(existing, incoming *record.Requirement) (string, bool) {
		switch {
		case existing.Title == incoming.Title:
			return "title", true
		case existing.Text == incoming.Text:
			return "requirement_text", true
		default:
			return "", false
		}
	},

	Init: func(r *record.Requirement, id uint64, now time.Time) {
		r.ID = id
		r.Created = now.Round(0)
		r.Version = 0
		r.Status = record.StatusAccepted
	},

	Apply: func(r *record.Requirement, edit *record.Requirement) {
		r.Title = edit.Title
		r.Functional = edit.Functional
		r.Text = edit.Text
		r.Author = edit.Author
		r.Priority = edit.Priority
		r.Risks = edit.Risks
		r.Version++
	},

	Validate: (*record.Requirement).Validate,
}
