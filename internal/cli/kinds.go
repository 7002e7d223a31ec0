package cli

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/calvinalkan/reqtsv/internal/project"
	"github.com/calvinalkan/reqtsv/internal/record"
	"github.com/calvinalkan/reqtsv/internal/staging"
	"github.com/calvinalkan/reqtsv/internal/store"
)

// kind is what commands taking a <kind> argument operate on.
type kind interface {
	Name() string
	Files() staging.Kind

	// Linked reports whether records reference a component.
	Linked() bool

	// Ranked reports whether records carry a priority.
	Ranked() bool

	Draft(author string) []byte
	Insert(p *project.Project, doc []byte, componentID uint64) (uint64, error)
	EditDoc(p *project.Project, id uint64) ([]byte, error)
	Update(p *project.Project, id uint64, doc []byte) error
	Delete(p *project.Project, id uint64) error
	Label(p *project.Project, id uint64) (string, error)
	Show(p *project.Project, id uint64) ([]byte, error)
	List(p *project.Project, f listFilter) []string
}

type listFilter struct {
	all         bool
	component   *uint64
	minPriority *record.Priority
}

// recordKind binds a store kind to its staging documents and terminal
// rendering.
type recordKind[R any] struct {
	meta   store.Kind[R]
	files  staging.Kind
	store  func(p *project.Project) *store.Store[R]
	draft  func(author string) []byte
	parse  func(doc []byte) (R, error)
	render func(rec *R) []byte
	label  func(rec *R) string
	view   func(p *project.Project, rec *R) any
	row    func(rec *R) string

	// link and componentOf are nil for kinds without a component reference.
	link        func(rec *R, componentID uint64)
	componentOf func(rec *R) uint64

	// priorityOf is nil for kinds without a priority.
	priorityOf func(rec *R) record.Priority
}

func (k *recordKind[R]) Name() string        { return k.meta.Name }
func (k *recordKind[R]) Files() staging.Kind { return k.files }
func (k *recordKind[R]) Linked() bool        { return k.link != nil }
func (k *recordKind[R]) Ranked() bool        { return k.priorityOf != nil }

func (k *recordKind[R]) Draft(author string) []byte {
	return k.draft(author)
}

func (k *recordKind[R]) Insert(p *project.Project, doc []byte, componentID uint64) (uint64, error) {
	rec, err := k.parse(doc)
	if err != nil {
		return 0, err
	}

	if k.link != nil {
		k.link(&rec, componentID)
	}

	return k.store(p).Insert(rec)
}

func (k *recordKind[R]) EditDoc(p *project.Project, id uint64) ([]byte, error) {
	rec, err := k.live(p, id)
	if err != nil {
		return nil, err
	}

	return k.render(&rec), nil
}

func (k *recordKind[R]) Update(p *project.Project, id uint64, doc []byte) error {
	edit, err := k.parse(doc)
	if err != nil {
		return err
	}

	return k.store(p).Update(id, edit)
}

func (k *recordKind[R]) Delete(p *project.Project, id uint64) error {
	return k.store(p).Delete(id)
}

func (k *recordKind[R]) Label(p *project.Project, id uint64) (string, error) {
	rec, err := k.live(p, id)
	if err != nil {
		return "", err
	}

	return k.label(&rec), nil
}

func (k *recordKind[R]) Show(p *project.Project, id uint64) ([]byte, error) {
	rec, ok := k.store(p).Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", k.meta.Name, id, store.ErrNotFound)
	}

	var buf bytes.Buffer

	err := toml.NewEncoder(&buf).Encode(k.view(p, &rec))
	if err != nil {
		return nil, fmt.Errorf("render %s %d: %w", k.meta.Name, id, err)
	}

	return buf.Bytes(), nil
}

func (k *recordKind[R]) List(p *project.Project, f listFilter) []string {
	var rows []string

	for _, rec := range k.store(p).All() {
		if !f.all && k.meta.Status(&rec) == record.StatusDeleted {
			continue
		}

		if f.component != nil && k.componentOf != nil && k.componentOf(&rec) != *f.component {
			continue
		}

		if f.minPriority != nil && k.priorityOf != nil {
			p := k.priorityOf(&rec)
			if p != *f.minPriority && !p.MoreSevere(*f.minPriority) {
				continue
			}
		}

		rows = append(rows, k.row(&rec))
	}

	return rows
}

// live returns record id unless it is missing or deleted.
func (k *recordKind[R]) live(p *project.Project, id uint64) (R, error) {
	rec, ok := k.store(p).Lookup(id)
	if !ok {
		return rec, fmt.Errorf("%s %d: %w", k.meta.Name, id, store.ErrNotFound)
	}

	if k.meta.Status(&rec) == record.StatusDeleted {
		return rec, fmt.Errorf("%s %d: %w", k.meta.Name, id, store.ErrAlreadyDeleted)
	}

	return rec, nil
}

type componentView struct {
	ID           uint64    `toml:"id"`
	Name         string    `toml:"name"`
	Description  string    `toml:"description,multiline"`
	Created      time.Time `toml:"creation_date"`
	Status       string    `toml:"status"`
	Author       string    `toml:"author"`
	Requirements []uint64  `toml:"requirements,omitempty"`
}

type requirementView struct {
	ID          uint64    `toml:"id"`
	ComponentID uint64    `toml:"component_id"`
	Component   string    `toml:"component"`
	Title       string    `toml:"title"`
	Functional  string    `toml:"functional"`
	Created     time.Time `toml:"creation_date"`
	Text        string    `toml:"requirement_text,multiline"`
	Version     uint64    `toml:"version"`
	Author      string    `toml:"author"`
	Priority    string    `toml:"priority"`
	Status      string    `toml:"status"`
	Risks       string    `toml:"risks,multiline"`
}

// notFound is shown in place of the name of a dangling component.
const notFound = "(not found)"

var componentKind = &recordKind[record.Component]{
	meta:   store.Components,
	files:  staging.Components,
	store:  (*project.Project).ComponentStore,
	draft:  staging.ComponentDraft,
	parse:  staging.ParseComponent,
	render: staging.ComponentEdit,
	label:  func(c *record.Component) string { return c.Name },
	view: func(p *project.Project, c *record.Component) any {
		v := componentView{
			ID:          c.ID,
			Name:        c.Name,
			Description: record.UnescapeNewlines(c.Description),
			Created:     c.Created,
			Status:      c.Status.String(),
			Author:      c.Author,
		}

		for _, r := range p.RequirementsOf(c.ID) {
			v.Requirements = append(v.Requirements, r.ID)
		}

		return v
	},
	row: func(c *record.Component) string {
		return fmt.Sprintf("%d\t%s\t%s", c.ID, c.Status, c.Name)
	},
}

var requirementKind = &recordKind[record.Requirement]{
	meta:   store.Requirements,
	files:  staging.Requirements,
	store:  (*project.Project).RequirementStore,
	draft:  staging.RequirementDraft,
	parse:  staging.ParseRequirement,
	render: staging.RequirementEdit,
	label:  func(r *record.Requirement) string { return r.Title },
	view: func(p *project.Project, r *record.Requirement) any {
		name := notFound
		if c, ok := p.ResolveComponent(r.ComponentID); ok {
			name = c.Name
		}

		return requirementView{
			ID:          r.ID,
			ComponentID: r.ComponentID,
			Component:   name,
			Title:       r.Title,
			Functional:  r.Functional.String(),
			Created:     r.Created,
			Text:        record.UnescapeNewlines(r.Text),
			Version:     r.Version,
			Author:      r.Author,
			Priority:    r.Priority.String(),
			Status:      r.Status.String(),
			Risks:       record.UnescapeNewlines(r.Risks),
		}
	},
	row: func(r *record.Requirement) string {
		return fmt.Sprintf("%d\t%d\t%s\t%s\t%s", r.ID, r.ComponentID, r.Priority, r.Status, r.Title)
	},
	link:        func(r *record.Requirement, componentID uint64) { r.ComponentID = componentID },
	componentOf: func(r *record.Requirement) uint64 { return r.ComponentID },
	priorityOf:  func(r *record.Requirement) record.Priority { return r.Priority },
}

func parseKind(arg string) (kind, error) {
	switch strings.ToLower(arg) {
	case "component", "components", "comp", "c":
		return componentKind, nil
	case "requirement", "requirements", "req", "r":
		return requirementKind, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownKind, arg)
	}
}

// kindArgs splits "<kind> rest..." and checks the rest has want entries.
func kindArgs(args []string, want int, missing error) (kind, []string, error) {
	if len(args) == 0 {
		return nil, nil, errKindRequired
	}

	k, err := parseKind(args[0])
	if err != nil {
		return nil, nil, err
	}

	rest := args[1:]

	switch {
	case len(rest) < want:
		return nil, nil, missing
	case len(rest) > want:
		return nil, nil, fmt.Errorf("%w: %s", errTooManyArgs, strings.Join(rest[want:], " "))
	}

	return k, rest, nil
}

// componentState describes a component a requirement is linked to, for
// warnings. Empty when the component is live.
func componentState(p *project.Project, id uint64) string {
	c, ok := p.ResolveComponent(id)

	switch {
	case !ok:
		return fmt.Sprintf("component %d not found", id)
	case c.Status == record.StatusDeleted:
		return fmt.Sprintf("component %d is deleted", id)
	default:
		return ""
	}
}
