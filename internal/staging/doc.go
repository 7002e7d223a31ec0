// Package staging renders and parses the TOML documents operators fill in
// to create (drafts) or modify (edits) records.
package staging

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/calvinalkan/reqtsv/internal/record"
)

// ErrSanitize is returned when a staging document has an illegal shape or
// character. The document is left in place for correction.
var ErrSanitize = errors.New("sanitize")

// Template placeholders written into new drafts.
const (
	placeholderName        = "type name here"
	placeholderTitle       = "type title here"
	placeholderAuthor      = "type author name here"
	placeholderDescription = `write description here\nuse more than one line if you want`
	placeholderText        = `write requirement here\nuse more than one line if you want`
	placeholderRisks       = `write risks here\nuse more than one line if you want`
)

const (
	commentNoTabs     = "Do not include any tab characters in the document"
	commentMultiLine  = `If writing on multiple lines use triple quotes (e.g. """stuff""")`
	commentEditStatus = "Ignored on update, an accepted edit is always stored as Accepted"
)

// ComponentDraft renders a blank component document. A non-empty author
// replaces the author placeholder.
func ComponentDraft(author string) []byte {
	return renderComponent(&record.Component{
		Name:        placeholderName,
		Description: placeholderDescription,
		Author:      orPlaceholder(author, placeholderAuthor),
	})
}

// ComponentEdit renders c's editable fields for modification.
func ComponentEdit(c *record.Component) []byte {
	return renderComponent(c)
}

func renderComponent(c *record.Component) []byte {
	var w docWriter

	w.comment(commentNoTabs, noNewlines("name"))
	w.single("name", c.Name)
	w.blank()
	w.comment(commentMultiLine)
	w.multi("description", c.Description)
	w.blank()
	w.comment(noNewlines("author"))
	w.single("author", c.Author)

	return w.bytes()
}

// RequirementDraft renders a blank requirement document. Enum fields start
// empty and must be filled in.
func RequirementDraft(author string) []byte {
	var w docWriter

	w.comment(commentNoTabs, noNewlines("title"))
	w.single("title", placeholderTitle)
	w.blank()
	w.comment(writeOnly(record.Functionalities()))
	w.single("functional", "")
	w.blank()
	w.comment(commentMultiLine)
	w.multi("requirement_text", placeholderText)
	w.blank()
	w.comment(noNewlines("author"))
	w.single("author", orPlaceholder(author, placeholderAuthor))
	w.blank()
	w.comment(writeOnly(record.Priorities()))
	w.single("priority", "")
	w.blank()
	w.comment(commentMultiLine)
	w.multi("risks", placeholderRisks)

	return w.bytes()
}

// RequirementEdit renders r's editable fields for modification.
func RequirementEdit(r *record.Requirement) []byte {
	var w docWriter

	w.comment(commentNoTabs, noNewlines("title"))
	w.single("title", r.Title)
	w.blank()
	w.comment(writeOnly(record.Functionalities()))
	w.single("functional", r.Functional.String())
	w.blank()
	w.comment(commentMultiLine)
	w.multi("requirement_text", r.Text)
	w.blank()
	w.comment(noNewlines("author"))
	w.single("author", r.Author)
	w.blank()
	w.comment(writeOnly(record.Priorities()))
	w.single("priority", r.Priority.String())
	w.blank()
	w.comment(commentMultiLine)
	w.multi("risks", r.Risks)
	w.blank()
	w.comment(commentEditStatus)
	w.single("status", record.StatusDraft.String())

	return w.bytes()
}

type componentDoc struct {
	Name        *string `toml:"name"`
	Description *string `toml:"description"`
	Author      *string `toml:"author"`
}

// ParseComponent reads a component document into a record holding only the
// editable fields. Multi-line fields come back in stored (escaped) form.
func ParseComponent(data []byte) (record.Component, error) {
	var doc componentDoc

	err := decodeStrict(data, &doc)
	if err != nil {
		return record.Component{}, err
	}

	var c record.Component

	err = errors.Join(
		singleLine("name", doc.Name, &c.Name),
		multiLine("description", doc.Description, &c.Description),
		singleLine("author", doc.Author, &c.Author),
	)
	if err != nil {
		return record.Component{}, err
	}

	return c, nil
}

type requirementDoc struct {
	Title      *string `toml:"title"`
	Functional *string `toml:"functional"`
	Text       *string `toml:"requirement_text"`
	Author     *string `toml:"author"`
	Priority   *string `toml:"priority"`
	Risks      *string `toml:"risks"`
	Status     *string `toml:"status"`
}

// ParseRequirement reads a requirement document into a record holding only
// the editable fields. An optional status key is validated and dropped.
func ParseRequirement(data []byte) (record.Requirement, error) {
	var doc requirementDoc

	err := decodeStrict(data, &doc)
	if err != nil {
		return record.Requirement{}, err
	}

	var r record.Requirement

	err = errors.Join(
		singleLine("title", doc.Title, &r.Title),
		multiLine("requirement_text", doc.Text, &r.Text),
		singleLine("author", doc.Author, &r.Author),
		multiLine("risks", doc.Risks, &r.Risks),
		enumField("functional", doc.Functional, record.ParseFunctionality, &r.Functional),
		enumField("priority", doc.Priority, record.ParsePriority, &r.Priority),
	)
	if err != nil {
		return record.Requirement{}, err
	}

	if doc.Status != nil {
		_, err = record.ParseStatus(*doc.Status)
		if err != nil {
			return record.Requirement{}, fmt.Errorf("%w: %w", ErrSanitize, err)
		}
	}

	return r, nil
}

func decodeStrict(data []byte, v any) error {
	md, err := toml.Decode(string(data), v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSanitize, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return fmt.Errorf("%w: unknown keys %s", ErrSanitize, strings.Join(keys, ", "))
	}

	return nil
}

func required(field string, v *string) (string, error) {
	if v == nil {
		return "", fmt.Errorf("%w: %s is missing", ErrSanitize, field)
	}

	return *v, nil
}

func singleLine(field string, v *string, dst *string) error {
	s, err := required(field, v)
	if err != nil {
		return err
	}

	err = record.CheckSingleLine(field, s)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSanitize, err)
	}

	*dst = s

	return nil
}

func multiLine(field string, v *string, dst *string) error {
	s, err := required(field, v)
	if err != nil {
		return err
	}

	if strings.ContainsRune(s, '\t') {
		return fmt.Errorf("%w: %s contains a tab", ErrSanitize, field)
	}

	*dst = record.EscapeNewlines(s)

	return nil
}

func enumField[E any](field string, v *string, parse func(string) (E, error), dst *E) error {
	s, err := required(field, v)
	if err != nil {
		return err
	}

	e, err := parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSanitize, err)
	}

	*dst = e

	return nil
}

func orPlaceholder(v, placeholder string) string {
	if v == "" {
		return placeholder
	}

	return v
}

func noNewlines(field string) string {
	return "Do not include any new-lines in the " + field + " field"
}

func writeOnly[E fmt.Stringer](values []E) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + v.String() + `"`
	}

	return "Write only: " + strings.Join(quoted, ", ")
}

// docWriter builds a document line by line. Single-line values are quoted
// by the TOML encoder, multi-line values are written as """ blocks.
type docWriter struct {
	buf bytes.Buffer
}

func (w *docWriter) comment(lines ...string) {
	for _, line := range lines {
		w.buf.WriteString("# " + line + "\n")
	}
}

func (w *docWriter) blank() {
	w.buf.WriteByte('\n')
}

func (w *docWriter) single(key, value string) {
	line, err := toml.Marshal(map[string]string{key: value})
	if err != nil {
		// Encoding a flat string map cannot fail.
		panic(fmt.Sprintf("encode %s: %v", key, err))
	}

	w.buf.Write(line)
}

// multi writes a stored multi-line value. Values without an escaped line
// break are written like single-line values.
func (w *docWriter) multi(key, stored string) {
	if !strings.Contains(stored, record.EscapedNewline) {
		w.single(key, stored)

		return
	}

	lines := strings.Split(stored, record.EscapedNewline)

	w.buf.WriteString(key + ` = """`)

	// A newline right after the opening quotes is trimmed by TOML.
	if lines[0] == "" {
		w.buf.WriteByte('\n')
	}

	for i, line := range lines {
		if i > 0 {
			w.buf.WriteByte('\n')
		}

		w.buf.WriteString(escapeBasic(line))
	}

	w.buf.WriteString(`"""` + "\n")
}

func (w *docWriter) bytes() []byte {
	return w.buf.Bytes()
}

// escapeBasic escapes s for a TOML multi-line basic string.
func escapeBasic(s string) string {
	var b strings.Builder

	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == '"':
			b.WriteString(`\"`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\u%04X`, r)
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}
