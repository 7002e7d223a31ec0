// Package store holds the in-memory table of one record kind and the
// operations that mutate it. Every mutation is persisted before it is
// reported as successful.
package store

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/calvinalkan/reqtsv/internal/record"
	"github.com/calvinalkan/reqtsv/internal/table"
	"github.com/calvinalkan/reqtsv/pkg/fs"
)

// Persister writes an encoded table.
type Persister interface {
	Persist(data []byte) error
}

// PersistFunc adapts a function to [Persister].
type PersistFunc func(data []byte) error

func (f PersistFunc) Persist(data []byte) error {
	return f(data)
}

// Kind is the capability set the store needs from a record type.
type Kind[R any] struct {
	// Name is used in errors and logs.
	Name   string
	Schema *table.Schema[R]

	ID        func(rec *R) uint64
	Status    func(rec *R) record.Status
	SetStatus func(rec *R, status record.Status)

	// Conflict returns the identity field that incoming shares with existing.
	Conflict func(existing, incoming *R) (field string, ok bool)

	// Init turns draft fields into a new record.
	Init func(rec *R, id uint64, now time.Time)

	// Apply copies the editable fields of edit into rec.
	Apply func(rec *R, edit *R)

	Validate func(rec *R) error
}

// Store holds every record of one kind in table order.
// Not safe for concurrent use.
type Store[R any] struct {
	kind    Kind[R]
	records []R
	persist Persister
	now     func() time.Time
	log     *slog.Logger
}

// Option configures a [Store].
type Option func(*options)

type options struct {
	now func() time.Time
	log *slog.Logger
}

// WithClock sets the clock used for creation dates.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.log = logger }
}

// New returns a store over records. It takes ownership of the slice.
func New[R any](kind Kind[R], records []R, p Persister, opts ...Option) *Store[R] {
	o := options{now: time.Now, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store[R]{
		kind:    kind,
		records: records,
		persist: p,
		now:     o.now,
		log:     o.log.With("kind", kind.Name),
	}
}

// Load decodes a table and returns a store over its records.
func Load[R any](kind Kind[R], data []byte, p Persister, opts ...Option) (*Store[R], error) {
	records, err := table.Decode(kind.Schema, data)
	if err != nil {
		return nil, fmt.Errorf("load %s table: %w", kind.Name, err)
	}

	return New(kind, records, p, opts...), nil
}

// Len returns the number of records including deleted ones.
func (s *Store[R]) Len() int {
	return len(s.records)
}

// All returns a copy of every record in table order.
func (s *Store[R]) All() []R {
	out := make([]R, len(s.records))
	copy(out, s.records)

	return out
}

// Bytes returns the encoded table.
func (s *Store[R]) Bytes() ([]byte, error) {
	return table.Encode(s.kind.Schema, s.records)
}

// Lookup returns the record with id.
func (s *Store[R]) Lookup(id uint64) (R, bool) {
	i := s.indexOf(id)
	if i < 0 {
		var zero R

		return zero, false
	}

	return s.records[i], true
}

func (s *Store[R]) indexOf(id uint64) int {
	if id < uint64(len(s.records)) && s.kind.ID(&s.records[id]) == id {
		return int(id)
	}

	for i := range s.records {
		if s.kind.ID(&s.records[i]) == id {
			return i
		}
	}

	return -1
}

// Insert creates a record from draft fields and persists the table.
//
// A draft conflicts with every record sharing an identity field, deleted
// ones included. If persisting fails the record is dropped again, unless
// the new table was committed (see [fs.Committed]), in which case the id is
// returned together with the error.
func (s *Store[R]) Insert(draft R) (uint64, error) {
	err := s.kind.Validate(&draft)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", s.kind.Name, err)
	}

	err = s.checkConflict(&draft, -1)
	if err != nil {
		return 0, err
	}

	id, err := s.nextID()
	if err != nil {
		return 0, err
	}

	rec := draft
	s.kind.Init(&rec, id, s.now())

	s.records = append(s.records, rec)

	err = s.save()
	if err != nil && !fs.Committed(err) {
		s.records = s.records[:len(s.records)-1]

		return 0, fmt.Errorf("insert %s: %w", s.kind.Name, err)
	}

	s.log.Debug("record inserted", "id", id)

	if err != nil {
		return id, fmt.Errorf("insert %s %d: %w", s.kind.Name, id, err)
	}

	return id, nil
}

// Update applies edited fields to record id, marks it Accepted and
// persists the table. The record itself is exempt from the conflict check.
func (s *Store[R]) Update(id uint64, edit R) error {
	err := s.kind.Validate(&edit)
	if err != nil {
		return fmt.Errorf("update %s %d: %w", s.kind.Name, id, err)
	}

	i, err := s.mutable(id)
	if err != nil {
		return err
	}

	err = s.checkConflict(&edit, i)
	if err != nil {
		return err
	}

	return s.replace(i, "update", func(rec *R) error {
		s.kind.Apply(rec, &edit)
		s.kind.SetStatus(rec, record.StatusAccepted)

		return nil
	})
}

// Delete marks record id Deleted and persists the table.
func (s *Store[R]) Delete(id uint64) error {
	i, err := s.mutable(id)
	if err != nil {
		return err
	}

	return s.replace(i, "delete", func(rec *R) error {
		s.kind.SetStatus(rec, record.StatusDeleted)

		return nil
	})
}

// Modify runs fn on a copy of record id and stores the result. fn must not
// change the id or the status.
func (s *Store[R]) Modify(id uint64, fn func(rec *R) error) error {
	i, err := s.mutable(id)
	if err != nil {
		return err
	}

	return s.replace(i, "modify", func(rec *R) error {
		err := fn(rec)
		if err != nil {
			return err
		}

		return s.kind.Validate(rec)
	})
}

func (s *Store[R]) mutable(id uint64) (int, error) {
	i := s.indexOf(id)
	if i < 0 {
		return -1, fmt.Errorf("%s %d: %w", s.kind.Name, id, ErrNotFound)
	}

	if s.kind.Status(&s.records[i]) == record.StatusDeleted {
		return -1, fmt.Errorf("%s %d: %w", s.kind.Name, id, ErrAlreadyDeleted)
	}

	return i, nil
}

func (s *Store[R]) replace(i int, op string, fn func(rec *R) error) error {
	prev := s.records[i]
	next := prev
	id := s.kind.ID(&prev)

	err := fn(&next)
	if err != nil {
		return fmt.Errorf("%s %s %d: %w", op, s.kind.Name, id, err)
	}

	s.records[i] = next

	err = s.save()
	if err != nil && !fs.Committed(err) {
		s.records[i] = prev
	}

	if err != nil {
		return fmt.Errorf("%s %s %d: %w", op, s.kind.Name, id, err)
	}

	s.log.Debug("record changed", "op", op, "id", id)

	return nil
}

func (s *Store[R]) checkConflict(incoming *R, skip int) error {
	for i := range s.records {
		if i == skip {
			continue
		}

		field, ok := s.kind.Conflict(&s.records[i], incoming)
		if ok {
			return &ConflictError{Kind: s.kind.Name, ID: s.kind.ID(&s.records[i]), Field: field}
		}
	}

	return nil
}

// nextID returns one past the largest id, or 0 for an empty table.
func (s *Store[R]) nextID() (uint64, error) {
	if len(s.records) == 0 {
		return 0, nil
	}

	var highest uint64
	for i := range s.records {
		highest = max(highest, s.kind.ID(&s.records[i]))
	}

	if highest == math.MaxUint64 {
		return 0, fmt.Errorf("%s: %w", s.kind.Name, ErrIDSpace)
	}

	return highest + 1, nil
}

func (s *Store[R]) save() error {
	data, err := s.Bytes()
	if err != nil {
		return err
	}

	return s.persist.Persist(data)
}
