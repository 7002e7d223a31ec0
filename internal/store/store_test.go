package store_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/reqtsv/internal/record"
	"github.com/calvinalkan/reqtsv/internal/store"
	"github.com/calvinalkan/reqtsv/internal/table"
	"github.com/calvinalkan/reqtsv/pkg/fs"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// memTable records every persisted table.
type memTable struct {
	writes [][]byte
	fail   error
}

func (m *memTable) Persist(data []byte) error {
	if m.fail != nil {
		return m.fail
	}

	m.writes = append(m.writes, bytes.Clone(data))

	return nil
}

func (m *memTable) last(t *testing.T) []byte {
	t.Helper()

	if len(m.writes) == 0 {
		t.Fatal("nothing persisted")
	}

	return m.writes[len(m.writes)-1]
}

func newComponents(t *testing.T) (*store.Store[record.Component], *memTable) {
	t.Helper()

	mem := &memTable{}

	return store.New(store.Components, nil, mem, store.WithClock(fixedClock)), mem
}

func newRequirements(t *testing.T) (*store.Store[record.Requirement], *memTable) {
	t.Helper()

	mem := &memTable{}

	return store.New(store.Requirements, nil, mem, store.WithClock(fixedClock)), mem
}

func component(name string) record.Component {
	return record.Component{Name: name, Description: "desc", Author: "A"}
}

func requirement(title, text string) record.Requirement {
	return record.Requirement{
		ComponentID: 7,
		Title:       title,
		Functional:  record.Functional,
		Text:        text,
		Author:      "A",
		Priority:    record.PriorityMed,
		Risks:       "none",
	}
}

func Test_Insert_Then_Lookup_Returns_Accepted_Record(t *testing.T) {
	t.Parallel()

	s, mem := newComponents(t)

	for i, name := range []string{"Sensor", "Actuator", "Bus"} {
		id, err := s.Insert(component(name))
		require.NoError(t, err)

		if got, want := id, uint64(i); got != want {
			t.Fatalf("id=%d, want=%d", got, want)
		}

		got, ok := s.Lookup(id)
		require.True(t, ok)

		want := record.Component{
			ID:          id,
			Name:        name,
			Description: "desc",
			Created:     fixedNow,
			Status:      record.StatusAccepted,
			Author:      "A",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("lookup mismatch (-want +got):\n%s", diff)
		}
	}

	if got, want := len(mem.writes), 3; got != want {
		t.Fatalf("persist calls=%d, want=%d", got, want)
	}

	decoded, err := table.Decode(record.ComponentSchema, mem.last(t))
	require.NoError(t, err)

	if diff := cmp.Diff(s.All(), decoded); diff != "" {
		t.Fatalf("persisted table mismatch (-mem +disk):\n%s", diff)
	}
}

func Test_Insert_Assigns_Max_Plus_One_When_Ids_Have_Gaps(t *testing.T) {
	t.Parallel()

	existing := []record.Component{
		{ID: 0, Name: "a", Created: fixedNow, Status: record.StatusAccepted},
		{ID: 9, Name: "b", Created: fixedNow, Status: record.StatusDeleted},
		{ID: 4, Name: "c", Created: fixedNow, Status: record.StatusAccepted},
	}
	s := store.New(store.Components, existing, &memTable{})

	id, err := s.Insert(component("d"))
	require.NoError(t, err)
	assert.Equal(t, uint64(10), id)

	got, ok := s.Lookup(9)
	require.True(t, ok)
	assert.Equal(t, "b", got.Name)
}

func Test_Insert_Fails_With_Conflict_When_Identity_Matches_Deleted_Record(t *testing.T) {
	t.Parallel()

	s, mem := newComponents(t)

	id, err := s.Insert(component("Sensor"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(id))

	before := bytes.Clone(mem.last(t))
	writes := len(mem.writes)

	_, err = s.Insert(record.Component{Name: "Sensor", Description: "other", Author: "B"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("err=%v, want ErrConflict", err)
	}

	var conflict *store.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, id, conflict.ID)
	assert.Equal(t, "name", conflict.Field)

	if got, want := s.Len(), 1; got != want {
		t.Fatalf("len=%d, want=%d", got, want)
	}

	assert.Len(t, mem.writes, writes)

	after, err := s.Bytes()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func Test_Requirement_Conflicts_On_Title_Or_Text(t *testing.T) {
	t.Parallel()

	s, _ := newRequirements(t)

	_, err := s.Insert(requirement("Sample rate", "sample at 1Hz"))
	require.NoError(t, err)

	tests := []struct {
		name      string
		draft     record.Requirement
		wantField string
	}{
		{name: "same title", draft: requirement("Sample rate", "sample at 2Hz"), wantField: "title"},
		{name: "same text", draft: requirement("Rate", "sample at 1Hz"), wantField: "requirement_text"},
	}

	for _, tt := range tests {
		_, err := s.Insert(tt.draft)

		var conflict *store.ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("%s: err=%v, want *ConflictError", tt.name, err)
		}

		assert.Equal(t, tt.wantField, conflict.Field, tt.name)
		assert.Equal(t, uint64(0), conflict.ID, tt.name)
	}

	assert.Equal(t, 1, s.Len())
}

func Test_Delete_Twice_Fails_With_AlreadyDeleted_And_Keeps_Bytes(t *testing.T) {
	t.Parallel()

	s, mem := newComponents(t)

	id, err := s.Insert(component("Sensor"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(id))

	got, _ := s.Lookup(id)
	assert.Equal(t, record.StatusDeleted, got.Status)
	assert.Equal(t, "Sensor", got.Name)

	before, err := s.Bytes()
	require.NoError(t, err)

	writes := len(mem.writes)

	err = s.Delete(id)
	if !errors.Is(err, store.ErrAlreadyDeleted) {
		t.Fatalf("err=%v, want ErrAlreadyDeleted", err)
	}

	after, err := s.Bytes()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, mem.writes, writes)
}

func Test_Mutations_Fail_With_NotFound_When_Id_Is_Unknown(t *testing.T) {
	t.Parallel()

	s, _ := newRequirements(t)

	require.ErrorIs(t, s.Delete(3), store.ErrNotFound)
	require.ErrorIs(t, s.Update(3, requirement("t", "x")), store.ErrNotFound)
	require.ErrorIs(t, s.Modify(3, func(*record.Requirement) error { return nil }), store.ErrNotFound)

	_, ok := s.Lookup(3)
	assert.False(t, ok)
}

func Test_Update_Bumps_Version_And_Exempts_Own_Identity(t *testing.T) {
	t.Parallel()

	s, _ := newRequirements(t)

	id, err := s.Insert(requirement("Sample rate", "sample at 1Hz"))
	require.NoError(t, err)

	_, err = s.Insert(requirement("Range", "0 to 100"))
	require.NoError(t, err)

	edit := requirement("Sample rate", "sample at 2Hz")
	edit.Priority = record.PriorityMandated
	edit.ComponentID = 99

	require.NoError(t, s.Update(id, edit))

	got, _ := s.Lookup(id)
	assert.Equal(t, uint64(1), got.Version)
	assert.Equal(t, "sample at 2Hz", got.Text)
	assert.Equal(t, record.PriorityMandated, got.Priority)
	assert.Equal(t, uint64(7), got.ComponentID, "update must not relink")
	assert.Equal(t, record.StatusAccepted, got.Status)

	err = s.Update(id, requirement("Range", "other"))
	require.ErrorIs(t, err, store.ErrConflict)

	got, _ = s.Lookup(id)
	assert.Equal(t, uint64(1), got.Version)
}

func Test_Update_Fails_When_Record_Is_Deleted(t *testing.T) {
	t.Parallel()

	s, _ := newComponents(t)

	id, err := s.Insert(component("Sensor"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(id))

	err = s.Update(id, component("Sensor"))
	require.ErrorIs(t, err, store.ErrAlreadyDeleted)
}

func Test_Update_Promotes_Draft_Row_To_Accepted(t *testing.T) {
	t.Parallel()

	existing := []record.Component{{ID: 0, Name: "Sensor", Created: fixedNow, Status: record.StatusDraft}}
	s := store.New(store.Components, existing, &memTable{})

	require.NoError(t, s.Update(0, component("Sensor")))

	got, _ := s.Lookup(0)
	assert.Equal(t, record.StatusAccepted, got.Status)
}

func Test_Modify_Relinks_Without_Version_Bump(t *testing.T) {
	t.Parallel()

	s, mem := newRequirements(t)

	id, err := s.Insert(requirement("Sample rate", "sample at 1Hz"))
	require.NoError(t, err)

	err = s.Modify(id, func(r *record.Requirement) error {
		r.ComponentID = 2

		return nil
	})
	require.NoError(t, err)

	got, _ := s.Lookup(id)
	assert.Equal(t, uint64(2), got.ComponentID)
	assert.Equal(t, uint64(0), got.Version)
	assert.Len(t, mem.writes, 2)
}

func Test_Mutations_Roll_Back_When_Persist_Fails(t *testing.T) {
	t.Parallel()

	s, mem := newComponents(t)

	id, err := s.Insert(component("Sensor"))
	require.NoError(t, err)

	before, err := s.Bytes()
	require.NoError(t, err)

	ioErr := &os.PathError{Op: "rename", Path: "component.tsv", Err: syscall.EIO}
	mem.fail = ioErr

	_, err = s.Insert(component("Actuator"))
	require.ErrorIs(t, err, syscall.EIO)

	err = s.Update(id, record.Component{Name: "Sensor", Description: "new desc", Author: "A"})
	require.ErrorIs(t, err, syscall.EIO)

	err = s.Delete(id)
	require.ErrorIs(t, err, syscall.EIO)

	after, err := s.Bytes()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, s.Len())
}

func Test_Mutation_Is_Kept_When_Only_Old_Cleanup_Fails(t *testing.T) {
	t.Parallel()

	s, mem := newComponents(t)
	mem.fail = &fs.ReplaceError{Step: fs.StepRemoveOld, Path: "component.tsv", Err: syscall.EIO}

	id, err := s.Insert(component("Sensor"))
	require.ErrorIs(t, err, fs.ErrStaleOld)
	assert.True(t, fs.Committed(err))

	got, ok := s.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, "Sensor", got.Name)
}

func Test_Sensor_Scenario_Persists_Through_Replacer(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), record.ComponentTable)
	require.NoError(t, os.WriteFile(path, record.ComponentSchema.Header(), 0o644))

	replacer := fs.NewReplacer(fs.NewReal(), nil)
	persist := store.PersistFunc(func(data []byte) error { return replacer.Replace(path, data) })

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	s, err := store.Load(store.Components, data, persist, store.WithClock(fixedClock))
	require.NoError(t, err)

	id, err := s.Insert(component("Sensor"))
	require.NoError(t, err)

	rows := readComponents(t, path)
	require.Len(t, rows, 1)
	assert.Equal(t, "Sensor", rows[0].Name)
	assert.Equal(t, record.StatusAccepted, rows[0].Status)
	assert.True(t, rows[0].Created.Equal(fixedNow), "created=%v", rows[0].Created)

	require.NoError(t, s.Update(id, record.Component{Name: "Sensor", Description: "new desc", Author: "A"}))

	updated := readComponents(t, path)
	require.Len(t, updated, 1)
	assert.Equal(t, "new desc", updated[0].Description)
	assert.Equal(t, rows[0].ID, updated[0].ID)
	assert.Equal(t, rows[0].Name, updated[0].Name)
	assert.True(t, rows[0].Created.Equal(updated[0].Created))
}

func readComponents(t *testing.T, path string) []record.Component {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	rows, err := table.Decode(record.ComponentSchema, data)
	require.NoError(t, err)

	return rows
}
