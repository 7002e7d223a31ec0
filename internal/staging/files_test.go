package staging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/reqtsv/pkg/fs"
)

func Test_CreateDraft_Uses_Prefix_And_Random_Suffix(t *testing.T) {
	t.Parallel()

	s := NewStager(fs.NewReal(), t.TempDir(), nil)

	path, err := s.CreateDraft(Components.DraftPrefix, []byte("x"))
	require.NoError(t, err)

	name := filepath.Base(path)
	suffix, ok := strings.CutPrefix(name, "component_draft-")
	require.True(t, ok, name)

	suffix, ok = strings.CutSuffix(suffix, Ext)
	require.True(t, ok, name)

	if got, want := len(suffix), suffixLen; got != want {
		t.Fatalf("suffix len=%d, want=%d (%s)", got, want, name)
	}

	for _, c := range suffix {
		if !strings.ContainsRune(alphabet, c) {
			t.Fatalf("suffix %q has %q outside the alphabet", suffix, c)
		}
	}
}

func Test_CreateDraft_Retries_When_Name_Collides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewStager(fs.NewReal(), dir, nil)

	calls := 0
	s.intN = func(int) int {
		calls++
		if calls <= suffixLen {
			return 0
		}

		return 1
	}

	taken := filepath.Join(dir, "component_draft-"+strings.Repeat("_", suffixLen)+Ext)
	require.NoError(t, os.WriteFile(taken, []byte("keep"), 0o644))

	path, err := s.CreateDraft(Components.DraftPrefix, []byte("new"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "component_draft-"+strings.Repeat("+", suffixLen)+Ext), path)

	data, err := os.ReadFile(taken)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func Test_CreateDraft_Fails_With_ErrNameExhausted_When_Every_Name_Is_Taken(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewStager(fs.NewReal(), dir, nil)
	s.intN = func(int) int { return 0 }

	taken := filepath.Join(dir, "requirement_draft-"+strings.Repeat("_", suffixLen)+Ext)
	require.NoError(t, os.WriteFile(taken, nil, 0o644))

	_, err := s.CreateDraft(Requirements.DraftPrefix, []byte("x"))
	if !errors.Is(err, ErrNameExhausted) {
		t.Fatalf("err=%v, want ErrNameExhausted", err)
	}
}

func Test_WriteEdit_Replaces_Existing_Document(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewStager(fs.NewReal(), dir, nil)

	_, err := s.WriteEdit(Requirements, 4, []byte("first"))
	require.NoError(t, err)

	path, err := s.WriteEdit(Requirements, 4, []byte("second"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "requirement_edit-4.toml"), path)

	data, err := s.Read("requirement_edit-4.toml")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func Test_List_Returns_Only_Matching_Documents_Sorted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{
		"component_edit-2.toml",
		"component_edit-10.toml",
		"component_draft-abc.toml",
		"component_edit-3.txt",
		"requirement_edit-1.toml",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	require.NoError(t, os.Mkdir(filepath.Join(dir, "component_edit-9.toml"), 0o755))

	s := NewStager(fs.NewReal(), dir, nil)

	got, err := s.List(Components.EditPrefix)
	require.NoError(t, err)

	want := []string{
		filepath.Join(dir, "component_edit-10.toml"),
		filepath.Join(dir, "component_edit-2.toml"),
	}
	assert.Equal(t, want, got)
}

func Test_Archive_Moves_Document_Out_Of_Pending(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewStager(fs.NewReal(), dir, nil)

	path, err := s.CreateDraft(Components.DraftPrefix, []byte("doc"))
	require.NoError(t, err)

	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	dst, err := s.Archive(path, ".reqtsv/archive", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".reqtsv/archive", "20250304T050607Z-"+filepath.Base(path)), dst)

	pending, err := s.List(Components.DraftPrefix)
	require.NoError(t, err)
	assert.Empty(t, pending)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "doc", string(data))
}

func Test_EditID_Parses_Id_When_Name_Matches(t *testing.T) {
	t.Parallel()

	id, err := EditID("/some/dir/requirement_edit-42.toml", Requirements.EditPrefix)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	for _, bad := range []string{"requirement_edit-x.toml", "component_edit-1.toml", "requirement_edit-1.txt"} {
		_, err := EditID(bad, Requirements.EditPrefix)
		if !errors.Is(err, ErrNotEditDocument) {
			t.Errorf("EditID(%q) err=%v, want ErrNotEditDocument", bad, err)
		}
	}
}
