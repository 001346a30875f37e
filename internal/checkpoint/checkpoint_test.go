package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	WorkflowID string   `yaml:"workflow_id"`
	Status     string   `yaml:"status"`
	Files      []string `yaml:"files"`
}

func TestSaveAndLoad(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "runs"))
	in := snapshot{WorkflowID: "20250101_120000_abcd1234", Status: "in_progress", Files: []string{"go.mod"}}

	require.NoError(t, s.Save(in.WorkflowID, in))
	assert.NoFileExists(t, s.Path(in.WorkflowID)+".tmp")

	var out snapshot
	found, err := s.Load(in.WorkflowID, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)

	in.Status = "completed"
	require.NoError(t, s.Save(in.WorkflowID, in))
	_, err = s.Load(in.WorkflowID, &out)
	require.NoError(t, err)
	assert.Equal(t, "completed", out.Status)
}

func TestLoadMissing(t *testing.T) {
	var out snapshot
	found, err := New(t.TempDir()).Load("nope", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoadCorrupt(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, os.WriteFile(s.Path("bad"), []byte("workflow_id: [unclosed"), 0o644))

	var out snapshot
	_, err := s.Load("bad", &out)
	assert.ErrorContains(t, err, "parsing checkpoint bad")
}

func TestSaveRejectsEmptyID(t *testing.T) {
	assert.Error(t, New(t.TempDir()).Save("", snapshot{}))
}

func TestList(t *testing.T) {
	s := New(t.TempDir())
	for _, id := range []string{"20250101_120000_aaaaaaaa", "20250102_090000_bbbbbbbb", "20241231_235959_cccccccc"} {
		require.NoError(t, s.Save(id, snapshot{WorkflowID: id}))
	}
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, "notes.txt"), []byte("x"), 0o644))

	ids, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"20250102_090000_bbbbbbbb", "20250101_120000_aaaaaaaa", "20241231_235959_cccccccc"}, ids)

	ids, err = New(filepath.Join(t.TempDir(), "missing")).List()
	require.NoError(t, err)
	assert.Empty(t, ids)
}
