package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTernary(t *testing.T) {
	assert.Equal(t, "a", Ternary(true, "a", "b").(string))
	assert.Equal(t, "b", Ternary(false, "a", "b").(string))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"strain", "name"}, "name"))
	assert.False(t, Contains([]string{"strain", "name"}, "date"))
}

func TestUnmarshalFile(t *testing.T) {
	type probe struct {
		Name  string `json:"name" validate:"required"`
		Count int    `json:"count"`
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "probe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: zika\ncount: 12\n"), 0o644))

	var got probe
	require.NoError(t, UnmarshalFile(path, &got, true))
	assert.Equal(t, probe{Name: "zika", Count: 12}, got)

	require.NoError(t, os.WriteFile(path, []byte("count: 12\n"), 0o644))
	err := UnmarshalFile(path, &probe{}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is a required field")

	err = UnmarshalFile(filepath.Join(dir, "absent.yaml"), &probe{}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}

func TestErrExecSequentialAccumulates(t *testing.T) {
	calls := 0
	err := ErrExecSequential(
		func() error { calls++; return nil },
		ErrExecFormat("failed to close writer: %s", func() error { calls++; return assert.AnError }),
		func() error { calls++; return assert.AnError },
	)
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "failed to close writer")
}
