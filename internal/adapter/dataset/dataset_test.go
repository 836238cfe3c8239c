package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"count":0,"results":[]}`), 0o600))

	src := NewFileSource(path)
	data, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":0,"results":[]}`, string(data))
	assert.Equal(t, path, src.Path())
}

func TestFileSource_ReadsLatestContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))
	src := NewFileSource(path)

	_, err := src.Load(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`[{}]`), 0o600))
	data, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `[{}]`, string(data))
}

func TestFileSource_Missing(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent.json"))
	_, err := src.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileSource("unused").Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStaticSource(t *testing.T) {
	data, err := StaticSource(`[]`).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))
}
