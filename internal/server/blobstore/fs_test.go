package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFS(t *testing.T) *FSStore {
	t.Helper()
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestFSStore_PutOpenRemove(t *testing.T) {
	ctx := context.Background()
	s := newFS(t)

	n, err := s.Put(ctx, "files/2025/3/1/abc", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	rc, err := s.Open(ctx, "files/2025/3/1/abc")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(b))

	require.NoError(t, s.Remove(ctx, "files/2025/3/1/abc"))
	_, err = s.Open(ctx, "files/2025/3/1/abc")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	// removing again is fine
	assert.NoError(t, s.Remove(ctx, "files/2025/3/1/abc"))
}

func TestFSStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newFS(t)

	_, err := s.Put(ctx, "k", strings.NewReader("first"))
	require.NoError(t, err)
	_, err = s.Put(ctx, "k", strings.NewReader("2nd"))
	require.NoError(t, err)

	rc, err := s.Open(ctx, "k")
	require.NoError(t, err)
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "2nd", string(b))
}

func TestFSStore_RemovePrefix(t *testing.T) {
	ctx := context.Background()
	s := newFS(t)

	for i := 0; i < 3; i++ {
		_, err := s.Put(ctx, PartKey("sess", i), strings.NewReader("x"))
		require.NoError(t, err)
	}
	_, err := s.Put(ctx, PartKey("other", 0), strings.NewReader("y"))
	require.NoError(t, err)

	require.NoError(t, s.RemovePrefix(ctx, StagingPrefix("sess")))

	_, err = os.Stat(filepath.Join(s.root, "staging", "sess"))
	assert.True(t, os.IsNotExist(err))

	rc, err := s.Open(ctx, PartKey("other", 0))
	require.NoError(t, err)
	rc.Close()
}

func TestFSStore_PutCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newFS(t)

	_, err := s.Put(ctx, "k", strings.NewReader("data"))
	assert.ErrorIs(t, err, common.ErrStorageIO)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key string
		ok  bool
	}{
		{"files/2025/1/2/x", true},
		{"staging/abc/", true},
		{"", false},
		{"/abs", false},
		{"a/../b", false},
		{"..", false},
		{"a//b", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := validateKey(tt.key)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, common.ErrorInvalidArgument)
			}
		})
	}
}

func TestPartKey(t *testing.T) {
	assert.Equal(t, "staging/s1/", StagingPrefix("s1"))
	assert.Equal(t, "staging/s1/part-7", PartKey("s1", 7))
}
