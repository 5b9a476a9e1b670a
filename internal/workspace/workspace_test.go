// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package workspace

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace_PutAndOpen(t *testing.T) {
	ws, err := New(t.TempDir())
	require.NoError(t, err)

	uri, n, err := ws.Put(context.Background(), "mp-1", "el-1", "captions.vtt", strings.NewReader("Hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.True(t, strings.HasPrefix(uri, "file://"))
	assert.True(t, strings.HasSuffix(uri, "/mp-1/el-1/captions.vtt"))

	rc, err := ws.Open(uri)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(body))
}

func TestWorkspace_RejectsEscapingSegments(t *testing.T) {
	ws, err := New(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "..", "../x", "a/b"} {
		_, _, err := ws.Put(context.Background(), "mp", "el", name, strings.NewReader("x"))
		require.ErrorIs(t, err, ErrInvalidPath, name)
	}

	_, err = ws.Open("file:///etc/passwd")
	require.ErrorIs(t, err, ErrInvalidPath)
	_, err = ws.Open("http://example.org/x")
	require.ErrorIs(t, err, ErrInvalidPath)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestWorkspace_FailedCopyLeavesNoFile(t *testing.T) {
	root := t.TempDir()
	ws, err := New(root)
	require.NoError(t, err)

	_, _, err = ws.Put(context.Background(), "mp", "el", "track.mp4", failingReader{})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(root, "mp", "el", "track.mp4"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestWorkspace_CancelledContext(t *testing.T) {
	ws, err := New(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = ws.Put(ctx, "mp", "el", "track.mp4", strings.NewReader("data"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestWorkspace_DeletePackage(t *testing.T) {
	ws, err := New(t.TempDir())
	require.NoError(t, err)

	uri, _, err := ws.Put(context.Background(), "mp", "el", "a.txt", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, ws.DeletePackage("mp"))

	_, err = ws.Open(uri)
	require.ErrorIs(t, err, ErrNotFound)
}
