// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package workspace stores element bytes (tracks, captions) on local disk,
// laid out as <root>/<mediapackage>/<element>/<filename>.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	xglog "github.com/ManuGH/lticast/internal/log"
)

// ErrInvalidPath is returned for identifiers or filenames that would escape the workspace root.
var ErrInvalidPath = errors.New("invalid workspace path")

// ErrNotFound is returned when a URI does not name a stored file.
var ErrNotFound = errors.New("workspace file not found")

// Workspace is a file-backed element store.
type Workspace struct {
	root string
}

// New creates root if needed.
func New(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Workspace{root: abs}, nil
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`) && filepath.Base(s) == s
}

// Put streams r into the workspace and returns the file URI and byte count.
// The file appears atomically; a failed copy leaves nothing behind.
func (w *Workspace) Put(ctx context.Context, mediaPackageID, elementID, filename string, r io.Reader) (string, int64, error) {
	if !validSegment(mediaPackageID) || !validSegment(elementID) || !validSegment(filename) {
		return "", 0, fmt.Errorf("%w: %q/%q/%q", ErrInvalidPath, mediaPackageID, elementID, filename)
	}
	logger := xglog.FromContext(ctx)

	dir := filepath.Join(w.root, mediaPackageID, elementID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", 0, fmt.Errorf("create element directory: %w", err)
	}
	path := filepath.Join(dir, filename)

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o640))
	if err != nil {
		return "", 0, fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Str(xglog.FieldPath, path).Msg("cleanup pending workspace file")
		}
	}()

	n, err := io.Copy(pending, contextReader{ctx: ctx, r: r})
	if err != nil {
		return "", 0, fmt.Errorf("write %s: %w", filename, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", 0, fmt.Errorf("commit %s: %w", filename, err)
	}

	uri := (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
	logger.Debug().
		Str(xglog.FieldMediaPackage, mediaPackageID).
		Str(xglog.FieldURI, uri).
		Int64("bytes", n).
		Msg("stored workspace file")
	return uri, n, nil
}

// Open returns a reader for a URI produced by Put.
func (w *Workspace) Open(uri string) (io.ReadCloser, error) {
	path, err := w.pathFor(uri)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
	}
	return f, err
}

// DeletePackage removes every file stored for mediaPackageID.
func (w *Workspace) DeletePackage(mediaPackageID string) error {
	if !validSegment(mediaPackageID) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, mediaPackageID)
	}
	return os.RemoveAll(filepath.Join(w.root, mediaPackageID))
}

func (w *Workspace) pathFor(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, uri)
	}
	path := filepath.Clean(filepath.FromSlash(u.Path))
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, uri)
	}
	return path, nil
}

// contextReader stops a long copy when ctx is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
