// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ingest

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/lticast/internal/mediapackage"
	"github.com/ManuGH/lticast/internal/security"
	"github.com/ManuGH/lticast/internal/workflow"
	"github.com/ManuGH/lticast/internal/workspace"
)

type recordingStarter struct {
	params map[string]string
	org    string
	err    error
}

func (r *recordingStarter) Start(_ context.Context, mpID, org, creator string, params map[string]string) (workflow.Instance, error) {
	if r.err != nil {
		return workflow.Instance{}, r.err
	}
	r.params = params
	r.org = org
	return workflow.Instance{ID: "wf-1", MediaPackageID: mpID, Creator: creator, DefinitionID: params[workflow.DefinitionParameter], State: workflow.StateInstantiated}, nil
}

type recordingIndexer struct {
	indexed []string
}

func (r *recordingIndexer) IndexPackage(_ context.Context, mp *mediapackage.MediaPackage, _ workflow.Instance) error {
	r.indexed = append(r.indexed, mp.ID)
	return nil
}

func newTestService(t *testing.T) (*Service, *PackageStore, *recordingStarter, *recordingIndexer) {
	t.Helper()
	store, err := OpenPackageStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)

	starter := &recordingStarter{}
	indexer := &recordingIndexer{}
	return NewService(store, ws, starter, indexer), store, starter, indexer
}

func TestService_CreateAddTrackIngest(t *testing.T) {
	svc, store, starter, indexer := newTestService(t)
	ctx := security.WithUser(context.Background(), security.User{Username: "alice", Organization: "uni"})

	mp, err := svc.CreateMediaPackage(ctx)
	require.NoError(t, err)

	updated, err := svc.AddTrack(ctx, strings.NewReader("video-bytes"), "lecture.mp4", mediapackage.FlavorPresenterSource, mp)
	require.NoError(t, err)
	assert.Empty(t, mp.Tracks(), "caller's package must stay untouched")

	tracks := updated.Tracks()
	require.Len(t, tracks, 1)
	assert.Equal(t, "video/mp4", tracks[0].MimeType)
	assert.Equal(t, int64(len("video-bytes")), tracks[0].Size)

	stored, err := store.Get(ctx, mp.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Tracks(), 1)

	inst, err := svc.Ingest(ctx, updated, map[string]string{workflow.DefinitionParameter: "fast"})
	require.NoError(t, err)
	assert.Equal(t, "fast", inst.DefinitionID)
	assert.Equal(t, "uni", starter.org)
	assert.Equal(t, []string{mp.ID}, indexer.indexed)
}

func TestService_IngestRequiresUser(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	mp, err := svc.CreateMediaPackage(context.Background())
	require.NoError(t, err)

	_, err = svc.Ingest(context.Background(), mp, map[string]string{workflow.DefinitionParameter: "fast"})
	require.ErrorIs(t, err, security.ErrNotAuthorized)
}

func TestService_IngestPropagatesWorkflowFailure(t *testing.T) {
	svc, _, starter, indexer := newTestService(t)
	starter.err = errors.New("engine offline")
	ctx := security.WithUser(context.Background(), security.User{Username: "alice", Organization: "uni"})

	mp, err := svc.CreateMediaPackage(ctx)
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, mp, map[string]string{workflow.DefinitionParameter: "fast"})
	require.ErrorContains(t, err, "engine offline")
	assert.Empty(t, indexer.indexed)
}

func TestTrackFilename(t *testing.T) {
	for in, want := range map[string]string{
		"lecture.mp4":        "lecture.mp4",
		`C:\Users\bob\a.mp4`: "a.mp4",
		"/home/bob/a.mp4":    "a.mp4",
		`mixed/dir\b.webm`:   "b.webm",
		"":                   "track",
		"..":                 "track",
		`C:\Users\`:          "track",
		"  talk.mov ":        "talk.mov",
	} {
		assert.Equal(t, want, trackFilename(in), in)
	}
}

func TestService_AddTrackWindowsPath(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	mp, err := svc.CreateMediaPackage(context.Background())
	require.NoError(t, err)

	updated, err := svc.AddTrack(context.Background(), strings.NewReader("v"), `C:\fakepath\lecture.mp4`, mediapackage.FlavorPresenterSource, mp)
	require.NoError(t, err)
	tracks := updated.Tracks()
	require.Len(t, tracks, 1)
	assert.Equal(t, "lecture.mp4", tracks[0].Filename)
	assert.Equal(t, "video/mp4", tracks[0].MimeType)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestService_AddTrackStorageFailure(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	mp, err := svc.CreateMediaPackage(context.Background())
	require.NoError(t, err)

	_, err = svc.AddTrack(context.Background(), errReader{}, "x.mp4", mediapackage.FlavorPresenterSource, mp)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestPackageStore_UpdateAndDelete(t *testing.T) {
	_, store, _, _ := newTestService(t)
	ctx := context.Background()

	mp := mediapackage.New(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, store.Put(ctx, mp))

	updated, err := store.Update(ctx, mp.ID, func(p *mediapackage.MediaPackage) error {
		p.Add(mediapackage.NewElement(mediapackage.KindCatalog, mediapackage.FlavorEpisodeCatalog))
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, updated.Catalogs(), 1)

	ids, err := store.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{mp.ID}, ids)

	require.NoError(t, store.Delete(ctx, mp.ID))
	_, err = store.Get(ctx, mp.ID)
	require.ErrorIs(t, err, ErrPackageNotFound)
	_, err = store.Update(ctx, mp.ID, func(*mediapackage.MediaPackage) error { return nil })
	require.ErrorIs(t, err, ErrPackageNotFound)
}
