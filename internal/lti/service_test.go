// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lti

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/lticast/internal/catalog"
	"github.com/ManuGH/lticast/internal/index"
	"github.com/ManuGH/lticast/internal/ingest"
	"github.com/ManuGH/lticast/internal/mediapackage"
	"github.com/ManuGH/lticast/internal/metadata"
	"github.com/ManuGH/lticast/internal/security"
	"github.com/ManuGH/lticast/internal/series"
	"github.com/ManuGH/lticast/internal/workflow"
	"github.com/ManuGH/lticast/internal/workspace"
)

const org = "uni"

var alice = security.User{Username: "alice", Name: "Alice Doe", Organization: org}

type fixture struct {
	svc       *Service
	ingest    *ingest.Service
	packages  *ingest.PackageStore
	workspace *workspace.Workspace
	workflows *workflow.Service
	series    *series.Store
	events    *index.Store
	index     *index.Service
	adapters  *catalog.Registry
}

func testSettings() *Settings {
	return &Settings{
		Workflow:              "fast",
		WorkflowConfiguration: map[string]string{"publish": "true"},
		RetractWorkflowID:     "retract",
	}
}

func newFixture(t *testing.T, tweak ...func(*Options)) *fixture {
	t.Helper()
	dir := t.TempDir()

	events, err := index.OpenStore(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = events.Close() })

	packages, err := ingest.OpenPackageStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = packages.Close() })

	wfStore, err := workflow.OpenStore(filepath.Join(dir, "workflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = wfStore.Close() })
	workflows := workflow.NewService(wfStore)

	seriesStore, err := series.OpenStore(filepath.Join(dir, "series.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = seriesStore.Close() })

	ws, err := workspace.New(filepath.Join(dir, "workspace"))
	require.NoError(t, err)

	adapters, err := catalog.DefaultRegistry(catalog.Definition{
		Flavor: "ext/lti",
		Title:  "LTI",
		Fields: []catalog.FieldSpec{{ID: "course", Type: metadata.TypeString}},
	})
	require.NoError(t, err)

	idx := index.NewService(index.Options{
		Store:        events,
		Packages:     packages,
		Workflows:    workflows,
		Adapters:     adapters,
		Series:       seriesStore,
		Blobs:        ws,
		PollInterval: 5 * time.Millisecond,
	})
	workflows.Subscribe(idx.OnWorkflowTransition)
	ing := ingest.NewService(packages, ws, workflows, idx)

	opts := Options{
		Ingest:    ing,
		Workspace: ws,
		Series:    series.NewResolver(seriesStore),
		Index:     idx,
		Adapters:  adapters,
		Settings:  testSettings(),
	}
	for _, fn := range tweak {
		fn(&opts)
	}

	return &fixture{
		svc:       NewService(opts),
		ingest:    ing,
		packages:  packages,
		workspace: ws,
		workflows: workflows,
		series:    seriesStore,
		events:    events,
		index:     idx,
		adapters:  adapters,
	}
}

func userContext(u security.User) context.Context {
	return security.WithUser(context.Background(), u)
}

func upload(seriesID, seriesName string, meta metadata.Payload) Upload {
	return Upload{
		Media:      strings.NewReader("video-bytes"),
		SourceName: "lecture.mp4",
		SeriesID:   seriesID,
		SeriesName: seriesName,
		Metadata:   meta,
	}
}

func episodeValues(t *testing.T, f *fixture, id string) map[string]any {
	t.Helper()
	mp, err := f.packages.Get(context.Background(), id)
	require.NoError(t, err)
	el, ok := mp.Catalog(mediapackage.MustParseFlavor(catalog.EpisodeFlavor))
	require.True(t, ok, "episode catalog missing")
	return el.Fields
}

// finish drives the event's workflow to success, which unlocks it.
func (f *fixture) finish(t *testing.T, eventID string) {
	t.Helper()
	ctx := context.Background()
	inst, err := f.workflows.Latest(ctx, eventID)
	require.NoError(t, err)
	_, err = f.workflows.Transition(ctx, inst.ID, workflow.StateRunning)
	require.NoError(t, err)
	_, err = f.workflows.Transition(ctx, inst.ID, workflow.StateSucceeded)
	require.NoError(t, err)
}

func TestUpdated(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Settings = nil })

	err := f.svc.Updated(map[string]string{"workflow": "fast"})
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.Nil(t, f.svc.Settings())

	_, err = f.svc.UploadEvent(userContext(alice), upload("s-1", "", metadata.Payload{}))
	require.ErrorIs(t, err, ErrNotConfigured)
	ids, err := f.packages.IDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids, "nothing may be created without configuration")

	require.NoError(t, f.svc.Updated(map[string]string{
		"workflow":               "fast",
		"workflow-configuration": `{"publish": true, "quality": 720, "note": "x"}`,
	}))
	got := f.svc.Settings()
	require.NotNil(t, got)
	assert.Equal(t, "fast", got.Workflow)
	assert.Equal(t, DefaultRetractWorkflowID, got.RetractWorkflowID)
	assert.Equal(t, map[string]string{"publish": "true", "quality": "720", "note": "x"}, got.WorkflowConfiguration)

	for name, props := range map[string]map[string]string{
		"blank workflow": {"workflow": " ", "workflow-configuration": "{}"},
		"not json":       {"workflow": "fast", "workflow-configuration": "publish=true"},
		"json array":     {"workflow": "fast", "workflow-configuration": "[]"},
		"nested value":   {"workflow": "fast", "workflow-configuration": `{"a": {"b": 1}}`},
	} {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, f.svc.Updated(props), ErrNotConfigured)
			assert.Equal(t, "fast", f.svc.Settings().Workflow, "previous settings stay in effect")
		})
	}
}

func TestUploadEvent_ResolvesSeriesByName(t *testing.T) {
	f := newFixture(t)
	ctx := userContext(alice)
	_, err := f.series.CreateWithIdentifiers(ctx, org, "Physics 101", "series-42")
	require.NoError(t, err)

	id, err := f.svc.UploadEvent(ctx, upload("", "Physics 101", metadata.Payload{Flat: map[string]any{"title": "Lecture 1"}}))
	require.NoError(t, err)

	values := episodeValues(t, f, id)
	assert.Equal(t, "series-42", values["isPartOf"])
	assert.Equal(t, "Lecture 1", values["title"])

	mp, err := f.packages.Get(ctx, id)
	require.NoError(t, err)
	tracks := mp.Tracks()
	require.Len(t, tracks, 1)
	assert.Equal(t, mediapackage.FlavorPresenterSource, tracks[0].Flavor)
	assert.Equal(t, "video/mp4", tracks[0].MimeType)

	inst, err := f.workflows.Latest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "fast", inst.DefinitionID)
	assert.Equal(t, map[string]string{"publish": "true", workflow.DefinitionParameter: "fast"}, inst.Parameters)
	assert.Equal(t, "alice", inst.Creator)

	ev, err := f.index.GetEvent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Physics 101", ev.SeriesName)
}

func TestUploadEvent_SeriesIDOverridesPayload(t *testing.T) {
	f := newFixture(t)
	ctx := userContext(alice)

	payload, err := metadata.ParsePayload([]byte(`{"title": "Lecture", "isPartOf": "caller-choice", "unknown": 1}`))
	require.NoError(t, err)
	id, err := f.svc.UploadEvent(ctx, upload("series-7", "ignored", payload))
	require.NoError(t, err)

	values := episodeValues(t, f, id)
	assert.Equal(t, "series-7", values["isPartOf"])
	assert.NotContains(t, values, "unknown")
}

func TestUploadEvent_AttachesCaptions(t *testing.T) {
	f := newFixture(t)
	ctx := userContext(alice)

	u := upload("s-1", "", metadata.Payload{})
	u.Captions = "Hello"
	id, err := f.svc.UploadEvent(ctx, u)
	require.NoError(t, err)

	mp, err := f.packages.Get(ctx, id)
	require.NoError(t, err)
	attachments := mp.Attachments()
	require.Len(t, attachments, 1)
	captions := attachments[0]
	assert.Equal(t, mediapackage.FlavorCaptionsVTTEn, captions.Flavor)
	assert.Equal(t, "text/vtt", captions.MimeType)
	assert.True(t, captions.HasTag("lang:en"))

	r, err := f.workspace.Open(captions.URI)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(data))
}

func TestUploadEvent_SeriesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := userContext(alice)
	_, err := f.series.Create(ctx, org, "Twice")
	require.NoError(t, err)
	_, err = f.series.Create(ctx, org, "Twice")
	require.NoError(t, err)
	_, err = f.series.CreateWithIdentifiers(ctx, org, "Broken")
	require.NoError(t, err)

	cases := map[string]struct {
		name string
		want error
	}{
		"missing":   {"Chemistry", series.ErrSeriesNotFound},
		"ambiguous": {"Twice", series.ErrAmbiguousSeries},
		"malformed": {"Broken", series.ErrMalformedSeriesRecord},
		"blank":     {"  ", series.ErrSeriesNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.UploadEvent(ctx, upload("", tc.name, metadata.Payload{}))
			require.ErrorIs(t, err, ErrUploadFailed)
			require.ErrorIs(t, err, tc.want)

			var uerr *UploadError
			require.ErrorAs(t, err, &uerr)
			assert.Equal(t, StepResolveSeries, uerr.Step)
			assert.NotEmpty(t, uerr.MediaPackageID)
		})
	}
}

func TestUploadEvent_InvalidMetadataHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := userContext(alice)

	payload := metadata.Payload{Flat: map[string]any{"startDate": "yesterday"}}
	_, err := f.svc.UploadEvent(ctx, upload("s-1", "", payload))
	require.ErrorIs(t, err, metadata.ErrInvalidFieldValue)
	assert.NotErrorIs(t, err, ErrUploadFailed)

	ids, err := f.packages.IDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestUploadEvent_RequiresUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UploadEvent(context.Background(), upload("s-1", "", metadata.Payload{}))
	require.ErrorIs(t, err, security.ErrNotAuthorized)
}

func TestUploadEvent_RequiresMedia(t *testing.T) {
	f := newFixture(t)
	u := upload("s-1", "", metadata.Payload{})
	u.Media = nil

	var err error
	require.NotPanics(t, func() { _, err = f.svc.UploadEvent(userContext(alice), u) })
	require.ErrorIs(t, err, ErrMissingMedia)
	assert.NotErrorIs(t, err, ErrUploadFailed)

	ids, err := f.packages.IDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids, "rejected before any package is created")
}

type nilIngester struct{ Ingester }

func (nilIngester) CreateMediaPackage(context.Context) (*mediapackage.MediaPackage, error) {
	return nil, nil
}

type brokenWorkspace struct{}

func (brokenWorkspace) Put(context.Context, string, string, string, io.Reader) (string, int64, error) {
	return "", 0, errors.New("disk full")
}

func TestUploadEvent_CollaboratorFailures(t *testing.T) {
	t.Run("no package", func(t *testing.T) {
		f := newFixture(t, func(o *Options) { o.Ingest = nilIngester{o.Ingest} })
		_, err := f.svc.UploadEvent(userContext(alice), upload("s-1", "", metadata.Payload{}))
		require.ErrorIs(t, err, ErrUploadFailed)
		require.ErrorIs(t, err, ErrPackageCreation)
	})

	t.Run("captions", func(t *testing.T) {
		f := newFixture(t, func(o *Options) { o.Workspace = brokenWorkspace{} })
		u := upload("s-1", "", metadata.Payload{})
		u.Captions = "WEBVTT"
		_, err := f.svc.UploadEvent(userContext(alice), u)
		require.ErrorIs(t, err, ErrUploadFailed)
		require.ErrorIs(t, err, ErrCaptionAttach)

		var uerr *UploadError
		require.ErrorAs(t, err, &uerr)
		assert.Equal(t, StepAttachCaptions, uerr.Step)

		ids, err := f.packages.IDs(context.Background())
		require.NoError(t, err)
		require.Len(t, ids, 1)
		_, err = f.index.GetEvent(context.Background(), ids[0])
		assert.ErrorIs(t, err, index.ErrEventNotFound, "nothing is submitted after a failed step")
	})
}

func TestGetEventMetadata_LockFollowsWorkflow(t *testing.T) {
	f := newFixture(t)
	ctx := userContext(alice)
	id, err := f.svc.UploadEvent(ctx, upload("s-1", "", metadata.Payload{Flat: map[string]any{"title": "Lecture"}}))
	require.NoError(t, err)

	list, err := f.svc.GetEventMetadata(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, metadata.WorkflowRunning, list.LockState())
	assert.Equal(t, []string{"ext/lti", catalog.EpisodeFlavor}, list.Flavors(), "common catalog comes last")

	common, ok := list.Collection(catalog.EpisodeFlavor)
	require.True(t, ok)
	ident, ok := common.Field("identifier")
	require.True(t, ok)
	v, _ := ident.Value()
	assert.Equal(t, id, v)
	title, _ := common.Field("title")
	v, _ = title.Value()
	assert.Equal(t, "Lecture", v)

	f.finish(t, id)
	list, err = f.svc.GetEventMetadata(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, metadata.Unlocked, list.LockState())
}

func TestGetEventMetadata_Access(t *testing.T) {
	f := newFixture(t)
	id, err := f.svc.UploadEvent(userContext(alice), upload("s-1", "", metadata.Payload{}))
	require.NoError(t, err)

	_, err = f.svc.GetEventMetadata(userContext(alice), "missing")
	require.ErrorIs(t, err, ErrEventNotFound)

	mallory := security.User{Username: "mallory", Organization: "other"}
	_, err = f.svc.GetEventMetadata(userContext(mallory), id)
	require.ErrorIs(t, err, security.ErrNotAuthorized)
}

func TestUpdateEventMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := userContext(alice)
	id, err := f.svc.UploadEvent(ctx, upload("s-1", "", metadata.Payload{Flat: map[string]any{"title": "Draft", "description": "keep"}}))
	require.NoError(t, err)

	update := metadata.Payload{Flat: map[string]any{"title": "Final", "futureField": true}}
	err = f.svc.UpdateEventMetadata(ctx, id, update)
	require.ErrorIs(t, err, index.ErrEventLocked)

	f.finish(t, id)
	require.NoError(t, f.svc.UpdateEventMetadata(ctx, id, update))

	values := episodeValues(t, f, id)
	assert.Equal(t, "Final", values["title"])
	assert.Equal(t, "keep", values["description"], "untouched fields survive")
	assert.Equal(t, "s-1", values["isPartOf"])

	ev, err := f.index.GetEvent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Final", ev.Title)

	err = f.svc.UpdateEventMetadata(ctx, id, metadata.Payload{Flat: map[string]any{"license": "MIT"}})
	require.ErrorIs(t, err, metadata.ErrInvalidFieldValue)
}

func TestUpsertEvent(t *testing.T) {
	f := newFixture(t)
	ctx := userContext(alice)
	id, err := f.svc.UpsertEvent(ctx, "", upload("s-1", "", metadata.Payload{Flat: map[string]any{"title": "One"}}))
	require.NoError(t, err)
	f.finish(t, id)

	got, err := f.svc.UpsertEvent(ctx, " "+id+" ", Upload{Metadata: metadata.Payload{Flat: map[string]any{"title": "Two"}}})
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, "Two", episodeValues(t, f, id)["title"])

	ids, err := f.packages.IDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1, "an update does not create a package")
}

func TestSetEventMetadataJSON(t *testing.T) {
	f := newFixture(t)
	ctx := userContext(alice)
	id, err := f.svc.UploadEvent(ctx, upload("s-1", "", metadata.Payload{}))
	require.NoError(t, err)
	f.finish(t, id)

	doc := `[
		{"flavor": "dublincore/episode", "fields": [{"id": "title", "value": "From JSON"}]},
		{"flavor": "ext/lti", "fields": [{"id": "course", "value": "PHY-101"}]},
		{"flavor": "nobody/claims", "fields": [{"id": "x", "value": 1}]}
	]`
	require.NoError(t, f.svc.SetEventMetadataJSON(ctx, id, []byte(doc)))

	list, err := f.svc.GetEventMetadata(ctx, id)
	require.NoError(t, err)
	ext, ok := list.Collection("ext/lti")
	require.True(t, ok)
	course, _ := ext.Field("course")
	v, _ := course.Value()
	assert.Equal(t, "PHY-101", v)
	assert.Equal(t, "From JSON", episodeValues(t, f, id)["title"])

	err = f.svc.SetEventMetadataJSON(ctx, id, []byte(`"title"`))
	require.ErrorIs(t, err, metadata.ErrMalformedPayload)
}

func TestGetNewEventMetadata(t *testing.T) {
	f := newFixture(t)
	list, err := f.svc.GetNewEventMetadata(userContext(alice))
	require.NoError(t, err)
	assert.Equal(t, metadata.Unlocked, list.LockState())

	common, ok := list.Collection(catalog.EpisodeFlavor)
	require.True(t, ok)
	for _, id := range catalog.ComputedFields {
		assert.False(t, common.Has(id), id)
	}
	assert.True(t, common.Has("title"))

	publisher, ok := common.Field("publisher")
	require.True(t, ok)
	v, ok := publisher.Value()
	require.True(t, ok)
	assert.Equal(t, "Alice Doe", v)
	assert.Contains(t, publisher.Collection(), "Alice Doe")

	_, ok = list.Collection("ext/lti")
	assert.True(t, ok)
}

type removalResult struct {
	EventIndex
	result index.RemovalResult
}

func (r removalResult) RemoveEvent(context.Context, index.Event, func(), string) index.RemovalResult {
	return r.result
}

func TestDeleteEvent(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		f := newFixture(t)
		require.ErrorIs(t, f.svc.DeleteEvent(userContext(alice), "nope"), ErrEventNotFound)
	})

	t.Run("general failure", func(t *testing.T) {
		f := newFixture(t, func(o *Options) {
			o.Index = removalResult{EventIndex: o.Index, result: index.RemovalGeneralFailure}
		})
		id, err := f.svc.UploadEvent(userContext(alice), upload("s-1", "", metadata.Payload{}))
		require.NoError(t, err)
		require.ErrorIs(t, f.svc.DeleteEvent(userContext(alice), id), ErrDeletionFailed)
	})

	t.Run("unpublished", func(t *testing.T) {
		f := newFixture(t)
		ctx := userContext(alice)
		u := upload("s-1", "", metadata.Payload{})
		u.Captions = "WEBVTT"
		id, err := f.svc.UploadEvent(ctx, u)
		require.NoError(t, err)

		require.NoError(t, f.svc.DeleteEvent(ctx, id))
		_, err = f.index.GetEvent(ctx, id)
		assert.ErrorIs(t, err, index.ErrEventNotFound)
		_, err = f.packages.Get(ctx, id)
		assert.ErrorIs(t, err, ingest.ErrPackageNotFound)
	})

	t.Run("published is retracted first", func(t *testing.T) {
		f := newFixture(t, func(o *Options) {
			s := testSettings()
			s.RetractWorkflowID = "unpublish"
			o.Settings = s
		})
		ctx := userContext(alice)
		id, err := f.svc.UploadEvent(ctx, upload("s-1", "", metadata.Payload{}))
		require.NoError(t, err)
		f.finish(t, id)

		var (
			wg        sync.WaitGroup
			retracted atomic.Bool
		)
		f.workflows.Subscribe(func(_ context.Context, inst workflow.Instance) {
			if inst.DefinitionID != "unpublish" || inst.State != workflow.StateInstantiated {
				return
			}
			retracted.Store(true)
			wg.Add(1)
			go func() {
				defer wg.Done()
				bg := context.Background()
				_, _ = f.workflows.Transition(bg, inst.ID, workflow.StateRunning)
				_, _ = f.workflows.Transition(bg, inst.ID, workflow.StateSucceeded)
			}()
		})

		require.NoError(t, f.svc.DeleteEvent(ctx, id))
		wg.Wait()
		assert.True(t, retracted.Load(), "retraction workflow started")
		_, err = f.index.GetEvent(ctx, id)
		assert.ErrorIs(t, err, index.ErrEventNotFound)
	})
}

func TestListJobs(t *testing.T) {
	now := time.Now()
	f := newFixture(t, func(o *Options) { o.Now = func() time.Time { return now } })
	ctx := userContext(alice)

	today, err := f.svc.UploadEvent(ctx, upload("s-1", "", metadata.Payload{Flat: map[string]any{"title": "Today"}}))
	require.NoError(t, err)
	_, err = f.svc.UploadEvent(ctx, upload("s-2", "", metadata.Payload{Flat: map[string]any{"title": "Other series"}}))
	require.NoError(t, err)
	bob := security.User{Username: "bob", Organization: org}
	_, err = f.svc.UploadEvent(userContext(bob), upload("s-1", "", metadata.Payload{Flat: map[string]any{"title": "Bob's"}}))
	require.NoError(t, err)

	midnight := startOfDay(now)
	for title, created := range map[string]time.Time{
		"Yesterday": midnight.Add(-time.Hour),
		"Midnight":  midnight,
	} {
		require.NoError(t, f.events.Upsert(ctx, index.Event{
			ID: title, Organization: org, MediaPackageID: title, Title: title,
			SeriesID: "s-1", Creator: "alice", Created: created,
		}))
	}

	jobs, err := f.svc.ListJobs(ctx, "", " s-1 ")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, Job{Title: "Today", Status: index.StatusPending}, jobs[0])

	f.finish(t, today)
	jobs, err = f.svc.ListJobs(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	statuses := map[string]string{}
	for _, j := range jobs {
		statuses[j.Title] = j.Status
	}
	assert.Equal(t, map[string]string{"Today": index.StatusProcessed, "Other series": index.StatusPending}, statuses)

	_, err = f.svc.ListJobs(context.Background(), "", "")
	require.ErrorIs(t, err, security.ErrNotAuthorized)
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	got := startOfDay(time.Date(2025, 3, 4, 1, 30, 0, 0, loc))
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, loc), got)
}
