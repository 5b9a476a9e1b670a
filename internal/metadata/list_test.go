// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metadata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_AddReplacesInPlace(t *testing.T) {
	l := NewList()
	l.Add("dublincore/episode", "Episode", episode())
	l.Add("ext/custom", "Custom", NewCollection(NewField("room", TypeString)))
	l.Add("dublincore/episode", "Episode", episode().Remove("license"))

	assert.Equal(t, []string{"dublincore/episode", "ext/custom"}, l.Flavors())
	c, ok := l.Collection("dublincore/episode")
	require.True(t, ok)
	assert.False(t, c.Has("license"))
}

func TestList_FromJSONFlatAndCatalogForms(t *testing.T) {
	l := NewList()
	l.Add("dublincore/episode", "Episode", episode())
	l.Add("ext/custom", "Custom", NewCollection(NewField("room", TypeString), NewField("title", TypeString)))

	require.NoError(t, l.FromJSON([]byte(`{"title":"Flat","unknown":true}`)))
	ep, _ := l.Collection("dublincore/episode")
	ext, _ := l.Collection("ext/custom")
	assert.Equal(t, "Flat", ep.Values()["title"])
	assert.Equal(t, "Flat", ext.Values()["title"])

	require.NoError(t, l.FromJSON([]byte(`[{"flavor":"ext/custom","fields":[{"id":"room","value":"HS1"}]},{"flavor":"nope/nope","fields":[{"id":"x","value":"y"}]}]`)))
	ep, _ = l.Collection("dublincore/episode")
	ext, _ = l.Collection("ext/custom")
	assert.Equal(t, "HS1", ext.Values()["room"])
	assert.NotContains(t, ep.Values(), "room")
}

func TestList_FromJSONRejectsMalformed(t *testing.T) {
	l := NewList()
	l.Add("dublincore/episode", "Episode", episode())

	require.ErrorIs(t, l.FromJSON([]byte(`"title"`)), ErrMalformedPayload)
	require.ErrorIs(t, l.FromJSON([]byte(`{"title":`)), ErrMalformedPayload)
}

func TestList_FailedApplyChangesNothing(t *testing.T) {
	l := NewList()
	l.Add("dublincore/episode", "Episode", episode())
	l.Add("ext/custom", "Custom", NewCollection(NewField("room", TypeString)))

	err := l.FromJSON([]byte(`{"room":"HS1","license":"bad"}`))
	require.ErrorIs(t, err, ErrInvalidFieldValue)

	ext, _ := l.Collection("ext/custom")
	assert.Empty(t, ext.Values())
}

func TestList_LockIsMonotonicAndBlocksUpdates(t *testing.T) {
	l := NewList()
	l.Add("dublincore/episode", "Episode", episode())
	assert.Equal(t, Unlocked, l.LockState())

	l.MarkWorkflowRunning()
	l.MarkWorkflowRunning()
	assert.Equal(t, WorkflowRunning, l.LockState())
	require.ErrorIs(t, l.FromJSON([]byte(`{"title":"x"}`)), ErrLocked)

	raw, err := json.Marshal(l)
	require.NoError(t, err)
	var decoded struct {
		Locked   string            `json:"locked"`
		Catalogs []json.RawMessage `json:"catalogs"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "WORKFLOW_RUNNING", decoded.Locked)
	assert.Len(t, decoded.Catalogs, 1)
}
