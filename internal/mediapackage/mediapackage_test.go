// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package mediapackage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlavor(t *testing.T) {
	f, err := ParseFlavor("vtt+en/captions")
	require.NoError(t, err)
	assert.Equal(t, FlavorCaptionsVTTEn, f)

	for _, bad := range []string{"", "presenter", "/source", "a/b/c"} {
		_, err := ParseFlavor(bad)
		assert.Error(t, err, bad)
	}
}

func TestMediaPackage_AddReplacesAndFilters(t *testing.T) {
	mp := New(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	track := NewElement(KindTrack, FlavorPresenterSource)
	captions := NewElement(KindAttachment, FlavorCaptionsVTTEn)
	captions.Tags = []string{"lang:en"}

	mp.Add(track)
	mp.Add(captions)
	captions.URI = "file:///ws/captions.vtt"
	mp.Add(captions)

	require.Len(t, mp.Elements, 2)
	assert.Len(t, mp.Tracks(), 1)
	got := mp.Attachments()
	require.Len(t, got, 1)
	assert.Equal(t, "file:///ws/captions.vtt", got[0].URI)
	assert.True(t, got[0].HasTag("lang:en"))

	_, ok := mp.Catalog(FlavorEpisodeCatalog)
	assert.False(t, ok)

	mp.Remove(track.ID)
	assert.Empty(t, mp.Tracks())
}

func TestMediaPackage_CloneIsDeep(t *testing.T) {
	mp := New(time.Now())
	cat := NewElement(KindCatalog, FlavorEpisodeCatalog)
	cat.Fields = map[string]any{"title": "A"}
	cat.Tags = []string{"archive"}
	mp.Add(cat)

	clone := mp.Clone()
	clone.Elements[0].Fields["title"] = "B"
	clone.Elements[0].Tags[0] = "engage"

	assert.Equal(t, "A", mp.Elements[0].Fields["title"])
	assert.Equal(t, "archive", mp.Elements[0].Tags[0])
}

func TestMediaPackage_JSONRoundTripKeepsFlavors(t *testing.T) {
	mp := New(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	mp.Add(NewElement(KindTrack, FlavorPresenterSource))

	raw, err := json.Marshal(mp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"flavor":"presenter/source"`)

	var decoded MediaPackage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	if diff := cmp.Diff(mp, &decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
