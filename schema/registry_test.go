package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectNamesUniquePerVersion(t *testing.T) {
	r := NewRegistry()
	for _, version := range []int{22, 33, CurrentModelVersion} {
		seen := map[string]bool{}
		for _, obj := range r.Objects(version) {
			key := obj.kind + ":" + obj.name
			assert.Falsef(t, seen[key], "duplicate schema object %s at version %d", key, version)
			seen[key] = true
		}
	}
}

func TestAlbumTrackTableOnlyBeforeDenormalization(t *testing.T) {
	r := NewRegistry()

	names := func(version int) map[string]string {
		out := map[string]string{}
		for _, obj := range r.Objects(version) {
			out[obj.kind+":"+obj.name] = obj.sql
		}
		return out
	}

	legacy := names(33)
	current := names(CurrentModelVersion)

	assert.Contains(t, legacy, "table:album_track")
	assert.Contains(t, legacy, "index:album_track_album_idx")
	assert.NotContains(t, current, "table:album_track")
	assert.NotContains(t, current, "index:album_track_album_idx")

	// The v34 denormalization moves the track columns onto media.
	assert.Contains(t, current["table:media"], "album_id")
	assert.Contains(t, current["table:media"], "track_number")
	assert.NotContains(t, legacy["table:media"], "track_number")
}

func TestTriggerTextIsVersionSensitive(t *testing.T) {
	r := NewRegistry()
	find := func(version int, name string) string {
		for _, obj := range r.Objects(version) {
			if obj.kind == "trigger" && obj.name == name {
				return obj.sql
			}
		}
		t.Fatalf("trigger %s absent at version %d", name, version)
		return ""
	}

	// Before v34 the counter triggers fire on album_track; from v34 on
	// they fire on media with a subtype guard.
	legacy := find(33, "track_insert_counters")
	assert.Contains(t, legacy, "ON album_track")
	assert.NotContains(t, legacy, "new.subtype")

	current := find(CurrentModelVersion, "track_insert_counters")
	assert.Contains(t, current, "ON media")
	assert.Contains(t, current, "new.subtype = 1")
}

func TestEveryFTSMirrorHasAllThreeTriggers(t *testing.T) {
	r := NewRegistry()
	objs := r.Objects(CurrentModelVersion)
	triggerNames := map[string]bool{}
	var ftsTableNames []string
	for _, obj := range objs {
		if obj.kind == "trigger" {
			triggerNames[obj.name] = true
		}
		if obj.kind == "table" && strings.HasSuffix(obj.name, "_fts") {
			ftsTableNames = append(ftsTableNames, obj.name)
		}
	}
	require.NotEmpty(t, ftsTableNames)
	for _, fts := range ftsTableNames {
		base := strings.TrimSuffix(fts, "_fts")
		for _, op := range []string{"insert", "update", "delete"} {
			assert.Truef(t, triggerNames[base+"_fts_"+op], "missing %s mirror trigger for %s", op, base)
		}
	}
}

func TestTablesPrecedeTriggersAndIndexes(t *testing.T) {
	r := NewRegistry()
	firstNonTable := -1
	for i, obj := range r.Objects(CurrentModelVersion) {
		if obj.kind != "table" && firstNonTable == -1 {
			firstNonTable = i
		}
		if obj.kind == "table" && firstNonTable != -1 {
			t.Fatalf("table %s declared after non-table objects", obj.name)
		}
		_ = i
	}
}

func TestNormalizeSQL(t *testing.T) {
	a := "CREATE TABLE x(\n\tid INTEGER,\n\tname TEXT\n)"
	b := "CREATE TABLE x( id INTEGER, name TEXT )"
	assert.Equal(t, normalizeSQL(a), normalizeSQL(b))
}
