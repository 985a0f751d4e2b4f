package state

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habhabhabs/aws-inventag/internal/models"
)

func TestRenderChangelogStructure(t *testing.T) {
	created1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	created2 := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)

	before := &models.Snapshot{SnapshotID: "aaaa", CreatedAt: created1}
	after := &models.Snapshot{SnapshotID: "bbbb", CreatedAt: created2}

	delta := &models.Delta{
		SnapshotIDBefore: "aaaa",
		SnapshotIDAfter:  "bbbb",
		Added: []models.Resource{{
			ResourceID: "b-2", Service: "S3", Type: "Bucket",
			Region: "us-east-1", AccountID: "1", Name: "b-2",
		}},
		Removed: []models.Resource{{
			ResourceID: "b-1", Service: "S3", Type: "Bucket",
			Region: "us-east-1", AccountID: "1", Name: "b-1",
		}},
		Modified: []models.ModifiedRecord{{
			Key: "1:EC2:us-east-1:Instance:i-1",
			Changes: []models.FieldChange{
				{Field: "status", Old: "running", New: "stopped"},
				{Field: "tags", Changeset: &models.MapChangeset{
					Added:    map[string]string{"Owner": "x"},
					Removed:  map[string]string{"Temp": "y"},
					Modified: map[string][2]string{"Env": {"dev", "prod"}},
				}},
			},
		}},
		UnchangedCount: 3,
	}

	out := RenderChangelog(delta, before, after)

	// Section order: Added, Removed, Modified.
	addedIdx := strings.Index(out, "## Added")
	removedIdx := strings.Index(out, "## Removed")
	modifiedIdx := strings.Index(out, "## Modified")
	require.Positive(t, addedIdx)
	assert.Less(t, addedIdx, removedIdx)
	assert.Less(t, removedIdx, modifiedIdx)

	assert.Contains(t, out, "# Inventory Changelog")
	assert.Contains(t, out, "2026-08-01 10:00:00 UTC")
	assert.Contains(t, out, "2026-08-02 10:00:00 UTC")
	assert.Contains(t, out, "1 added, 1 removed, 1 modified, 3 unchanged")
	assert.Contains(t, out, "b-2")
	assert.Contains(t, out, "b-1")

	// Per-field changes render as sub-bullets.
	assert.Contains(t, out, "- **status**: `running` → `stopped`")
	assert.Contains(t, out, "  - added `Owner` = `x`")
	assert.Contains(t, out, "  - removed `Temp` (was `y`)")
	assert.Contains(t, out, "  - changed `Env`: `dev` → `prod`")

	assert.NotContains(t, out, "<", "no HTML in the changelog")
}

func TestRenderChangelogEmptyDelta(t *testing.T) {
	now := time.Now().UTC()
	before := &models.Snapshot{SnapshotID: "aaaa", CreatedAt: now}
	after := &models.Snapshot{SnapshotID: "aaaa", CreatedAt: now}
	delta := &models.Delta{SnapshotIDBefore: "aaaa", SnapshotIDAfter: "aaaa", UnchangedCount: 5}

	out := RenderChangelog(delta, before, after)
	assert.Contains(t, out, "## Added (0)")
	assert.Contains(t, out, "None.")
	assert.Contains(t, out, "0 added, 0 removed, 0 modified, 5 unchanged")
}

func TestRenderChangelogDeterministic(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	before := &models.Snapshot{SnapshotID: "a", CreatedAt: now}
	after := &models.Snapshot{SnapshotID: "b", CreatedAt: now}
	delta := &models.Delta{
		Modified: []models.ModifiedRecord{{
			Key: "k",
			Changes: []models.FieldChange{{Field: "tags", Changeset: &models.MapChangeset{
				Added: map[string]string{"b": "2", "a": "1", "c": "3"},
			}}},
		}},
	}

	first := RenderChangelog(delta, before, after)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, RenderChangelog(delta, before, after),
			"map iteration order must not leak into output")
	}
}
