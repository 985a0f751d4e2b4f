package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habhabhabs/aws-inventag/internal/models"
	apperrors "github.com/habhabhabs/aws-inventag/internal/shared/errors"
	"github.com/habhabhabs/aws-inventag/internal/shared/logger"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), 90, 50, logger.Nop())
	require.NoError(t, err)
	return store
}

func sampleRecords() []models.Resource {
	return []models.Resource{
		{ResourceID: "i-1", Service: "EC2", Type: "Instance", Region: "us-east-1",
			AccountID: "111111111111", Tags: map[string]string{"Env": "prod"}},
		{ResourceID: "bucket-1", Service: "S3", Type: "Bucket", Region: "us-east-1",
			AccountID: "111111111111", Tags: map[string]string{}},
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := testStore(t)

	id, err := store.Save(sampleRecords(), models.ComplianceSummary{Total: 2},
		[]string{"111111111111"}, []string{"us-east-1"}, map[string]string{"label": "nightly"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snapshot, err := store.Load(id)
	require.NoError(t, err)
	assert.Equal(t, id, snapshot.SnapshotID)
	assert.Len(t, snapshot.Records, 2)
	assert.Equal(t, "nightly", snapshot.Tags["label"])
	assert.Equal(t, 2, snapshot.ComplianceSummary.Total)
	// Records come back in canonical order.
	assert.Equal(t, "i-1", snapshot.Records[0].ResourceID)
}

// Saving the same inventory twice returns the original id and writes no
// second file, even with different user tags.
func TestSaveIdempotentOnChecksum(t *testing.T) {
	store := testStore(t)

	first, err := store.Save(sampleRecords(), models.ComplianceSummary{Total: 2}, nil, nil, nil)
	require.NoError(t, err)

	second, err := store.Save(sampleRecords(), models.ComplianceSummary{Total: 2}, nil, nil,
		map[string]string{"label": "different"})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	metas, err := store.List()
	require.NoError(t, err)
	assert.Len(t, metas, 1)
}

func TestSaveShuffledInputProducesSameID(t *testing.T) {
	store := testStore(t)

	records := sampleRecords()
	first, err := store.Save(records, models.ComplianceSummary{}, nil, nil, nil)
	require.NoError(t, err)

	reversed := []models.Resource{records[1], records[0]}
	second, err := store.Save(reversed, models.ComplianceSummary{}, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestListOrderedByCreation(t *testing.T) {
	store := testStore(t)

	_, err := store.Save(sampleRecords(), models.ComplianceSummary{}, nil, nil, nil)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond) // filename timestamps have second granularity

	more := append(sampleRecords(), models.Resource{
		ResourceID: "db-1", Service: "RDS", Type: "DBInstance",
		Region: "us-east-1", AccountID: "111111111111", Tags: map[string]string{},
	})
	_, err = store.Save(more, models.ComplianceSummary{}, nil, nil, nil)
	require.NoError(t, err)

	metas, err := store.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.True(t, metas[0].CreatedAt.Before(metas[1].CreatedAt) ||
		metas[0].CreatedAt.Equal(metas[1].CreatedAt))
	assert.Equal(t, 2, metas[0].RecordCount)
	assert.Equal(t, 3, metas[1].RecordCount)
}

func TestLoadDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 90, 50, logger.Nop())
	require.NoError(t, err)

	id, err := store.Save(sampleRecords(), models.ComplianceSummary{}, nil, nil, nil)
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, snapshotPrefix+id+"_*"+snapshotExt))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	var snapshot models.Snapshot
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &snapshot))
	snapshot.Records[0].Status = "tampered"
	tampered, err := json.Marshal(&snapshot)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(matches[0], tampered, 0o644))

	_, err = store.Load(id)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindCorruptSnapshot))

	report, err := store.ValidateIntegrity()
	require.NoError(t, err)
	assert.Contains(t, report.InvalidIDs, id)
	assert.Contains(t, report.ChecksumMismatches, id)
	assert.Empty(t, report.ValidIDs)
}

func TestValidateIntegrityAllValid(t *testing.T) {
	store := testStore(t)
	id, err := store.Save(sampleRecords(), models.ComplianceSummary{}, nil, nil, nil)
	require.NoError(t, err)

	report, err := store.ValidateIntegrity()
	require.NoError(t, err)
	assert.Equal(t, []string{id}, report.ValidIDs)
	assert.Empty(t, report.InvalidIDs)
}

// Retention by count prunes oldest first but never the most recent.
func TestRetentionMaxSnapshots(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 0, 2, logger.Nop())
	require.NoError(t, err)

	var lastID string
	for i := 0; i < 4; i++ {
		records := sampleRecords()
		records[0].ResourceID = records[0].ResourceID + string(rune('a'+i))
		lastID, err = store.Save(records, models.ComplianceSummary{}, nil, nil, nil)
		require.NoError(t, err)
		time.Sleep(1100 * time.Millisecond)
	}

	metas, err := store.List()
	require.NoError(t, err)
	assert.LessOrEqual(t, len(metas), 2)
	require.NotEmpty(t, metas)
	assert.Equal(t, lastID, metas[len(metas)-1].SnapshotID,
		"the most recent snapshot survives retention")
}

func TestExportJSONAndMarkdown(t *testing.T) {
	store := testStore(t)
	id, err := store.Save(sampleRecords(), models.ComplianceSummary{Total: 2, Compliant: 1}, nil, nil, nil)
	require.NoError(t, err)

	jsonOut, err := store.Export(id, "json", "")
	require.NoError(t, err)
	var decoded models.Snapshot
	require.NoError(t, json.Unmarshal(jsonOut, &decoded))
	assert.Equal(t, id, decoded.SnapshotID)

	mdOut, err := store.Export(id, "markdown", "")
	require.NoError(t, err)
	assert.Contains(t, string(mdOut), "# Inventory Snapshot")
	assert.Contains(t, string(mdOut), "i-1")

	_, err = store.Export(id, "xml", "")
	assert.Error(t, err)
}

func TestExportWritesDestination(t *testing.T) {
	store := testStore(t)
	id, err := store.Save(sampleRecords(), models.ComplianceSummary{}, nil, nil, nil)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "snapshot.json")
	_, err = store.Export(id, "json", dest)
	require.NoError(t, err)
	_, err = os.Stat(dest)
	assert.NoError(t, err)
}
