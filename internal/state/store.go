package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/habhabhabs/aws-inventag/internal/models"
	apperrors "github.com/habhabhabs/aws-inventag/internal/shared/errors"
	"github.com/habhabhabs/aws-inventag/internal/shared/logger"
)

const (
	snapshotPrefix = "snapshot_"
	snapshotExt    = ".json"
	// snapshotIDLength is the checksum prefix used as the snapshot id
	snapshotIDLength = 16
	timestampLayout  = "20060102T150405Z"
)

// Store persists snapshots as content-addressed files under one directory
type Store struct {
	dir           string
	retentionDays int
	maxSnapshots  int
	log           logger.Logger
}

// NewStore opens (creating if needed) a snapshot store
func NewStore(dir string, retentionDays, maxSnapshots int, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory %s: %w", dir, err)
	}
	return &Store{
		dir:           dir,
		retentionDays: retentionDays,
		maxSnapshots:  maxSnapshots,
		log:           log,
	}, nil
}

// IntegrityReport is the outcome of a store-wide validation pass
type IntegrityReport struct {
	ValidIDs           []string `json:"valid_ids"`
	InvalidIDs         []string `json:"invalid_ids"`
	MissingFiles       []string `json:"missing_files"`
	ChecksumMismatches []string `json:"checksum_mismatches"`
}

// Save persists a snapshot and returns its id. Idempotent on content: if
// a stored snapshot already carries the same checksum, its id is returned
// and nothing is written. Retention runs after every successful save.
func (s *Store) Save(records []models.Resource, summary models.ComplianceSummary, accountIDs, regions []string, tags map[string]string) (string, error) {
	checksum, err := Checksum(records)
	if err != nil {
		return "", fmt.Errorf("computing checksum: %w", err)
	}
	id := checksum[:snapshotIDLength]

	metas, err := s.List()
	if err != nil {
		return "", err
	}
	for _, meta := range metas {
		if meta.Checksum == checksum {
			s.log.Info("snapshot unchanged, reusing",
				logger.F("snapshot_id", meta.SnapshotID))
			return meta.SnapshotID, nil
		}
	}

	sorted := make([]models.Resource, len(records))
	copy(sorted, records)
	models.SortResources(sorted)

	if tags == nil {
		tags = map[string]string{}
	}
	snapshot := models.Snapshot{
		SnapshotID:        id,
		CreatedAt:         time.Now().UTC(),
		AccountIDs:        accountIDs,
		Regions:           regions,
		Checksum:          checksum,
		Tags:              tags,
		ComplianceSummary: summary,
		Records:           sorted,
	}

	data, err := json.MarshalIndent(&snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	filename := fmt.Sprintf("%s%s_%s%s", snapshotPrefix, id, snapshot.CreatedAt.Format(timestampLayout), snapshotExt)
	path := filepath.Join(s.dir, filename)
	// Write-then-rename so a crash never leaves a readable half-snapshot.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("publishing snapshot: %w", err)
	}
	s.log.Info("snapshot saved",
		logger.F("snapshot_id", id),
		logger.F("records", len(sorted)),
		logger.F("path", path))

	if err := s.enforceRetention(); err != nil {
		s.log.WithError(err).Warn("retention pass failed")
	}
	return id, nil
}

// Load reads a snapshot by id and verifies its checksum
func (s *Store) Load(id string) (*models.Snapshot, error) {
	path, err := s.pathFor(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", id, err)
	}
	var snapshot models.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, apperrors.Wrap(apperrors.KindCorruptSnapshot,
			fmt.Sprintf("snapshot %s is not valid JSON", id), err)
	}
	checksum, err := Checksum(snapshot.Records)
	if err != nil {
		return nil, err
	}
	if checksum != snapshot.Checksum {
		return nil, apperrors.New(apperrors.KindCorruptSnapshot,
			fmt.Sprintf("snapshot %s checksum mismatch: stored %s, computed %s", id, snapshot.Checksum, checksum))
	}
	return &snapshot, nil
}

// List returns metadata for every stored snapshot ordered by creation time
func (s *Store) List() ([]models.SnapshotMeta, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing snapshot directory: %w", err)
	}
	var metas []models.SnapshotMeta
	for _, entry := range entries {
		if entry.IsDir() || !isSnapshotFile(entry.Name()) {
			continue
		}
		meta, err := s.readMeta(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			s.log.WithError(err).Warn("unreadable snapshot file skipped",
				logger.F("file", entry.Name()))
			continue
		}
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.Before(metas[j].CreatedAt)
	})
	return metas, nil
}

// Compare diffs two stored snapshots
func (s *Store) Compare(beforeID, afterID string) (*models.Delta, error) {
	before, err := s.Load(beforeID)
	if err != nil {
		return nil, err
	}
	after, err := s.Load(afterID)
	if err != nil {
		return nil, err
	}
	return ComputeDelta(before, after, nil)
}

// Export renders a snapshot to the given format. Supported formats are
// json and markdown; an empty destination returns the bytes without
// writing.
func (s *Store) Export(id, format, destination string) ([]byte, error) {
	snapshot, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	var data []byte
	switch strings.ToLower(format) {
	case "", "json":
		if data, err = json.MarshalIndent(snapshot, "", "  "); err != nil {
			return nil, fmt.Errorf("encoding snapshot: %w", err)
		}
	case "markdown", "md":
		data = []byte(renderSnapshotMarkdown(snapshot))
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	if destination != "" {
		if err := os.WriteFile(destination, data, 0o644); err != nil {
			return nil, fmt.Errorf("writing export: %w", err)
		}
	}
	return data, nil
}

// ValidateIntegrity re-reads every stored snapshot and verifies checksums
func (s *Store) ValidateIntegrity() (*IntegrityReport, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	report := &IntegrityReport{}
	for _, meta := range metas {
		if _, err := os.Stat(meta.Path); err != nil {
			report.MissingFiles = append(report.MissingFiles, meta.Path)
			report.InvalidIDs = append(report.InvalidIDs, meta.SnapshotID)
			continue
		}
		if _, err := s.Load(meta.SnapshotID); err != nil {
			report.InvalidIDs = append(report.InvalidIDs, meta.SnapshotID)
			if apperrors.IsKind(err, apperrors.KindCorruptSnapshot) {
				report.ChecksumMismatches = append(report.ChecksumMismatches, meta.SnapshotID)
			}
			continue
		}
		report.ValidIDs = append(report.ValidIDs, meta.SnapshotID)
	}
	return report, nil
}

// enforceRetention prunes snapshots older than retentionDays and keeps at
// most maxSnapshots. The most recent snapshot is never pruned, even when
// it violates both limits.
func (s *Store) enforceRetention() error {
	metas, err := s.List()
	if err != nil {
		return err
	}
	if len(metas) <= 1 {
		return nil
	}

	newest := metas[len(metas)-1]
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)

	var keep []models.SnapshotMeta
	for _, meta := range metas {
		if meta.SnapshotID == newest.SnapshotID {
			keep = append(keep, meta)
			continue
		}
		if s.retentionDays > 0 && meta.CreatedAt.Before(cutoff) {
			s.remove(meta, "age")
			continue
		}
		keep = append(keep, meta)
	}

	if s.maxSnapshots > 0 && len(keep) > s.maxSnapshots {
		excess := len(keep) - s.maxSnapshots
		for _, meta := range keep[:excess] {
			if meta.SnapshotID == newest.SnapshotID {
				continue
			}
			s.remove(meta, "count")
		}
	}
	return nil
}

func (s *Store) remove(meta models.SnapshotMeta, reason string) {
	if err := os.Remove(meta.Path); err != nil {
		s.log.WithError(err).Warn("failed to prune snapshot",
			logger.F("snapshot_id", meta.SnapshotID))
		return
	}
	s.log.Info("snapshot pruned",
		logger.F("snapshot_id", meta.SnapshotID),
		logger.F("reason", reason))
}

func (s *Store) pathFor(id string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, snapshotPrefix+id+"_*"+snapshotExt))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("snapshot %s not found", id)
	}
	// Newest file wins should an id ever collide across timestamps.
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

func (s *Store) readMeta(path string) (models.SnapshotMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.SnapshotMeta{}, err
	}
	var snapshot models.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return models.SnapshotMeta{}, err
	}
	return models.SnapshotMeta{
		SnapshotID:  snapshot.SnapshotID,
		CreatedAt:   snapshot.CreatedAt,
		Checksum:    snapshot.Checksum,
		RecordCount: len(snapshot.Records),
		Path:        path,
	}, nil
}

func isSnapshotFile(name string) bool {
	return strings.HasPrefix(name, snapshotPrefix) && strings.HasSuffix(name, snapshotExt)
}
