package state

import (
	"sort"

	"github.com/habhabhabs/aws-inventag/internal/models"
)

// DefaultDiffFields is the attribute whitelist the delta detector compares
// when record checksums differ.
var DefaultDiffFields = []string{
	"tags",
	"status",
	"state",
	"security_groups",
	"public_access",
	"encrypted",
	"parent_resource",
	"child_resources",
	"dependencies",
}

// ComputeDelta diffs two snapshots. Identity is the record key (ARN when
// present, composite otherwise); an id rotation with a stable ARN is
// therefore a modification, not a remove-and-add. A nil fields argument
// selects the default whitelist.
func ComputeDelta(before, after *models.Snapshot, fields []string) (*models.Delta, error) {
	if fields == nil {
		fields = DefaultDiffFields
	}

	beforeByKey := indexByKey(before.Records)
	afterByKey := indexByKey(after.Records)

	delta := &models.Delta{
		SnapshotIDBefore: before.SnapshotID,
		SnapshotIDAfter:  after.SnapshotID,
		Added:            []models.Resource{},
		Removed:          []models.Resource{},
		Modified:         []models.ModifiedRecord{},
	}

	for key, record := range afterByKey {
		if _, existed := beforeByKey[key]; !existed {
			delta.Added = append(delta.Added, *record)
		}
	}
	for key, record := range beforeByKey {
		if _, exists := afterByKey[key]; !exists {
			delta.Removed = append(delta.Removed, *record)
		}
	}

	for key, oldRecord := range beforeByKey {
		newRecord, exists := afterByKey[key]
		if !exists {
			continue
		}
		oldSum, err := RecordChecksum(*oldRecord)
		if err != nil {
			return nil, err
		}
		newSum, err := RecordChecksum(*newRecord)
		if err != nil {
			return nil, err
		}
		if oldSum == newSum {
			delta.UnchangedCount++
			continue
		}
		changes := diffFields(oldRecord, newRecord, fields)
		if len(changes) == 0 {
			// Differs only outside the whitelist.
			delta.UnchangedCount++
			continue
		}
		delta.Modified = append(delta.Modified, models.ModifiedRecord{Key: key, Changes: changes})
	}

	models.SortResources(delta.Added)
	models.SortResources(delta.Removed)
	sort.Slice(delta.Modified, func(i, j int) bool {
		return delta.Modified[i].Key < delta.Modified[j].Key
	})
	return delta, nil
}

func indexByKey(records []models.Resource) map[string]*models.Resource {
	index := make(map[string]*models.Resource, len(records))
	for i := range records {
		index[records[i].Key()] = &records[i]
	}
	return index
}

// diffFields compares two records restricted to the whitelist. Fields are
// emitted in whitelist order for deterministic output.
func diffFields(oldRecord, newRecord *models.Resource, fields []string) []models.FieldChange {
	var changes []models.FieldChange
	for _, field := range fields {
		var change *models.FieldChange
		switch field {
		case "tags":
			change = diffMap(field, oldRecord.Tags, newRecord.Tags)
		case "status":
			change = diffString(field, oldRecord.Status, newRecord.Status)
		case "state":
			change = diffString(field, oldRecord.State, newRecord.State)
		case "security_groups":
			change = diffList(field, oldRecord.SecurityGroups, newRecord.SecurityGroups)
		case "public_access":
			change = diffBool(field, oldRecord.PublicAccess, newRecord.PublicAccess)
		case "encrypted":
			change = diffBool(field, oldRecord.Encrypted, newRecord.Encrypted)
		case "parent_resource":
			change = diffString(field, oldRecord.ParentResource, newRecord.ParentResource)
		case "child_resources":
			change = diffList(field, oldRecord.ChildResources, newRecord.ChildResources)
		case "dependencies":
			change = diffList(field, oldRecord.Dependencies, newRecord.Dependencies)
		}
		if change != nil {
			changes = append(changes, *change)
		}
	}
	return changes
}

func diffString(field, oldValue, newValue string) *models.FieldChange {
	if oldValue == newValue {
		return nil
	}
	return &models.FieldChange{Field: field, Old: oldValue, New: newValue}
}

func diffBool(field string, oldValue, newValue *bool) *models.FieldChange {
	if boolValue(oldValue) == boolValue(newValue) && (oldValue == nil) == (newValue == nil) {
		return nil
	}
	change := &models.FieldChange{Field: field}
	if oldValue != nil {
		change.Old = *oldValue
	}
	if newValue != nil {
		change.New = *newValue
	}
	return change
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

// diffMap produces the three-way changeset for map-valued fields
func diffMap(field string, oldMap, newMap map[string]string) *models.FieldChange {
	changeset := &models.MapChangeset{}
	for key, newValue := range newMap {
		oldValue, existed := oldMap[key]
		switch {
		case !existed:
			if changeset.Added == nil {
				changeset.Added = map[string]string{}
			}
			changeset.Added[key] = newValue
		case oldValue != newValue:
			if changeset.Modified == nil {
				changeset.Modified = map[string][2]string{}
			}
			changeset.Modified[key] = [2]string{oldValue, newValue}
		}
	}
	for key, oldValue := range oldMap {
		if _, exists := newMap[key]; !exists {
			if changeset.Removed == nil {
				changeset.Removed = map[string]string{}
			}
			changeset.Removed[key] = oldValue
		}
	}
	if changeset.Added == nil && changeset.Removed == nil && changeset.Modified == nil {
		return nil
	}
	return &models.FieldChange{Field: field, Changeset: changeset}
}

// diffList applies set-difference semantics: order never matters
func diffList(field string, oldList, newList []string) *models.FieldChange {
	oldSet := toSet(oldList)
	newSet := toSet(newList)

	var added, removed []string
	for item := range newSet {
		if !oldSet[item] {
			added = append(added, item)
		}
	}
	for item := range oldSet {
		if !newSet[item] {
			removed = append(removed, item)
		}
	}
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}
	sort.Strings(added)
	sort.Strings(removed)

	oldSorted := append([]string{}, oldList...)
	newSorted := append([]string{}, newList...)
	sort.Strings(oldSorted)
	sort.Strings(newSorted)
	return &models.FieldChange{Field: field, Old: oldSorted, New: newSorted}
}

func toSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, item := range list {
		set[item] = true
	}
	return set
}
