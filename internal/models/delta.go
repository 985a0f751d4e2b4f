package models

// FieldChange describes a single attribute change on a modified record
type FieldChange struct {
	Field string `json:"field"`
	Old   any    `json:"old,omitempty"`
	New   any    `json:"new,omitempty"`

	// Changeset carries the three-way breakdown for map-valued fields
	// such as tags.
	Changeset *MapChangeset `json:"changeset,omitempty"`
}

// MapChangeset is the three-way diff of a map-valued attribute
type MapChangeset struct {
	Added    map[string]string    `json:"added,omitempty"`
	Removed  map[string]string    `json:"removed,omitempty"`
	Modified map[string][2]string `json:"modified,omitempty"`
}

// ModifiedRecord names a record whose attributes changed between snapshots
type ModifiedRecord struct {
	Key     string        `json:"key"`
	Changes []FieldChange `json:"changes"`
}

// Delta is a typed diff between two snapshots. The invariant
// |added| + |removed| + |modified| + unchanged_count == |keys1 ∪ keys2|
// always holds.
type Delta struct {
	SnapshotIDBefore string           `json:"snapshot_id_before"`
	SnapshotIDAfter  string           `json:"snapshot_id_after"`
	Added            []Resource       `json:"added"`
	Removed          []Resource       `json:"removed"`
	Modified         []ModifiedRecord `json:"modified"`
	UnchangedCount   int              `json:"unchanged_count"`
}
