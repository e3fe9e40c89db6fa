package models

import (
	"encoding/json"
	"fmt"
)

// TableRequirement is a precondition on current table state. Requirements
// are evaluated in declaration order; the first failure aborts the commit and
// reports its type.
type TableRequirement interface {
	// RequirementType returns the wire tag of the requirement.
	RequirementType() string
}

// AssertCreate requires that the table does not exist.
type AssertCreate struct{}

// AssertTableUUID requires the table's uuid to equal the stated uuid.
type AssertTableUUID struct {
	UUID string `json:"uuid"`
}

// AssertRefSnapshotID requires the named ref to be absent (SnapshotID nil) or
// to point at the stated snapshot.
type AssertRefSnapshotID struct {
	Ref        string `json:"ref"`
	SnapshotID *int64 `json:"snapshot-id"`
}

// AssertLastAssignedFieldID requires last_column_id to equal the stated value.
type AssertLastAssignedFieldID struct {
	LastAssignedFieldID int `json:"last-assigned-field-id"`
}

// AssertCurrentSchemaID requires current_schema_id to equal the stated value.
type AssertCurrentSchemaID struct {
	CurrentSchemaID int `json:"current-schema-id"`
}

// AssertLastAssignedPartitionID requires last_partition_id to equal the
// stated value.
type AssertLastAssignedPartitionID struct {
	LastAssignedPartitionID int `json:"last-assigned-partition-id"`
}

// AssertDefaultSpecID requires default_spec_id to equal the stated value.
type AssertDefaultSpecID struct {
	DefaultSpecID int `json:"default-spec-id"`
}

// AssertDefaultSortOrderID requires default_sort_order_id to equal the stated
// value.
type AssertDefaultSortOrderID struct {
	DefaultSortOrderID int `json:"default-sort-order-id"`
}

// UnknownRequirement carries an unrecognized requirement type. It always
// fails validation, so a stale or newer client is rejected rather than
// silently ignored.
type UnknownRequirement struct {
	Type string
}

func (AssertCreate) RequirementType() string              { return "assert-create" }
func (AssertTableUUID) RequirementType() string           { return "assert-table-uuid" }
func (AssertRefSnapshotID) RequirementType() string       { return "assert-ref-snapshot-id" }
func (AssertLastAssignedFieldID) RequirementType() string { return "assert-last-assigned-field-id" }
func (AssertCurrentSchemaID) RequirementType() string     { return "assert-current-schema-id" }
func (AssertLastAssignedPartitionID) RequirementType() string {
	return "assert-last-assigned-partition-id"
}
func (AssertDefaultSpecID) RequirementType() string      { return "assert-default-spec-id" }
func (AssertDefaultSortOrderID) RequirementType() string { return "assert-default-sort-order-id" }
func (u UnknownRequirement) RequirementType() string     { return u.Type }

// TableUpdate is a single mutation applied during a commit. Updates are
// applied in declaration order; each update observes the effects of the
// previous ones.
type TableUpdate interface {
	// Action returns the wire tag of the update.
	Action() string
}

// AssignUUIDUpdate overwrites the table uuid.
type AssignUUIDUpdate struct {
	UUID string `json:"uuid"`
}

// UpgradeFormatVersionUpdate overwrites the table format version.
type UpgradeFormatVersionUpdate struct {
	FormatVersion int `json:"format-version"`
}

// AddSchemaUpdate adds a schema row. A missing schema-id is assigned
// max(existing)+1; last_column_id is raised to the schema's highest field id
// (or to the supplied last-column-id) when either is higher.
type AddSchemaUpdate struct {
	Schema       Schema `json:"schema"`
	LastColumnID *int   `json:"last-column-id,omitempty"`
}

// SetCurrentSchemaUpdate sets current_schema_id; -1 resolves to the highest
// stored schema id.
type SetCurrentSchemaUpdate struct {
	SchemaID int `json:"schema-id"`
}

// AddSpecUpdate adds a partition spec row, assigning spec-id and missing
// field-ids as needed.
type AddSpecUpdate struct {
	Spec PartitionSpec `json:"spec"`
}

// SetDefaultSpecUpdate sets default_spec_id; -1 resolves to the highest
// stored spec id.
type SetDefaultSpecUpdate struct {
	SpecID int `json:"spec-id"`
}

// AddSortOrderUpdate adds a sort order row.
type AddSortOrderUpdate struct {
	SortOrder SortOrder `json:"sort-order"`
}

// SetDefaultSortOrderUpdate sets default_sort_order_id; -1 resolves to the
// highest stored order id.
type SetDefaultSortOrderUpdate struct {
	SortOrderID int `json:"sort-order-id"`
}

// AddSnapshotUpdate inserts a snapshot, makes it current, and raises
// last_sequence_number.
type AddSnapshotUpdate struct {
	Snapshot Snapshot `json:"snapshot"`
}

// SetSnapshotRefUpdate upserts a named branch or tag.
type SetSnapshotRefUpdate struct {
	RefName            string `json:"ref-name"`
	Type               string `json:"type"`
	SnapshotID         int64  `json:"snapshot-id"`
	MaxRefAgeMs        *int64 `json:"max-ref-age-ms,omitempty"`
	MaxSnapshotAgeMs   *int64 `json:"max-snapshot-age-ms,omitempty"`
	MinSnapshotsToKeep *int   `json:"min-snapshots-to-keep,omitempty"`
}

// RemoveSnapshotsUpdate deletes snapshots by id.
type RemoveSnapshotsUpdate struct {
	SnapshotIDs []int64 `json:"snapshot-ids"`
}

// RemoveSnapshotRefUpdate deletes a named ref.
type RemoveSnapshotRefUpdate struct {
	RefName string `json:"ref-name"`
}

// RemovePartitionSpecsUpdate deletes partition specs by id.
type RemovePartitionSpecsUpdate struct {
	SpecIDs []int `json:"spec-ids"`
}

// RemoveSchemasUpdate deletes schemas by id.
type RemoveSchemasUpdate struct {
	SchemaIDs []int `json:"schema-ids"`
}

// SetLocationUpdate rewrites the table location.
type SetLocationUpdate struct {
	Location string `json:"location"`
}

// SetPropertiesUpdate merges the given keys into the table properties.
type SetPropertiesUpdate struct {
	Updates map[string]string `json:"updates"`
}

// RemovePropertiesUpdate removes the given keys from the table properties.
// Removing an absent key is silent.
type RemovePropertiesUpdate struct {
	Removals []string `json:"removals"`
}

// SetStatisticsUpdate upserts a statistics file for a snapshot.
type SetStatisticsUpdate struct {
	SnapshotID *int64         `json:"snapshot-id,omitempty"`
	Statistics StatisticsFile `json:"statistics"`
}

// SetPartitionStatisticsUpdate upserts a partition statistics file for a
// snapshot.
type SetPartitionStatisticsUpdate struct {
	PartitionStatistics PartitionStatisticsFile `json:"partition-statistics"`
}

// RemoveStatisticsUpdate deletes the statistics file for a snapshot.
type RemoveStatisticsUpdate struct {
	SnapshotID int64 `json:"snapshot-id"`
}

// RemovePartitionStatisticsUpdate deletes the partition statistics file for a
// snapshot.
type RemovePartitionStatisticsUpdate struct {
	SnapshotID int64 `json:"snapshot-id"`
}

// EnableRowLineageUpdate turns on row lineage tracking.
type EnableRowLineageUpdate struct{}

func (AssignUUIDUpdate) Action() string                { return "assign-uuid" }
func (UpgradeFormatVersionUpdate) Action() string      { return "upgrade-format-version" }
func (AddSchemaUpdate) Action() string                 { return "add-schema" }
func (SetCurrentSchemaUpdate) Action() string          { return "set-current-schema" }
func (AddSpecUpdate) Action() string                   { return "add-spec" }
func (SetDefaultSpecUpdate) Action() string            { return "set-default-spec" }
func (AddSortOrderUpdate) Action() string              { return "add-sort-order" }
func (SetDefaultSortOrderUpdate) Action() string       { return "set-default-sort-order" }
func (AddSnapshotUpdate) Action() string               { return "add-snapshot" }
func (SetSnapshotRefUpdate) Action() string            { return "set-snapshot-ref" }
func (RemoveSnapshotsUpdate) Action() string           { return "remove-snapshots" }
func (RemoveSnapshotRefUpdate) Action() string         { return "remove-snapshot-ref" }
func (RemovePartitionSpecsUpdate) Action() string      { return "remove-partition-specs" }
func (RemoveSchemasUpdate) Action() string             { return "remove-schemas" }
func (SetLocationUpdate) Action() string               { return "set-location" }
func (SetPropertiesUpdate) Action() string             { return "set-properties" }
func (RemovePropertiesUpdate) Action() string          { return "remove-properties" }
func (SetStatisticsUpdate) Action() string             { return "set-statistics" }
func (SetPartitionStatisticsUpdate) Action() string    { return "set-partition-statistics" }
func (RemoveStatisticsUpdate) Action() string          { return "remove-statistics" }
func (RemovePartitionStatisticsUpdate) Action() string { return "remove-partition-statistics" }
func (EnableRowLineageUpdate) Action() string          { return "enable-row-lineage" }

// UnmarshalRequirement decodes a single requirement, dispatching on its
// "type" tag. An unrecognized type decodes into UnknownRequirement.
func UnmarshalRequirement(data []byte) (TableRequirement, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("failed to decode requirement: %w", err)
	}

	var (
		req TableRequirement
		err error
	)
	switch tag.Type {
	case "assert-create":
		req = AssertCreate{}
	case "assert-table-uuid":
		var r AssertTableUUID
		err = json.Unmarshal(data, &r)
		req = r
	case "assert-ref-snapshot-id":
		var r AssertRefSnapshotID
		err = json.Unmarshal(data, &r)
		req = r
	case "assert-last-assigned-field-id":
		var r AssertLastAssignedFieldID
		err = json.Unmarshal(data, &r)
		req = r
	case "assert-current-schema-id":
		var r AssertCurrentSchemaID
		err = json.Unmarshal(data, &r)
		req = r
	case "assert-last-assigned-partition-id":
		var r AssertLastAssignedPartitionID
		err = json.Unmarshal(data, &r)
		req = r
	case "assert-default-spec-id":
		var r AssertDefaultSpecID
		err = json.Unmarshal(data, &r)
		req = r
	case "assert-default-sort-order-id":
		var r AssertDefaultSortOrderID
		err = json.Unmarshal(data, &r)
		req = r
	default:
		req = UnknownRequirement{Type: tag.Type}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s requirement: %w", tag.Type, err)
	}
	return req, nil
}

// UnmarshalUpdate decodes a single update, dispatching on its "action" tag.
// An unrecognized action is an error: the commit must be rejected before any
// side effect.
func UnmarshalUpdate(data []byte) (TableUpdate, error) {
	var tag struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("failed to decode update: %w", err)
	}

	var (
		upd TableUpdate
		err error
	)
	switch tag.Action {
	case "assign-uuid":
		var u AssignUUIDUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "upgrade-format-version":
		var u UpgradeFormatVersionUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "add-schema":
		var u AddSchemaUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "set-current-schema":
		var u SetCurrentSchemaUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "add-spec":
		var u AddSpecUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "set-default-spec":
		var u SetDefaultSpecUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "add-sort-order":
		var u AddSortOrderUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "set-default-sort-order":
		var u SetDefaultSortOrderUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "add-snapshot":
		var u AddSnapshotUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "set-snapshot-ref":
		var u SetSnapshotRefUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "remove-snapshots":
		var u RemoveSnapshotsUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "remove-snapshot-ref":
		var u RemoveSnapshotRefUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "remove-partition-specs":
		var u RemovePartitionSpecsUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "remove-schemas":
		var u RemoveSchemasUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "set-location":
		var u SetLocationUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "set-properties":
		var u SetPropertiesUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "remove-properties":
		var u RemovePropertiesUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "set-statistics":
		var u SetStatisticsUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "set-partition-statistics":
		var u SetPartitionStatisticsUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "remove-statistics":
		var u RemoveStatisticsUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "remove-partition-statistics":
		var u RemovePartitionStatisticsUpdate
		err = json.Unmarshal(data, &u)
		upd = u
	case "enable-row-lineage":
		upd = EnableRowLineageUpdate{}
	default:
		return nil, fmt.Errorf("unsupported update action: %q", tag.Action)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s update: %w", tag.Action, err)
	}
	return upd, nil
}

// CommitTableRequest is an ordered list of requirements and updates applied
// atomically to one table.
type CommitTableRequest struct {
	// Identifier must be present when the request is part of a
	// CommitTransactionRequest.
	Identifier   *TableIdentifier
	Requirements []TableRequirement
	Updates      []TableUpdate
}

// UnmarshalJSON decodes the heterogeneous requirement and update lists.
func (r *CommitTableRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Identifier   *TableIdentifier  `json:"identifier"`
		Requirements []json.RawMessage `json:"requirements"`
		Updates      []json.RawMessage `json:"updates"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Identifier = raw.Identifier
	r.Requirements = make([]TableRequirement, 0, len(raw.Requirements))
	for _, msg := range raw.Requirements {
		req, err := UnmarshalRequirement(msg)
		if err != nil {
			return err
		}
		r.Requirements = append(r.Requirements, req)
	}

	r.Updates = make([]TableUpdate, 0, len(raw.Updates))
	for _, msg := range raw.Updates {
		upd, err := UnmarshalUpdate(msg)
		if err != nil {
			return err
		}
		r.Updates = append(r.Updates, upd)
	}
	return nil
}

// CommitTransactionRequest applies multiple table commits atomically.
type CommitTransactionRequest struct {
	TableChanges []CommitTableRequest `json:"table-changes" binding:"required"`
}
