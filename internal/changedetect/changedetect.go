// Package changedetect compares the two most recent entity snapshots and
// classifies per-field differences, per spec.md §4.5.
package changedetect

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"

	"enrichpipe.io/engine/internal/domain"
)

// ChangeType is the classification of one field's difference between the
// previous and current snapshot.
type ChangeType string

const (
	ChangeAdded     ChangeType = "added"
	ChangeRemoved   ChangeType = "removed"
	ChangeIncreased ChangeType = "increased"
	ChangeDecreased ChangeType = "decreased"
	ChangeChanged   ChangeType = "changed"
)

// FieldChange is one detected difference for a single watched field.
type FieldChange struct {
	Field          string
	PreviousValue  any
	CurrentValue   any
	ChangeType     ChangeType
	AbsoluteChange *float64
	PercentChange  *float64
}

// Result is the outcome of a change-detection run.
type Result struct {
	HasChanges         bool
	Reason             string
	EntityID           uuid.UUID
	EntityType         domain.EntityType
	PreviousSnapshotAt time.Time
	CurrentSnapshotAt  time.Time
	Changes            []FieldChange
	UnchangedFields    []string
}

// SnapshotReader is the minimal query surface change detection needs: the
// two most recent snapshots for one entity, newest first.
type SnapshotReader interface {
	RecentSnapshots(ctx context.Context, orgID string, entityType domain.EntityType, entityID uuid.UUID, limit int) ([]Snapshot, error)
}

// Snapshot is one row of entity_snapshots.
type Snapshot struct {
	CanonicalPayload map[string]any
	CapturedAt       time.Time
}

// Detector compares snapshots for change-detection operations (e.g.
// company.signal.vc_funding) in the operation registry.
type Detector struct {
	reader SnapshotReader
}

// NewDetector builds a Detector backed by reader.
func NewDetector(reader SnapshotReader) *Detector {
	return &Detector{reader: reader}
}

// Detect loads the two most recent snapshots for the entity and classifies
// the differences in fieldsToWatch (or, if empty, every field seen in
// either snapshot).
func (d *Detector) Detect(ctx context.Context, orgID string, entityType domain.EntityType, entityID uuid.UUID, fieldsToWatch []string) (Result, error) {
	snapshots, err := d.reader.RecentSnapshots(ctx, orgID, entityType, entityID, 2)
	if err != nil {
		return Result{}, fmt.Errorf("load recent snapshots: %w", err)
	}
	if len(snapshots) < 2 {
		return Result{HasChanges: false, Reason: "insufficient_history"}, nil
	}

	current := snapshots[0]
	previous := snapshots[1]

	return DetectFromPayloads(entityID, entityType, previous, current, fieldsToWatch), nil
}

// DetectFromPayloads is the pure classification core, factored out so
// pipeline tests can exercise it without a SnapshotReader.
func DetectFromPayloads(entityID uuid.UUID, entityType domain.EntityType, previous, current Snapshot, fieldsToWatch []string) Result {
	watched := normalizeFieldsToWatch(current.CanonicalPayload, previous.CanonicalPayload, fieldsToWatch)

	var changes []FieldChange
	var unchanged []string

	for _, field := range watched {
		prevValue, prevOK := previous.CanonicalPayload[field]
		currValue, currOK := current.CanonicalPayload[field]

		if valuesEqual(prevValue, currValue) {
			unchanged = append(unchanged, field)
			continue
		}

		// A field counts as missing both when the key is absent and when it
		// is present but explicitly null, so a null-to-value transition
		// classifies as added rather than changed.
		prevMissing := !prevOK || prevValue == nil
		currMissing := !currOK || currValue == nil

		switch {
		case prevMissing && !currMissing:
			changes = append(changes, FieldChange{Field: field, PreviousValue: prevValue, CurrentValue: currValue, ChangeType: ChangeAdded})
		case !prevMissing && currMissing:
			changes = append(changes, FieldChange{Field: field, PreviousValue: prevValue, CurrentValue: currValue, ChangeType: ChangeRemoved})
		case isNumeric(prevValue) && isNumeric(currValue):
			changes = append(changes, numericChange(field, prevValue, currValue))
		default:
			changes = append(changes, FieldChange{Field: field, PreviousValue: prevValue, CurrentValue: currValue, ChangeType: ChangeChanged})
		}
	}

	result := Result{
		EntityID:           entityID,
		EntityType:         entityType,
		PreviousSnapshotAt: previous.CapturedAt,
		CurrentSnapshotAt:  current.CapturedAt,
		Changes:            changes,
		UnchangedFields:    unchanged,
	}
	if len(changes) == 0 {
		result.HasChanges = false
		result.Reason = "no_changes"
	} else {
		result.HasChanges = true
	}
	return result
}

func normalizeFieldsToWatch(current, previous map[string]any, fieldsToWatch []string) []string {
	var cleaned []string
	for _, f := range fieldsToWatch {
		if f != "" {
			cleaned = append(cleaned, f)
		}
	}
	if len(cleaned) > 0 {
		return cleaned
	}

	seen := make(map[string]struct{})
	for k := range current {
		seen[k] = struct{}{}
	}
	for k := range previous {
		seen[k] = struct{}{}
	}
	all := make([]string, 0, len(seen))
	for k := range seen {
		all = append(all, k)
	}
	sort.Strings(all)
	return all
}

func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func isNumeric(v any) bool {
	if _, ok := v.(bool); ok {
		return false
	}
	_, ok := toFloat(v)
	return ok
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

func numericChange(field string, prevValue, currValue any) FieldChange {
	prev, _ := toFloat(prevValue)
	curr, _ := toFloat(currValue)

	changeType := ChangeDecreased
	if curr > prev {
		changeType = ChangeIncreased
	}

	absolute := curr - prev
	if absolute < 0 {
		absolute = -absolute
	}

	change := FieldChange{
		Field:          field,
		PreviousValue:  prevValue,
		CurrentValue:   currValue,
		ChangeType:     changeType,
		AbsoluteChange: &absolute,
	}
	if prev != 0 {
		percent := (absolute / absFloat(prev)) * 100.0
		change.PercentChange = &percent
	}
	return change
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
