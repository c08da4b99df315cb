package domain

import "time"

// Blueprint is a named ordered recipe of enrichment steps, owned by a
// tenant. It is snapshotted by value into each pipeline run at submission
// time so later edits never mutate in-flight runs (spec.md §3).
type Blueprint struct {
	BlueprintID string         `json:"blueprint_id"`
	OrgID       string         `json:"org_id"`
	Name        string         `json:"name"`
	IsActive    bool           `json:"is_active"`
	Steps       []BlueprintStep `json:"steps"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// BlueprintStep is one position in a blueprint.
type BlueprintStep struct {
	Position    int            `json:"position"` // 1..N, unique per blueprint
	OperationID string         `json:"operation_id"`
	StepConfig  map[string]any `json:"step_config"`
	FanOut      bool           `json:"fan_out"`
	IsEnabled   bool           `json:"is_enabled"`
	SkipIfFresh *SkipIfFresh   `json:"skip_if_fresh,omitempty"`
}

// SkipIfFresh configures the freshness short-circuit of spec.md §4.6 step 3.
type SkipIfFresh struct {
	MaxAgeHours    float64  `json:"max_age_hours"`
	IdentityFields []string `json:"identity_fields"`
}

// Snapshot returns a value copy of the blueprint, safe to embed in a
// pipeline run without aliasing the live blueprint's step slice.
func (b Blueprint) Snapshot() Blueprint {
	steps := make([]BlueprintStep, len(b.Steps))
	for i, s := range b.Steps {
		cfg := make(map[string]any, len(s.StepConfig))
		for k, v := range s.StepConfig {
			cfg[k] = v
		}
		s.StepConfig = cfg
		steps[i] = s
	}
	b.Steps = steps
	return b
}

// StepAt returns the step at 1-based position, or (zero, false) if out of range.
func (b Blueprint) StepAt(position int) (BlueprintStep, bool) {
	for _, s := range b.Steps {
		if s.Position == position {
			return s, true
		}
	}
	return BlueprintStep{}, false
}

// Len returns the number of steps in the blueprint.
func (b Blueprint) Len() int {
	return len(b.Steps)
}
