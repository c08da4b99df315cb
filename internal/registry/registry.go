// Package registry implements the Operation Registry of spec.md §4.2: a
// read-only-after-init lookup from operation_id to its executor and
// fan-out metadata.
package registry

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"enrichpipe.io/engine/internal/adapter"
	"enrichpipe.io/engine/internal/domain"
)

// Executor runs one operation against a composed input and returns a
// normalized envelope (spec.md §4.1). It never returns a Go error for
// provider-local failures — those are represented in the envelope itself.
type Executor func(ctx context.Context, runID uuid.UUID, input adapter.Input) adapter.Envelope

// OperationDef describes one registered operation.
type OperationDef struct {
	ID         string
	EntityType domain.EntityType
	Executor   Executor
	FanOutKey  string
	InputSchema map[string]any
}

// Registry is a process-wide operation_id -> OperationDef map, built once
// at process start and read-only thereafter (spec.md §5).
type Registry struct {
	mu  sync.RWMutex
	ops map[string]*OperationDef
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{ops: make(map[string]*OperationDef)}
}

// Register adds def to the registry, replacing any existing definition
// with the same ID.
func (r *Registry) Register(def OperationDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[def.ID] = &def
}

// Lookup returns the OperationDef for operationID, or (nil, false) if
// unregistered — the pipeline engine fails the step with
// errors.CodeUnknownOperation on a miss.
func (r *Registry) Lookup(operationID string) (*OperationDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.ops[operationID]
	return def, ok
}

// IDs returns every registered operation id, for diagnostics and tests.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.ops))
	for id := range r.ops {
		ids = append(ids, id)
	}
	return ids
}
