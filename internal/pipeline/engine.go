package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"enrichpipe.io/engine/internal/adapter"
	pkgerrors "enrichpipe.io/engine/internal/pkg/errors"
	"enrichpipe.io/engine/internal/pkg/logger"

	"enrichpipe.io/engine/internal/domain"
	"enrichpipe.io/engine/internal/entitystore"
	"enrichpipe.io/engine/internal/registry"
	"enrichpipe.io/engine/internal/schemaval"
)

// RunRepository is the persistence port the engine needs: loading/saving a
// pipeline run, appending step results, and creating fan-out children.
// Concrete implementations live in internal/infrastructure.
type RunRepository interface {
	SaveStepResult(ctx context.Context, result domain.StepResult) error
	UpdateRun(ctx context.Context, run *domain.PipelineRun) error
	CreateChildRun(ctx context.Context, child *domain.PipelineRun) error
}

// Dispatcher is the task-dispatch port a fan-out (or the jobs worker)
// uses to schedule a run for execution. Concrete implementation is
// internal/dispatcher.RiverDispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, runID uuid.UUID, position, attemptNumber int) error
}

// EntityStores groups the three per-entity-type stores the engine needs
// for the freshness short-circuit and post-step upsert.
type EntityStores struct {
	Company *entitystore.Store
	Person  *entitystore.Store
	Job     *entitystore.Store
}

func (s EntityStores) storeFor(t domain.EntityType) *entitystore.Store {
	switch t {
	case domain.EntityCompany:
		return s.Company
	case domain.EntityPerson:
		return s.Person
	case domain.EntityJob:
		return s.Job
	default:
		return nil
	}
}

// Config carries the pipeline runtime's tunables (spec.md §9 Open Questions).
type Config struct {
	MaxFanoutDepth int
}

// Engine executes one step of one pipeline run at a time, per spec.md
// §4.6. The jobs worker re-invokes RunStep by re-enqueuing itself until
// the run reaches a terminal status or fans out.
type Engine struct {
	registry   *registry.Registry
	repo       RunRepository
	entities   EntityStores
	dispatcher Dispatcher
	cfg        Config
}

// NewEngine builds an Engine.
func NewEngine(reg *registry.Registry, repo RunRepository, entities EntityStores, dispatcher Dispatcher, cfg Config) *Engine {
	return &Engine{registry: reg, repo: repo, entities: entities, dispatcher: dispatcher, cfg: cfg}
}

// RunStep executes exactly one step of run's blueprint at its current
// position, implementing spec.md §4.6's ten-step loop. done reports
// whether the run reached a terminal status (succeeded/failed/skipped)
// or fanned out — in either case the caller should not re-invoke RunStep.
func (e *Engine) RunStep(ctx context.Context, run *domain.PipelineRun, attemptNumber int) (done bool, err error) {
	if run.Status.IsTerminal() {
		return true, nil
	}
	if run.Status == domain.RunQueued {
		if err := Transition(run.Status, domain.RunRunning); err != nil {
			return false, err
		}
		run.Status = domain.RunRunning
	}

	position := run.CurrentPosition
	step, ok := run.BlueprintSnapshot.StepAt(position)
	if !ok {
		return e.terminate(ctx, run, domain.RunSucceeded, "")
	}

	// Step 1: disabled-step skip.
	if !step.IsEnabled {
		if err := e.recordStep(ctx, run, position, attemptNumber, step.OperationID, domain.StepSkipped, nil, nil, "", "disabled"); err != nil {
			return false, err
		}
		return e.advance(ctx, run, position+1)
	}

	// Step 2: compose input payload.
	cumulativeContext := run.Context()
	input := adapter.Input{Direct: map[string]any{}, CumulativeContext: cumulativeContext.Raw(), StepConfig: step.StepConfig}

	// Step 3: freshness short-circuit.
	if step.SkipIfFresh != nil {
		store := e.entities.storeFor(run.EntityType)
		if store != nil {
			identifiers := make(map[string]any, len(step.SkipIfFresh.IdentityFields))
			for _, field := range step.SkipIfFresh.IdentityFields {
				if v, ok := cumulativeContext.Raw()[field]; ok {
					identifiers[field] = v
				}
			}
			freshness, err := store.CheckFreshness(ctx, run.OrgID, identifiers, step.SkipIfFresh.MaxAgeHours)
			if err != nil {
				return false, fmt.Errorf("check freshness at position %d: %w", position, err)
			}
			if freshness.Fresh {
				cumulativeContext.Merge(freshness.CanonicalPayload)
				run.CumulativeContext = cumulativeContext.Raw()
				if err := e.recordStep(ctx, run, position, attemptNumber, step.OperationID, domain.StepSkipped, input.Direct, nil, "", "entity_state_fresh"); err != nil {
					return false, err
				}
				return e.advance(ctx, run, position+1)
			}
		}
	}

	// Step 4: registry lookup.
	def, ok := e.registry.Lookup(step.OperationID)
	if !ok {
		appErr := pkgerrors.ErrUnknownOperationf(step.OperationID)
		if err := e.recordStep(ctx, run, position, attemptNumber, step.OperationID, domain.StepFailed, input.Direct, nil, appErr.Error(), ""); err != nil {
			return false, err
		}
		return e.terminate(ctx, run, domain.RunFailed, appErr.Error())
	}

	// Step 4b: step_config schema validation.
	if err := schemaval.Validate(def.InputSchema, step.StepConfig); err != nil {
		if err := e.recordStep(ctx, run, position, attemptNumber, step.OperationID, domain.StepFailed, input.Direct, nil, err.Error(), ""); err != nil {
			return false, err
		}
		return e.terminate(ctx, run, domain.RunFailed, err.Error())
	}

	// Step 5: invoke executor.
	envelope := def.Executor(ctx, run.RunID, input)

	// Step 6: derive the step's outcome from the envelope. The step_result
	// row is not written yet — a VersionError from the post-step upsert
	// below must still be able to flip a would-be "succeeded" row to
	// "failed" before anything is persisted, so the run's terminal status
	// and its last step_result never contradict each other (spec.md §8
	// scenario 5).
	stepStatus := stepStatusFromEnvelope(envelope)
	errMsg := ""
	if envelope.Error != nil {
		errMsg = envelope.Error.Message
	}

	// Step 7: failure policy. A failed executor call short-circuits before
	// any upsert is attempted.
	if stepStatus == domain.StepFailed {
		if err := e.recordStepFromEnvelope(ctx, run, position, attemptNumber, step.OperationID, stepStatus, errMsg, input.Direct, envelope); err != nil {
			return false, err
		}
		return e.terminate(ctx, run, domain.RunFailed, errMsg)
	}

	// Step 8: context merge + entity upsert. A version conflict here fails
	// the step itself, even though the provider call that produced
	// envelope.Output succeeded.
	if envelope.Output != nil {
		cumulativeContext.Merge(envelope.Output)
		run.CumulativeContext = cumulativeContext.Raw()

		if def.EntityType != domain.EntityNone {
			if store := e.entities.storeFor(def.EntityType); store != nil {
				if _, err := store.Upsert(ctx, run.OrgID, envelope.Output, entitystore.UpsertOptions{
					LastRunID:       run.RunID,
					LastOperationID: step.OperationID,
				}); err != nil {
					logger.Warn("entity upsert failed after step execution",
						"run_id", run.RunID.String(),
						"position", position,
						"error", err,
					)
					stepStatus = domain.StepFailed
					errMsg = err.Error()
					if recErr := e.recordStepFromEnvelope(ctx, run, position, attemptNumber, step.OperationID, stepStatus, errMsg, input.Direct, envelope); recErr != nil {
						return false, recErr
					}
					return e.terminate(ctx, run, domain.RunFailed, errMsg)
				}
			}
		}
	}

	// The step's outcome is now final; persist the one step_result row for
	// this position/attempt.
	if err := e.recordStepFromEnvelope(ctx, run, position, attemptNumber, step.OperationID, stepStatus, errMsg, input.Direct, envelope); err != nil {
		return false, err
	}

	// Step 9: fan-out.
	if step.FanOut && def.FanOutKey != "" {
		if collection, ok := extractCollection(envelope.Output, def.FanOutKey); ok {
			fanOutEntityType := fanOutEntityType(def)
			items, skipped, err := Expand(collection, fanOutEntityType, run.FanoutDepth+1, e.cfg.MaxFanoutDepth)
			if err != nil {
				return e.terminate(ctx, run, domain.RunFailed, err.Error())
			}

			for _, item := range items {
				childContext := cumulativeContext.Clone()
				childContext.Merge(item.Fields)
				child := &domain.PipelineRun{
					RunID:             uuid.New(),
					OrgID:             run.OrgID,
					SubmissionID:      run.SubmissionID,
					ParentRunID:       &run.RunID,
					BlueprintSnapshot: run.BlueprintSnapshot,
					EntityInput:       item.Fields,
					EntityType:        item.EntityType,
					CumulativeContext: childContext.Raw(),
					CurrentPosition:   position + 1,
					Status:            domain.RunQueued,
					FanoutDepth:       run.FanoutDepth + 1,
				}
				if err := e.repo.CreateChildRun(ctx, child); err != nil {
					return false, fmt.Errorf("create child run: %w", err)
				}
				if err := e.dispatcher.Dispatch(ctx, child.RunID, child.CurrentPosition, 1); err != nil {
					return false, fmt.Errorf("dispatch child run: %w", err)
				}
			}

			if err := e.recordStep(ctx, run, position, attemptNumber, step.OperationID+":fanout", domain.StepSucceeded, input.Direct, map[string]any{
				"children_spawned":             len(items),
				"skipped_duplicates_count":     len(skipped),
				"skipped_duplicate_identifiers": skipped,
			}, "", ""); err != nil {
				return false, err
			}

			return e.terminate(ctx, run, domain.RunSucceeded, "")
		}
	}

	// Step 10: advance.
	return e.advance(ctx, run, position+1)
}

func (e *Engine) advance(ctx context.Context, run *domain.PipelineRun, nextPosition int) (bool, error) {
	if nextPosition > run.BlueprintSnapshot.Len() {
		return e.terminate(ctx, run, domain.RunSucceeded, "")
	}
	run.CurrentPosition = nextPosition
	run.UpdatedAt = time.Now().UTC()
	if err := e.repo.UpdateRun(ctx, run); err != nil {
		return false, fmt.Errorf("persist run advance: %w", err)
	}
	return false, nil
}

func (e *Engine) terminate(ctx context.Context, run *domain.PipelineRun, status domain.RunStatus, errMsg string) (bool, error) {
	if !run.Status.IsTerminal() {
		if err := Transition(run.Status, status); err != nil {
			return false, err
		}
	}
	run.Status = status
	run.ErrorMessage = errMsg
	run.UpdatedAt = time.Now().UTC()
	if err := e.repo.UpdateRun(ctx, run); err != nil {
		return false, fmt.Errorf("persist run termination: %w", err)
	}
	return true, nil
}

func (e *Engine) recordStep(ctx context.Context, run *domain.PipelineRun, position, attemptNumber int, operationID string, status domain.StepStatus, inputPayload, outputPayload map[string]any, errMsg, skipReason string) error {
	return e.repo.SaveStepResult(ctx, domain.StepResult{
		RunID:         run.RunID,
		Position:      position,
		AttemptNumber: attemptNumber,
		OperationID:   operationID,
		Status:        status,
		InputPayload:  inputPayload,
		OutputPayload: outputPayload,
		Error:         errMsg,
		SkipReason:    skipReason,
		CreatedAt:     time.Now().UTC(),
	})
}

func (e *Engine) recordStepFromEnvelope(ctx context.Context, run *domain.PipelineRun, position, attemptNumber int, operationID string, status domain.StepStatus, errMsg string, inputPayload map[string]any, envelope adapter.Envelope) error {
	return e.repo.SaveStepResult(ctx, domain.StepResult{
		RunID:            run.RunID,
		Position:         position,
		AttemptNumber:    attemptNumber,
		OperationID:      operationID,
		Status:           status,
		InputPayload:     inputPayload,
		OutputPayload:    envelope.Output,
		ProviderAttempts: envelope.ProviderAttempts,
		Error:            errMsg,
		CreatedAt:        time.Now().UTC(),
	})
}

func stepStatusFromEnvelope(envelope adapter.Envelope) domain.StepStatus {
	switch envelope.Status {
	case domain.StatusFound:
		return domain.StepSucceeded
	case domain.StatusNotFound:
		return domain.StepNotFound
	case domain.StatusSkipped:
		return domain.StepSkipped
	default:
		return domain.StepFailed
	}
}

func extractCollection(output map[string]any, key string) ([]map[string]any, bool) {
	raw, ok := output[key]
	if !ok {
		return nil, false
	}
	switch list := raw.(type) {
	case []map[string]any:
		return list, len(list) > 0
	case []any:
		out := make([]map[string]any, 0, len(list))
		for _, item := range list {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out, len(out) > 0
	default:
		return nil, false
	}
}

func fanOutEntityType(def *registry.OperationDef) domain.EntityType {
	switch def.FanOutKey {
	case "alumni", "champions":
		return domain.EntityPerson
	case "results":
		return domain.EntityJob
	default:
		return domain.EntityCompany
	}
}
