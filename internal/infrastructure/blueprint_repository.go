package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"enrichpipe.io/engine/internal/domain"
	apperrors "enrichpipe.io/engine/internal/pkg/errors"
)

// BlueprintRepository is the concrete pgx-backed implementation of
// submission.BlueprintRepository.
type BlueprintRepository struct {
	pool *pgxpool.Pool
}

// NewBlueprintRepository builds a BlueprintRepository over the shared pool.
func NewBlueprintRepository(pool *pgxpool.Pool) *BlueprintRepository {
	return &BlueprintRepository{pool: pool}
}

// GetActiveBlueprint loads a blueprint and its ordered steps by id, scoped
// to the requesting org.
func (r *BlueprintRepository) GetActiveBlueprint(ctx context.Context, orgID, blueprintID string) (domain.Blueprint, error) {
	var bp domain.Blueprint
	row := r.pool.QueryRow(ctx, `
		SELECT blueprint_id, org_id, name, is_active, created_at, updated_at
		FROM blueprints WHERE org_id = $1 AND blueprint_id = $2`, orgID, blueprintID)
	if err := row.Scan(&bp.BlueprintID, &bp.OrgID, &bp.Name, &bp.IsActive, &bp.CreatedAt, &bp.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return domain.Blueprint{}, apperrors.ErrBlueprintNotFoundf(blueprintID)
		}
		return domain.Blueprint{}, fmt.Errorf("load blueprint %s: %w", blueprintID, err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT position, operation_id, step_config, fan_out, is_enabled, skip_if_fresh
		FROM blueprint_steps WHERE blueprint_id = $1 ORDER BY position`, blueprintID)
	if err != nil {
		return domain.Blueprint{}, fmt.Errorf("load blueprint steps for %s: %w", blueprintID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var step domain.BlueprintStep
		var cfgBytes []byte
		var skipBytes []byte
		if err := rows.Scan(&step.Position, &step.OperationID, &cfgBytes, &step.FanOut, &step.IsEnabled, &skipBytes); err != nil {
			return domain.Blueprint{}, fmt.Errorf("scan blueprint step: %w", err)
		}
		if len(cfgBytes) > 0 {
			if err := json.Unmarshal(cfgBytes, &step.StepConfig); err != nil {
				return domain.Blueprint{}, fmt.Errorf("unmarshal step_config at position %d: %w", step.Position, err)
			}
		}
		if len(skipBytes) > 0 {
			var skip domain.SkipIfFresh
			if err := json.Unmarshal(skipBytes, &skip); err != nil {
				return domain.Blueprint{}, fmt.Errorf("unmarshal skip_if_fresh at position %d: %w", step.Position, err)
			}
			step.SkipIfFresh = &skip
		}
		bp.Steps = append(bp.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return domain.Blueprint{}, fmt.Errorf("iterate blueprint steps for %s: %w", blueprintID, err)
	}

	return bp, nil
}
