package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"enrichpipe.io/engine/internal/domain"
)

// RunLister is the read port Summarize needs: every pipeline run belonging
// to one submission.
type RunLister interface {
	ListRunsForSubmission(ctx context.Context, submissionID uuid.UUID) ([]domain.RunStatusRow, error)
}

// Summarize computes the per-state run count for a submission at query
// time (spec.md §4.6's status rollup) — there is no persisted aggregate,
// it is always derived from the current set of pipeline runs.
func Summarize(ctx context.Context, lister RunLister, submissionID uuid.UUID) (domain.BatchSummary, []domain.RunStatusRow, error) {
	rows, err := lister.ListRunsForSubmission(ctx, submissionID)
	if err != nil {
		return domain.BatchSummary{}, nil, fmt.Errorf("list runs for submission: %w", err)
	}

	summary := domain.BatchSummary{Total: len(rows)}
	for _, row := range rows {
		switch row.Status {
		case domain.RunSucceeded, domain.RunSkipped:
			summary.Completed++
		case domain.RunFailed:
			summary.Failed++
		case domain.RunRunning:
			summary.Running++
		case domain.RunQueued:
			summary.Pending++
		}
	}

	return summary, rows, nil
}

// IsSubmissionComplete reports whether every run in summary is terminal —
// the batch status is "completed" iff this holds (spec.md §4.6).
func IsSubmissionComplete(summary domain.BatchSummary) bool {
	return summary.Completed+summary.Failed == summary.Total
}
