package repositories

import (
	"context"

	"github.com/cliplab/backend/internal/models"
)

// JobRepository exposes data access for background jobs.
type JobRepository interface {
	Create(ctx context.Context, job models.Job) error
	Find(ctx context.Context, id string) (models.Job, error)
	// UpdateProgress records a milestone message for a running job. Updates
	// against a job already in a terminal state are ignored.
	UpdateProgress(ctx context.Context, id, status string, current, total int) error
	// MarkSuccess transitions the job to SUCCESS with its result payload.
	// The transition is applied at most once; later calls are no-ops.
	MarkSuccess(ctx context.Context, id string, result []byte, resultURL string) error
	// MarkFailure transitions the job to FAILURE with a user-facing error
	// description. The transition is applied at most once.
	MarkFailure(ctx context.Context, id, errMsg string) error
	// ClaimBilling sets the job's billed-at marker if and only if it has
	// never been set. It reports true exactly once per job, no matter how
	// many pollers race on the claim.
	ClaimBilling(ctx context.Context, id string) (bool, error)
}
