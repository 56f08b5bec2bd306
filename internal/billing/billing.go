package billing

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cliplab/backend/internal/jobs"
	"github.com/cliplab/backend/internal/models"
	"github.com/cliplab/backend/internal/repositories"
)

// ErrInsufficientCredits is returned by the submission pre-check when the
// user's balance cannot cover the operation.
var ErrInsufficientCredits = errors.New("billing: insufficient credits")

// ErrUnknownOperation is returned for operations without a price.
var ErrUnknownOperation = errors.New("billing: unknown operation")

// costs prices every operation in credits.
var costs = map[string]int{
	jobs.OpVideoExtract:      2,
	jobs.OpScriptAnalyze:     2,
	jobs.OpScriptRewrite:     3,
	jobs.OpScriptRewriteSafe: 5,
	jobs.OpScriptPredict:     1,
	jobs.OpScriptPlan:        2,
	jobs.OpChannelAnalyze:    10,
}

// CostOf returns the credit price of an operation.
func CostOf(operation string) (int, bool) {
	cost, ok := costs[operation]
	return cost, ok
}

// Service enforces the credit policy: a balance pre-check at submission and
// an at-most-once debit when a finished job is first observed.
type Service struct {
	users  repositories.UserRepository
	jobsRp repositories.JobRepository
	logger *slog.Logger
}

// NewService wires the billing service.
func NewService(users repositories.UserRepository, jobsRepo repositories.JobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, jobsRp: jobsRepo, logger: logger}
}

// Precheck rejects a submission the user cannot afford. Admins submit for
// free and are never checked.
func (s *Service) Precheck(user models.User, operation string) error {
	cost, ok := CostOf(operation)
	if !ok {
		return ErrUnknownOperation
	}
	if user.Admin {
		return nil
	}
	if user.Credits < cost {
		return ErrInsufficientCredits
	}
	return nil
}

// SettleOnSuccess charges for a successful job exactly once, at poll time.
// The first poller to observe SUCCESS wins the durable billing claim and
// triggers the debit; everyone else gets a free pass. A balance that dropped
// below the cost since submission is forgiven (fail-open) and reported back
// as a warning for the response.
func (s *Service) SettleOnSuccess(ctx context.Context, job models.Job, owner models.User) string {
	if job.State != models.JobStateSuccess || job.BilledAt != nil {
		return ""
	}

	cost, ok := CostOf(job.Operation)
	if !ok || cost == 0 || owner.Admin {
		return ""
	}

	claimed, err := s.jobsRp.ClaimBilling(ctx, job.ID)
	if err != nil {
		// Fail open: a billing hiccup must never block result delivery.
		s.logger.Error("claim job billing", "jobId", job.ID, "error", err)
		return ""
	}
	if !claimed {
		return ""
	}

	debited, err := s.users.DebitCredits(ctx, owner.ID, cost)
	if err != nil {
		s.logger.Error("debit credits", "jobId", job.ID, "userId", owner.ID, "cost", cost, "error", err)
		return ""
	}
	if !debited {
		s.logger.Warn("credits exhausted before debit", "jobId", job.ID, "userId", owner.ID, "cost", cost)
		return "credit balance was too low to charge for this job"
	}

	return ""
}
