package handlers

import (
	"context"

	"github.com/cliplab/backend/internal/models"
)

// UserStore captures the persistence operations required by the HTTP handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
}

// SessionManager issues, refreshes, and validates authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Authenticate(ctx context.Context, accessToken string) (string, error)
}

// JobStore captures persistence for background jobs.
type JobStore interface {
	Create(ctx context.Context, job models.Job) error
	Find(ctx context.Context, id string) (models.Job, error)
}

// JobQueue accepts jobs for asynchronous execution.
type JobQueue interface {
	Supports(operation string) bool
	Enqueue(ctx context.Context, job models.Job) error
}

// VideoMetadataProvider resolves video details for synchronous previews.
type VideoMetadataProvider interface {
	Lookup(ctx context.Context, url string) (models.VideoMetadata, error)
}

// Biller enforces the credit policy around job submission and polling.
type Biller interface {
	Precheck(user models.User, operation string) error
	SettleOnSuccess(ctx context.Context, job models.Job, owner models.User) string
}
