package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cliplab/backend/internal/db"
	"github.com/cliplab/backend/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, email, password_hash, credits, is_admin, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, user.ID, user.Email, user.Password, user.Credits, user.Admin, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, email, password_hash, credits, is_admin, created_at, updated_at
        FROM users
        WHERE email = $1
    `, email)

	return scanUser(row, "select user by email")
}

// FindByID fetches a user by their identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, email, password_hash, credits, is_admin, created_at, updated_at
        FROM users
        WHERE id = $1
    `, id)

	return scanUser(row, "select user by id")
}

// DebitCredits performs a single atomic compare-and-decrement against the
// user's balance. The WHERE clause keeps the balance from ever going negative
// under concurrent debits.
func (r *PostgresUserRepository) DebitCredits(ctx context.Context, userID string, cost int) (bool, error) {
	if cost <= 0 {
		return true, nil
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET credits = credits - $2, updated_at = NOW()
        WHERE id = $1 AND credits >= $2
    `, userID, cost)
	if err != nil {
		return false, fmt.Errorf("debit credits: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func scanUser(row pgx.Row, op string) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &user.Credits, &user.Admin, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// PostgresJobRepository provides PostgreSQL-backed persistence for jobs.
type PostgresJobRepository struct {
	pool db.Pool
}

// NewPostgresJobRepository constructs a job repository backed by PostgreSQL.
func NewPostgresJobRepository(pool db.Pool) *PostgresJobRepository {
	return &PostgresJobRepository{pool: pool}
}

// Create stores a new job record in its initial state.
func (r *PostgresJobRepository) Create(ctx context.Context, job models.Job) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO jobs (id, operation, owner_id, state, payload, status, current_step, total_steps, result, error, result_url, billed_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
    `, job.ID, job.Operation, job.OwnerID, job.State, job.Payload, job.Status, job.Current, job.Total, job.Result, job.Error, job.ResultURL, job.BilledAt, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert job: %w", err)
	}

	return nil
}

// Find loads a job by its identifier.
func (r *PostgresJobRepository) Find(ctx context.Context, id string) (models.Job, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Job{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, operation, owner_id, state, payload, status, current_step, total_steps, result, error, result_url, billed_at, created_at, updated_at
        FROM jobs
        WHERE id = $1
    `, id)

	var (
		job      models.Job
		billedAt sql.NullTime
	)
	if err := row.Scan(&job.ID, &job.Operation, &job.OwnerID, &job.State, &job.Payload, &job.Status, &job.Current, &job.Total, &job.Result, &job.Error, &job.ResultURL, &billedAt, &job.CreatedAt, &job.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Job{}, ErrNotFound
		}
		return models.Job{}, fmt.Errorf("select job: %w", err)
	}

	if billedAt.Valid {
		t := billedAt.Time.UTC()
		job.BilledAt = &t
	}

	return job, nil
}

// UpdateProgress records the latest milestone for a running job. Jobs already
// in a terminal state are left untouched so terminal payloads stay immutable.
func (r *PostgresJobRepository) UpdateProgress(ctx context.Context, id, status string, current, total int) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        UPDATE jobs
        SET state = $2, status = $3, current_step = $4, total_steps = $5, updated_at = NOW()
        WHERE id = $1 AND state NOT IN ('SUCCESS', 'FAILURE')
    `, id, models.JobStateProgress, status, current, total)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}

	return nil
}

// MarkSuccess transitions the job into SUCCESS with its result payload.
func (r *PostgresJobRepository) MarkSuccess(ctx context.Context, id string, result []byte, resultURL string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE jobs
        SET state = $2, result = $3, result_url = $4, status = '', updated_at = NOW()
        WHERE id = $1 AND state NOT IN ('SUCCESS', 'FAILURE')
    `, id, models.JobStateSuccess, result, resultURL)
	if err != nil {
		return fmt.Errorf("mark job success: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkFailure transitions the job into FAILURE with an error description.
func (r *PostgresJobRepository) MarkFailure(ctx context.Context, id, errMsg string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE jobs
        SET state = $2, error = $3, status = '', updated_at = NOW()
        WHERE id = $1 AND state NOT IN ('SUCCESS', 'FAILURE')
    `, id, models.JobStateFailure, errMsg)
	if err != nil {
		return fmt.Errorf("mark job failure: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ClaimBilling durably marks the job as billed. The conditional update is the
// correctness guard for at-most-once billing: exactly one caller observes a
// row change, regardless of how many pollers race on the SUCCESS transition.
func (r *PostgresJobRepository) ClaimBilling(ctx context.Context, id string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE jobs
        SET billed_at = NOW(), updated_at = NOW()
        WHERE id = $1 AND billed_at IS NULL
    `, id)
	if err != nil {
		return false, fmt.Errorf("claim job billing: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ JobRepository = (*PostgresJobRepository)(nil)
