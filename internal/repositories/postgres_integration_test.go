package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cliplab/backend/internal/auth"
	"github.com/cliplab/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)

	user := models.User{
		ID:        uuid.NewString(),
		Email:     "alice@example.com",
		Password:  "secret-hash",
		Credits:   10,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	dup := models.User{
		ID:        uuid.NewString(),
		Email:     user.Email,
		Password:  "another-hash",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict when creating duplicate email, got %v", err)
	}

	fetched, err := repo.FindByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}

	if fetched.ID != user.ID || fetched.Email != user.Email || fetched.Password != user.Password {
		t.Fatalf("unexpected user fetched: %+v", fetched)
	}
	if fetched.Credits != 10 || fetched.Admin {
		t.Fatalf("unexpected account fields: %+v", fetched)
	}

	byID, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if byID.Email != user.Email {
		t.Fatalf("unexpected user by id: %+v", byID)
	}

	if _, err := repo.FindByID(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestPostgresUserRepository_DebitCredits(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "debit@example.com", 5)

	debited, err := repo.DebitCredits(ctx, user.ID, 3)
	if err != nil {
		t.Fatalf("debit credits: %v", err)
	}
	if !debited {
		t.Fatal("expected debit to succeed")
	}

	fetched, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if fetched.Credits != 2 {
		t.Fatalf("expected 2 credits left got %d", fetched.Credits)
	}

	// Balance below cost: the conditional update must refuse rather than go
	// negative.
	debited, err = repo.DebitCredits(ctx, user.ID, 3)
	if err != nil {
		t.Fatalf("debit credits: %v", err)
	}
	if debited {
		t.Fatal("expected debit to be refused")
	}

	fetched, err = repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if fetched.Credits != 2 {
		t.Fatalf("refused debit must not change balance, got %d", fetched.Credits)
	}

	if debited, err := repo.DebitCredits(ctx, user.ID, 0); err != nil || !debited {
		t.Fatalf("zero cost should be a no-op success, got %v/%v", debited, err)
	}
}

func TestPostgresJobRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, userRepo, "owner@example.com", 10)

	repo := NewPostgresJobRepository(testPool)

	job := models.Job{
		ID:        uuid.NewString(),
		Operation: "video.extract",
		OwnerID:   owner.ID,
		State:     models.JobStatePending,
		Payload:   []byte(`{"url":"https://youtu.be/dQw4w9WgXcQ"}`),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := repo.Create(ctx, job); err != nil {
		t.Fatalf("create job: %v", err)
	}

	orphan := job
	orphan.ID = uuid.NewString()
	orphan.OwnerID = uuid.NewString()
	if err := repo.Create(ctx, orphan); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown owner, got %v", err)
	}

	fetched, err := repo.Find(ctx, job.ID)
	if err != nil {
		t.Fatalf("find job: %v", err)
	}
	if fetched.State != models.JobStatePending || string(fetched.Payload) != string(job.Payload) {
		t.Fatalf("unexpected job fetched: %+v", fetched)
	}
	if fetched.BilledAt != nil {
		t.Fatalf("new job must not be billed: %+v", fetched.BilledAt)
	}

	if err := repo.UpdateProgress(ctx, job.ID, "extracting metadata and transcript", 1, 5); err != nil {
		t.Fatalf("update progress: %v", err)
	}

	fetched, err = repo.Find(ctx, job.ID)
	if err != nil {
		t.Fatalf("find job: %v", err)
	}
	if fetched.State != models.JobStateProgress || fetched.Status != "extracting metadata and transcript" {
		t.Fatalf("unexpected progress state: %+v", fetched)
	}
	if fetched.Current != 1 || fetched.Total != 5 {
		t.Fatalf("unexpected milestone counters: %d/%d", fetched.Current, fetched.Total)
	}

	if err := repo.MarkSuccess(ctx, job.ID, []byte(`{"ok":true}`), "https://cdn.example.com/r.json"); err != nil {
		t.Fatalf("mark success: %v", err)
	}

	// Terminal payloads are immutable.
	if err := repo.UpdateProgress(ctx, job.ID, "late report", 9, 9); err != nil {
		t.Fatalf("update progress after success: %v", err)
	}
	if err := repo.MarkFailure(ctx, job.ID, "too late"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound failing a finished job, got %v", err)
	}

	fetched, err = repo.Find(ctx, job.ID)
	if err != nil {
		t.Fatalf("find job: %v", err)
	}
	if fetched.State != models.JobStateSuccess || string(fetched.Result) != `{"ok":true}` {
		t.Fatalf("unexpected terminal job: %+v", fetched)
	}
	if fetched.Status != "" || fetched.ResultURL != "https://cdn.example.com/r.json" {
		t.Fatalf("unexpected terminal fields: %+v", fetched)
	}
}

func TestPostgresJobRepository_MarkFailure(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, userRepo, "owner@example.com", 10)

	repo := NewPostgresJobRepository(testPool)
	job := models.Job{
		ID:        uuid.NewString(),
		Operation: "script.analyze",
		OwnerID:   owner.ID,
		State:     models.JobStatePending,
		Payload:   []byte(`{}`),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, job); err != nil {
		t.Fatalf("create job: %v", err)
	}

	if err := repo.MarkFailure(ctx, job.ID, "the video is private or deleted"); err != nil {
		t.Fatalf("mark failure: %v", err)
	}

	fetched, err := repo.Find(ctx, job.ID)
	if err != nil {
		t.Fatalf("find job: %v", err)
	}
	if fetched.State != models.JobStateFailure || fetched.Error != "the video is private or deleted" {
		t.Fatalf("unexpected failed job: %+v", fetched)
	}
}

func TestPostgresJobRepository_ClaimBilling(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, userRepo, "owner@example.com", 10)

	repo := NewPostgresJobRepository(testPool)
	job := models.Job{
		ID:        uuid.NewString(),
		Operation: "video.extract",
		OwnerID:   owner.ID,
		State:     models.JobStatePending,
		Payload:   []byte(`{}`),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, job); err != nil {
		t.Fatalf("create job: %v", err)
	}

	claimed, err := repo.ClaimBilling(ctx, job.ID)
	if err != nil {
		t.Fatalf("claim billing: %v", err)
	}
	if !claimed {
		t.Fatal("expected first claim to win")
	}

	claimed, err = repo.ClaimBilling(ctx, job.ID)
	if err != nil {
		t.Fatalf("claim billing: %v", err)
	}
	if claimed {
		t.Fatal("expected second claim to lose")
	}

	fetched, err := repo.Find(ctx, job.ID)
	if err != nil {
		t.Fatalf("find job: %v", err)
	}
	if fetched.BilledAt == nil {
		t.Fatal("expected billed_at to be set")
	}
}

func TestPostgresSessionStore_SaveFindAndDelete(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, userRepo, "owner@example.com", 10)

	store := NewPostgresSessionStore(testPool)
	expires := time.Now().UTC().Add(24 * time.Hour)
	session := auth.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Kind:      auth.KindRefresh,
		ExpiresAt: expires,
	}

	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("save session: %v", err)
	}

	loaded, err := store.Find(ctx, session.Token)
	if err != nil {
		t.Fatalf("find session: %v", err)
	}

	if loaded.UserID != session.UserID || loaded.Kind != auth.KindRefresh || !timesClose(loaded.ExpiresAt, expires.UTC(), time.Millisecond) {
		t.Fatalf("unexpected session loaded: %+v", loaded)
	}

	updated := session
	updated.ExpiresAt = expires.Add(48 * time.Hour)
	if err := store.Save(ctx, updated); err != nil {
		t.Fatalf("update session: %v", err)
	}

	loaded, err = store.Find(ctx, session.Token)
	if err != nil {
		t.Fatalf("find session after update: %v", err)
	}

	if !timesClose(loaded.ExpiresAt, updated.ExpiresAt.UTC(), time.Millisecond) {
		t.Fatalf("expected updated expiry, got %v", loaded.ExpiresAt)
	}

	if err := store.Delete(ctx, session.Token); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	if _, err := store.Find(ctx, session.Token); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}

	if err := store.Delete(ctx, session.Token); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound deleting twice, got %v", err)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE jobs, sessions, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, email string, credits int) models.User {
	t.Helper()
	user := models.User{
		ID:        uuid.NewString(),
		Email:     email,
		Password:  "password-hash",
		Credits:   credits,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func timesClose(a, b time.Time, delta time.Duration) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= delta
}
