package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cliplab/backend/internal/extract"
	"github.com/cliplab/backend/internal/models"
)

type progressRecord struct {
	status  string
	current int
	total   int
}

type recordingJobRepo struct {
	mu       sync.Mutex
	progress []progressRecord
	result   []byte
	url      string
	failure  string
	terminal chan struct{}
	once     sync.Once
}

func newRecordingJobRepo() *recordingJobRepo {
	return &recordingJobRepo{terminal: make(chan struct{})}
}

func (r *recordingJobRepo) signalTerminal() {
	r.once.Do(func() { close(r.terminal) })
}

func (r *recordingJobRepo) Create(context.Context, models.Job) error { return nil }

func (r *recordingJobRepo) Find(context.Context, string) (models.Job, error) {
	return models.Job{}, nil
}

func (r *recordingJobRepo) UpdateProgress(_ context.Context, _ string, status string, current, total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, progressRecord{status: status, current: current, total: total})
	return nil
}

func (r *recordingJobRepo) MarkSuccess(_ context.Context, _ string, result []byte, resultURL string) error {
	r.mu.Lock()
	r.result = result
	r.url = resultURL
	r.mu.Unlock()
	r.signalTerminal()
	return nil
}

func (r *recordingJobRepo) MarkFailure(_ context.Context, _ string, errMsg string) error {
	r.mu.Lock()
	r.failure = errMsg
	r.mu.Unlock()
	r.signalTerminal()
	return nil
}

func (r *recordingJobRepo) ClaimBilling(context.Context, string) (bool, error) { return false, nil }

type stubArtifactStore struct {
	url string
	err error
}

func (s *stubArtifactStore) StoreResult(context.Context, string, []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

func waitTerminal(t *testing.T, repo *recordingJobRepo) {
	t.Helper()
	select {
	case <-repo.terminal:
	case <-time.After(5 * time.Second):
		t.Fatal("job never reached a terminal state")
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRunnerExecutesJob(t *testing.T) {
	repo := newRecordingJobRepo()
	store := &stubArtifactStore{url: "https://cdn.example.com/jobs/j1.json"}

	handlers := map[string]Handler{
		"test.op": func(_ context.Context, _ models.Job, report ProgressFunc) (any, error) {
			report("step one", 1, 2)
			report("step two", 2, 2)
			return map[string]string{"answer": "42"}, nil
		},
	}

	runner := NewRunner(repo, store, handlers, RunnerConfig{QueueSize: 4, Workers: 1}, discardLogger())
	defer runner.Shutdown(context.Background())

	if err := runner.Enqueue(context.Background(), models.Job{ID: "j1", Operation: "test.op"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitTerminal(t, repo)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.progress) != 2 || repo.progress[0].status != "step one" || repo.progress[1].current != 2 {
		t.Fatalf("unexpected progress: %+v", repo.progress)
	}
	if string(repo.result) != `{"answer":"42"}` {
		t.Fatalf("unexpected result %s", repo.result)
	}
	if repo.url != "https://cdn.example.com/jobs/j1.json" {
		t.Fatalf("unexpected result url %q", repo.url)
	}
}

func TestRunnerRecordsFailureMessage(t *testing.T) {
	repo := newRecordingJobRepo()

	handlers := map[string]Handler{
		"test.op": func(context.Context, models.Job, ProgressFunc) (any, error) {
			return nil, &extract.Error{Kind: extract.KindSourceUnavailable, Message: "video is unavailable or private"}
		},
	}

	runner := NewRunner(repo, nil, handlers, RunnerConfig{}, discardLogger())
	defer runner.Shutdown(context.Background())

	if err := runner.Enqueue(context.Background(), models.Job{ID: "j1", Operation: "test.op"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitTerminal(t, repo)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.failure != "video is unavailable or private" {
		t.Fatalf("unexpected failure message %q", repo.failure)
	}
}

func TestRunnerRecoversFromPanic(t *testing.T) {
	repo := newRecordingJobRepo()

	handlers := map[string]Handler{
		"test.op": func(context.Context, models.Job, ProgressFunc) (any, error) {
			panic("boom")
		},
	}

	runner := NewRunner(repo, nil, handlers, RunnerConfig{}, discardLogger())
	defer runner.Shutdown(context.Background())

	if err := runner.Enqueue(context.Background(), models.Job{ID: "j1", Operation: "test.op"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitTerminal(t, repo)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.failure == "" {
		t.Fatal("expected panic recorded as failure")
	}
}

func TestRunnerArtifactStoreFailureIsNotFatal(t *testing.T) {
	repo := newRecordingJobRepo()
	store := &stubArtifactStore{err: errors.New("bucket gone")}

	handlers := map[string]Handler{
		"test.op": func(context.Context, models.Job, ProgressFunc) (any, error) {
			return map[string]string{"ok": "yes"}, nil
		},
	}

	runner := NewRunner(repo, store, handlers, RunnerConfig{}, discardLogger())
	defer runner.Shutdown(context.Background())

	if err := runner.Enqueue(context.Background(), models.Job{ID: "j1", Operation: "test.op"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitTerminal(t, repo)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.result == nil {
		t.Fatal("expected success despite artifact failure")
	}
	if repo.url != "" {
		t.Fatalf("expected empty result url got %q", repo.url)
	}
}

func TestRunnerEnqueueUnknownOperation(t *testing.T) {
	runner := NewRunner(newRecordingJobRepo(), nil, map[string]Handler{}, RunnerConfig{}, discardLogger())
	defer runner.Shutdown(context.Background())

	err := runner.Enqueue(context.Background(), models.Job{ID: "j1", Operation: "nope"})
	if !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("expected unknown operation got %v", err)
	}
}

func TestRunnerEnqueueQueueBusy(t *testing.T) {
	release := make(chan struct{})
	handlers := map[string]Handler{
		"test.op": func(context.Context, models.Job, ProgressFunc) (any, error) {
			<-release
			return nil, errors.New("done")
		},
	}

	repo := newRecordingJobRepo()
	runner := NewRunner(repo, nil, handlers, RunnerConfig{QueueSize: 1, Workers: 1}, discardLogger())
	defer func() {
		close(release)
		runner.Shutdown(context.Background())
	}()

	// First job occupies the worker, second fills the queue. Either order,
	// the third enqueue has nowhere to go.
	busy := false
	for i := 0; i < 3; i++ {
		if err := runner.Enqueue(context.Background(), models.Job{ID: "j", Operation: "test.op"}); errors.Is(err, ErrQueueBusy) {
			busy = true
		}
	}
	if !busy {
		t.Fatal("expected ErrQueueBusy")
	}
}

func TestRunnerEnqueueAfterShutdown(t *testing.T) {
	runner := NewRunner(newRecordingJobRepo(), nil, map[string]Handler{
		"test.op": func(context.Context, models.Job, ProgressFunc) (any, error) { return nil, nil },
	}, RunnerConfig{}, discardLogger())

	if err := runner.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if err := runner.Enqueue(context.Background(), models.Job{ID: "j1", Operation: "test.op"}); err == nil {
		t.Fatal("expected error after shutdown")
	}
}
