package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliplab/backend/internal/auth"
	"github.com/cliplab/backend/internal/billing"
	"github.com/cliplab/backend/internal/jobs"
	"github.com/cliplab/backend/internal/logging"
	"github.com/cliplab/backend/internal/models"
	"github.com/cliplab/backend/internal/repositories"
)

// JobHandler implements the asynchronous job submission and polling endpoints.
type JobHandler struct {
	Users    UserStore
	Sessions SessionManager
	Jobs     JobStore
	Queue    JobQueue
	Billing  Biller
	// Limiter guards submission against floods. Polling is unguarded.
	Limiter RateLimiter
	NowFunc func() time.Time
}

type submitJobRequest struct {
	Operation string          `json:"operation"`
	Input     json.RawMessage `json:"input"`
}

type submitJobResponse struct {
	JobID string `json:"job_id"`
	State string `json:"state"`
}

type jobStatusResponse struct {
	JobID          string          `json:"job_id"`
	Operation      string          `json:"operation"`
	State          string          `json:"state"`
	Status         string          `json:"status,omitempty"`
	Current        int             `json:"current,omitempty"`
	Total          int             `json:"total,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	ResultURL      string          `json:"result_url,omitempty"`
	Error          string          `json:"error,omitempty"`
	BillingWarning string          `json:"billing_warning,omitempty"`
}

// Submit handles POST /api/v1/jobs requests.
func (h JobHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "jobs") {
		logger.Warn("job submission rate limited", "ip", clientIP(r))
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests, slow down"})
		return
	}

	if h.Users == nil || h.Sessions == nil || h.Jobs == nil || h.Queue == nil || h.Billing == nil {
		logger.Error("job submission dependencies unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "job services unavailable"})
		return
	}

	user, ok := authenticateRequest(w, r, h.Sessions, h.Users)
	if !ok {
		return
	}

	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid job payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Operation = strings.TrimSpace(req.Operation)
	if req.Operation == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "operation is required"})
		return
	}

	if !h.Queue.Supports(req.Operation) {
		logger.Warn("unsupported operation", "operation", req.Operation)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "unknown operation"})
		return
	}

	if err := h.Billing.Precheck(user, req.Operation); err != nil {
		if errors.Is(err, billing.ErrInsufficientCredits) {
			logger.Warn("submission rejected for credits", "userId", user.ID, "operation", req.Operation)
			respondJSON(ctx, w, http.StatusPaymentRequired, map[string]string{"error": "insufficient credits"})
			return
		}
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "unknown operation"})
		return
	}

	payload := req.Input
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	now := h.now()
	job := models.Job{
		ID:        uuid.NewString(),
		Operation: req.Operation,
		OwnerID:   user.ID,
		State:     models.JobStatePending,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Jobs.Create(ctx, job); err != nil {
		logger.Error("create job", "error", err, "operation", req.Operation)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create job"})
		return
	}

	if err := h.Queue.Enqueue(ctx, job); err != nil {
		if errors.Is(err, jobs.ErrQueueBusy) {
			logger.Warn("job queue full", "jobId", job.ID)
			respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "server is busy, try again later"})
			return
		}
		logger.Error("enqueue job", "error", err, "jobId", job.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to schedule job"})
		return
	}

	respondJSON(ctx, w, http.StatusAccepted, submitJobResponse{
		JobID: job.ID,
		State: string(models.JobStatePending),
	})
}

// Status handles GET /api/v1/jobs/{id} requests.
func (h JobHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Sessions == nil || h.Jobs == nil || h.Billing == nil {
		logger.Error("job polling dependencies unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "job services unavailable"})
		return
	}

	user, ok := authenticateRequest(w, r, h.Sessions, h.Users)
	if !ok {
		return
	}

	jobID := r.PathValue("id")
	if jobID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "job id is required"})
		return
	}

	job, err := h.Jobs.Find(ctx, jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "job not found"})
			return
		}
		logger.Error("find job", "error", err, "jobId", jobID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load job"})
		return
	}

	// Jobs are private to their owner. Admins may inspect any job.
	if job.OwnerID != user.ID && !user.Admin {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}

	warning := h.Billing.SettleOnSuccess(ctx, job, user)

	resp := jobStatusResponse{
		JobID:          job.ID,
		Operation:      job.Operation,
		State:          string(job.State),
		BillingWarning: warning,
	}

	switch job.State {
	case models.JobStateProgress:
		resp.Status = job.Status
		resp.Current = job.Current
		resp.Total = job.Total
	case models.JobStateSuccess:
		resp.Result = json.RawMessage(job.Result)
		resp.ResultURL = job.ResultURL
	case models.JobStateFailure:
		resp.Error = job.Error
	}

	respondJSON(ctx, w, http.StatusOK, resp)
}

// authenticateRequest resolves the bearer token to its user, writing the
// error response itself when the request is not authenticated.
func authenticateRequest(w http.ResponseWriter, r *http.Request, sessions SessionManager, users UserStore) (models.User, bool) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	token := bearerToken(r)
	if token == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
		return models.User{}, false
	}

	userID, err := sessions.Authenticate(ctx, token)
	if err != nil {
		if !errors.Is(err, auth.ErrSessionNotFound) && !errors.Is(err, auth.ErrAccessTokenExpired) {
			logger.Error("authenticate token", "error", err)
		}
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
		return models.User{}, false
	}

	user, err := users.FindByID(ctx, userID)
	if err != nil {
		logger.Error("load authenticated user", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
		return models.User{}, false
	}

	return user, true
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func (h JobHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
