package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Limiter: deps.Limiter, SignupCredits: deps.SignupCredits}
	jobs := JobHandler{Users: deps.Users, Sessions: deps.Sessions, Jobs: deps.Jobs, Queue: deps.Queue, Billing: deps.Billing, Limiter: deps.Limiter}
	videos := VideoHandler{Users: deps.Users, Sessions: deps.Sessions, Metadata: deps.Metadata}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/auth/login", auth.Login)
	mux.HandleFunc("/api/v1/auth/signup", auth.SignUp)
	mux.HandleFunc("/api/v1/auth/refresh", auth.Refresh)
	mux.HandleFunc("/api/v1/auth/password-reset", auth.RequestPasswordReset)
	mux.HandleFunc("/api/v1/jobs", jobs.Submit)
	mux.HandleFunc("/api/v1/jobs/{id}", jobs.Status)
	mux.HandleFunc("/api/v1/videos/preview", videos.Preview)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users    UserStore
	Sessions SessionManager
	Jobs     JobStore
	Queue    JobQueue
	Billing  Biller
	Metadata VideoMetadataProvider
	Limiter  RateLimiter
	// SignupCredits is the free credit balance granted to new accounts.
	SignupCredits int
}
