package models

import "time"

// User represents an account within the ClipLab platform.
type User struct {
	ID        string
	Email     string
	Password  string
	Credits   int
	Admin     bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JobState describes where a background job sits in its lifecycle.
type JobState string

const (
	JobStatePending  JobState = "PENDING"
	JobStateProgress JobState = "PROGRESS"
	JobStateSuccess  JobState = "SUCCESS"
	JobStateFailure  JobState = "FAILURE"
)

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	return s == JobStateSuccess || s == JobStateFailure
}

// Job tracks one unit of asynchronous background work.
type Job struct {
	ID        string
	Operation string
	OwnerID   string
	State     JobState
	// Payload holds the JSON-encoded operation input captured at submission.
	Payload []byte
	// Status carries the latest human-readable progress message while the
	// job is in PROGRESS.
	Status  string
	Current int
	Total   int
	// Result holds the JSON-encoded result payload once the job reaches
	// SUCCESS; Error holds the failure description once it reaches FAILURE.
	Result []byte
	Error  string
	// ResultURL points at the stored artifact for the result, when the
	// artifact store is configured.
	ResultURL string
	// BilledAt records the single billing attempt made for this job. It is
	// set at most once, by the first poll that observes SUCCESS.
	BilledAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VideoMetadata captures the details yt-dlp reports for a single video.
// Counts are pointers because YouTube hides them on some videos.
type VideoMetadata struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	Uploader     string `json:"uploader"`
	UploadDate   string `json:"upload_date,omitempty"`
	ViewCount    *int64 `json:"view_count"`
	LikeCount    *int64 `json:"like_count"`
	CommentCount *int64 `json:"comment_count"`
	ThumbnailURL string `json:"thumbnail_url"`
	Duration     int64  `json:"duration"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
