package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cliplab/backend/internal/logging"
	"github.com/cliplab/backend/internal/media"
	"github.com/cliplab/backend/internal/models"
)

// VideoHandler serves synchronous, cache-backed video metadata previews so
// clients can show a title and thumbnail before submitting a job.
type VideoHandler struct {
	Users    UserStore
	Sessions SessionManager
	Metadata VideoMetadataProvider
}

type videoPreviewResponse struct {
	Video models.VideoMetadata `json:"video"`
}

// Preview handles GET /api/v1/videos/preview requests.
func (h VideoHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Sessions == nil || h.Metadata == nil {
		logger.Error("video preview dependencies unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "video services unavailable"})
		return
	}

	if _, ok := authenticateRequest(w, r, h.Sessions, h.Users); !ok {
		return
	}

	rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if rawURL == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "url query parameter is required"})
		return
	}

	url, err := media.NormalizeWatchURL(rawURL)
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "unrecognized video reference"})
		return
	}

	metadata, err := h.Metadata.Lookup(ctx, url)
	if err != nil {
		if errors.Is(err, media.ErrSourceUnavailable) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "the video is private or deleted"})
			return
		}
		logger.Error("video metadata lookup", "error", err, "url", url)
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "failed to look up video"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, videoPreviewResponse{Video: metadata})
}
