package main

import (
	"fmt"
	"strings"

	"github.com/soundrights/soundrights/pkg/models"
)

// SimilarityRequest is the request body for POST /api/similarity
type SimilarityRequest struct {
	OwnerID  string                `json:"owner_id" binding:"required"`
	Features *models.AudioFeatures `json:"features" binding:"required"`
}

// Validate checks if the request is valid
func (r *SimilarityRequest) Validate() error {
	if strings.TrimSpace(r.OwnerID) == "" {
		return fmt.Errorf("owner_id is required")
	}
	if r.Features == nil {
		return fmt.Errorf("features are required")
	}
	if err := r.Features.Validate(); err != nil {
		return fmt.Errorf("invalid features: %w", err)
	}
	return nil
}

// UploadResponse is the response for POST /api/tracks
type UploadResponse struct {
	Message                 string                   `json:"message"`
	Track                   *models.Track            `json:"track"`
	Matches                 []models.SimilarityMatch `json:"matches"`
	MatchCount              int                      `json:"match_count"`
	EligibleForRegistration bool                     `json:"eligible_for_registration"`
}

// AnalyzeResponse is the response for POST /api/analyze
type AnalyzeResponse struct {
	Filename string                `json:"filename"`
	Features *models.AudioFeatures `json:"features"`
}

// MatchesResponse is the response for POST /api/similarity
type MatchesResponse struct {
	Matches []models.SimilarityMatch `json:"matches"`
	Count   int                      `json:"count"`
}

// ListTracksResponse is the response for GET /api/tracks
type ListTracksResponse struct {
	Tracks []models.Track `json:"tracks"`
	Count  int            `json:"count"`
}

// DeleteTrackResponse is the response for DELETE /api/tracks/:id
type DeleteTrackResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// MetricsResponse provides server health and storage metrics
type MetricsResponse struct {
	Status        string `json:"status"`
	StorageDriver string `json:"storage_driver"`
	TrackCount    int64  `json:"track_count"`
	MaxUploadMB   int64  `json:"max_upload_mb"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
