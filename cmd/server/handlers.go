package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soundrights/soundrights/internal/config"
	"github.com/soundrights/soundrights/pkg/soundrights"
	"github.com/soundrights/soundrights/pkg/soundrights/analysis"
	"github.com/soundrights/soundrights/pkg/soundrights/audio"
)

type Logger = soundrights.Logger

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service soundrights.Service
	config  config.ServerConfig
	log     Logger
}

// NewServer creates a new server instance
func NewServer(service soundrights.Service, cfg config.ServerConfig, log Logger) *Server {
	return &Server{
		service: service,
		config:  cfg,
		log:     log,
	}
}

// respondError writes an error response
func (s *Server) respondError(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var parseErr *audio.MetadataParseError
	switch {
	case errors.Is(err, soundrights.ErrEmptyUpload), errors.Is(err, soundrights.ErrMissingOwner):
		return http.StatusBadRequest
	case errors.Is(err, soundrights.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, soundrights.ErrNotAnalyzed), errors.As(err, &parseErr),
		errors.Is(err, analysis.ErrFingerprintStream):
		return http.StatusUnprocessableEntity
	case soundrights.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// readUpload pulls the "audio" multipart file into memory, bounded by the configured size.
func (s *Server) readUpload(c *gin.Context) ([]byte, string, bool) {
	limit := s.config.MaxUploadBytes()
	if c.Request.ContentLength > limit+(1<<20) {
		s.respondError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", s.config.MaxUploadMB))
		return nil, "", false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+(1<<20))

	header, err := c.FormFile("audio")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", s.config.MaxUploadMB))
			return nil, "", false
		}
		s.log.Warnf("Failed to get audio file: %v", err)
		s.respondError(c, http.StatusBadRequest, "audio file is required")
		return nil, "", false
	}
	if header.Size > limit {
		s.respondError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", s.config.MaxUploadMB))
		return nil, "", false
	}

	file, err := header.Open()
	if err != nil {
		s.log.Errorf("Failed to open uploaded file: %v", err)
		s.respondError(c, http.StatusInternalServerError, "Failed to process upload")
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.log.Errorf("Failed to read uploaded file: %v", err)
		s.respondError(c, http.StatusInternalServerError, "Failed to read uploaded file")
		return nil, "", false
	}
	return data, header.Filename, true
}

// handleRoot handles GET /
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "SoundRights API",
		"version": "1.0.0",
		"endpoints": gin.H{
			"health":        "GET /health",
			"metrics":       "GET /api/health/metrics",
			"listTracks":    "GET /api/tracks?owner_id=",
			"uploadTrack":   "POST /api/tracks",
			"getTrack":      "GET /api/tracks/:id",
			"deleteTrack":   "DELETE /api/tracks/:id",
			"compareTracks": "GET /api/tracks/:id/compare/:other",
			"analyze":       "POST /api/analyze",
			"similarity":    "POST /api/similarity",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(c *gin.Context) {
	stats, err := s.service.Stats(c.Request.Context())
	if err != nil {
		s.log.Errorf("Failed to get track count: %v", err)
		s.respondError(c, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	c.JSON(http.StatusOK, MetricsResponse{
		Status:        "healthy",
		StorageDriver: stats.Driver,
		TrackCount:    stats.TrackCount,
		MaxUploadMB:   s.config.MaxUploadMB,
	})
}

// handleListTracks handles GET /api/tracks
func (s *Server) handleListTracks(c *gin.Context) {
	tracks, err := s.service.ListTracks(c.Request.Context(), c.Query("owner_id"))
	if err != nil {
		s.log.Errorf("Failed to list tracks: %v", err)
		s.respondError(c, http.StatusInternalServerError, "Failed to retrieve tracks")
		return
	}

	c.JSON(http.StatusOK, ListTracksResponse{
		Tracks: tracks,
		Count:  len(tracks),
	})
}

// handleGetTrack handles GET /api/tracks/:id
func (s *Server) handleGetTrack(c *gin.Context) {
	id := c.Param("id")
	track, err := s.service.GetTrack(c.Request.Context(), id)
	if err != nil {
		if soundrights.IsNotFound(err) {
			s.respondError(c, http.StatusNotFound, fmt.Sprintf("Track with ID %s not found", id))
			return
		}
		s.log.Errorf("Failed to get track %s: %v", id, err)
		s.respondError(c, http.StatusInternalServerError, "Failed to retrieve track")
		return
	}
	c.JSON(http.StatusOK, track)
}

// handleDeleteTrack handles DELETE /api/tracks/:id
func (s *Server) handleDeleteTrack(c *gin.Context) {
	id := c.Param("id")
	if err := s.service.DeleteTrack(c.Request.Context(), id); err != nil {
		if soundrights.IsNotFound(err) {
			s.respondError(c, http.StatusNotFound, fmt.Sprintf("Track with ID %s not found", id))
			return
		}
		s.log.Errorf("Failed to delete track %s: %v", id, err)
		s.respondError(c, http.StatusInternalServerError, "Failed to delete track")
		return
	}

	c.JSON(http.StatusOK, DeleteTrackResponse{
		Message: "Track deleted successfully",
		ID:      id,
	})
}

// handleUploadTrack handles POST /api/tracks (multipart file upload)
func (s *Server) handleUploadTrack(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Minute)
	defer cancel()

	data, filename, ok := s.readUpload(c)
	if !ok {
		return
	}

	res, err := s.service.UploadTrack(ctx, soundrights.UploadRequest{
		OwnerID:  c.PostForm("owner_id"),
		Title:    c.PostForm("title"),
		Artist:   c.PostForm("artist"),
		Filename: filename,
		Data:     data,
	})
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.log.Errorf("Failed to upload track %q: %v", filename, err)
		}
		s.respondError(c, status, err.Error())
		return
	}

	c.JSON(http.StatusCreated, UploadResponse{
		Message:                 "Track uploaded successfully",
		Track:                   res.Track,
		Matches:                 res.Matches,
		MatchCount:              len(res.Matches),
		EligibleForRegistration: res.EligibleForRegistration,
	})
}

// handleAnalyze handles POST /api/analyze
func (s *Server) handleAnalyze(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	data, filename, ok := s.readUpload(c)
	if !ok {
		return
	}

	features, err := s.service.AnalyzeAudio(ctx, data, filename)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.log.Errorf("Failed to analyze %q: %v", filename, err)
		}
		s.respondError(c, status, err.Error())
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{Filename: filename, Features: features})
}

// handleSimilarity handles POST /api/similarity
func (s *Server) handleSimilarity(c *gin.Context) {
	var req SimilarityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	matches, err := s.service.FindSimilar(c.Request.Context(), req.OwnerID, *req.Features)
	if err != nil {
		s.log.Errorf("Failed to match features: %v", err)
		s.respondError(c, statusFor(err), "Failed to match features")
		return
	}

	c.JSON(http.StatusOK, MatchesResponse{Matches: matches, Count: len(matches)})
}

// handleCompareTracks handles GET /api/tracks/:id/compare/:other
func (s *Server) handleCompareTracks(c *gin.Context) {
	cmp, err := s.service.CompareTracks(c.Request.Context(), c.Param("id"), c.Param("other"))
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.log.Errorf("Failed to compare tracks: %v", err)
		}
		s.respondError(c, status, err.Error())
		return
	}
	c.JSON(http.StatusOK, cmp)
}
