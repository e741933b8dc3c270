// Package storage persists analysed tracks. SQLiteStore (gorm) is the default
// backend; MongoStore keeps the same records as documents.
package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/soundrights/soundrights/pkg/models"
	"github.com/soundrights/soundrights/pkg/utils"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

var ErrTrackNotFound = errors.New("track not found")

// prepareTrack fills generated fields and rejects malformed features before a write.
func prepareTrack(t *models.Track) error {
	if t == nil {
		return errors.New("track is nil")
	}
	if t.OwnerID == "" {
		return errors.New("track owner is required")
	}
	if t.Features != nil {
		if err := t.Features.Validate(); err != nil {
			return fmt.Errorf("invalid features: %w", err)
		}
	}
	if t.ID == "" {
		t.ID = utils.GenerateUUID()
	}
	if t.Status == "" {
		if t.Features != nil {
			t.Status = models.StatusAnalyzed
		} else {
			t.Status = models.StatusAnalysisFailed
		}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	return nil
}
