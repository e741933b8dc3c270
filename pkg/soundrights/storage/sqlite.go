package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/soundrights/soundrights/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "soundrights.sqlite3"

const errStoreNil = "sqlite store is nil"

type trackRecord struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)"`
	OwnerID   string         `gorm:"index:idx_track_owner;not null"`
	Title     string         `gorm:"index:idx_track_meta,priority:1"`
	Artist    string         `gorm:"index:idx_track_meta,priority:2"`
	Filename  string
	Status    string         `gorm:"type:varchar(32)"`
	Features  *featureRecord `gorm:"foreignKey:TrackID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time      `gorm:"index:idx_track_created"`
}

func (trackRecord) TableName() string { return "tracks" }

type featureRecord struct {
	TrackID          string `gorm:"primaryKey;type:varchar(36)"`
	Duration         float64
	BPM              float64
	MusicalKey       string `gorm:"type:varchar(16)"`
	Energy           float64
	Danceability     float64
	Valence          float64
	Acousticness     float64
	Instrumentalness float64
	Fingerprint      string `gorm:"type:char(32);index:idx_features_fingerprint"`
}

func (featureRecord) TableName() string { return "track_features" }

// SQLiteStore keeps tracks in a local SQLite file through gorm.
type SQLiteStore struct {
	DB *gorm.DB
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// SQLite allows one writer at a time.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&trackRecord{}, &featureRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &SQLiteStore{DB: db, db: sqlDB}, nil
}

func (s *SQLiteStore) Driver() string { return DriverSQLite }

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) SaveTrack(ctx context.Context, t *models.Track) error {
	if s == nil || s.DB == nil {
		return errors.New(errStoreNil)
	}
	if err := prepareTrack(t); err != nil {
		return err
	}

	rec := toRecord(t)
	if err := s.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("creating track: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTrack(ctx context.Context, id string) (*models.Track, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New(errStoreNil)
	}

	var rec trackRecord
	err := s.DB.WithContext(ctx).Preload("Features").Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying track: %w", err)
	}
	t := rec.toModel()
	return &t, nil
}

// ListTracks returns the owner's tracks oldest first. An empty ownerID lists every track.
func (s *SQLiteStore) ListTracks(ctx context.Context, ownerID string) ([]models.Track, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New(errStoreNil)
	}

	q := s.DB.WithContext(ctx).Preload("Features").Order("created_at ASC, id ASC")
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}

	var rows []trackRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing tracks: %w", err)
	}

	out := make([]models.Track, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *SQLiteStore) DeleteTrack(ctx context.Context, id string) error {
	if s == nil || s.DB == nil {
		return errors.New(errStoreNil)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("track_id = ?", id).Delete(&featureRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&trackRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrTrackNotFound, id)
		}
		return nil
	})
}

func (s *SQLiteStore) CountTracks(ctx context.Context) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New(errStoreNil)
	}
	var n int64
	if err := s.DB.WithContext(ctx).Model(&trackRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting tracks: %w", err)
	}
	return n, nil
}

func toRecord(t *models.Track) trackRecord {
	rec := trackRecord{
		ID:        t.ID,
		OwnerID:   t.OwnerID,
		Title:     t.Title,
		Artist:    t.Artist,
		Filename:  t.Filename,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
	}
	if f := t.Features; f != nil {
		rec.Features = &featureRecord{
			TrackID:          t.ID,
			Duration:         f.Duration,
			BPM:              f.BPM,
			MusicalKey:       f.Key,
			Energy:           f.Energy,
			Danceability:     f.Danceability,
			Valence:          f.Valence,
			Acousticness:     f.Acousticness,
			Instrumentalness: f.Instrumentalness,
			Fingerprint:      f.Fingerprint,
		}
	}
	return rec
}

func (r trackRecord) toModel() models.Track {
	t := models.Track{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Title:     r.Title,
		Artist:    r.Artist,
		Filename:  r.Filename,
		Status:    models.TrackStatus(r.Status),
		CreatedAt: r.CreatedAt,
	}
	if f := r.Features; f != nil {
		t.Features = &models.AudioFeatures{
			Duration:         f.Duration,
			BPM:              f.BPM,
			Key:              f.MusicalKey,
			Energy:           f.Energy,
			Danceability:     f.Danceability,
			Valence:          f.Valence,
			Acousticness:     f.Acousticness,
			Instrumentalness: f.Instrumentalness,
			Fingerprint:      f.Fingerprint,
		}
	}
	return t
}
