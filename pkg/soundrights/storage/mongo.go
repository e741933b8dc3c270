package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soundrights/soundrights/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	DefaultMongoDatabase = "soundrights"
	TracksCollection     = "tracks"
)

// MongoStore keeps each track, features embedded, as one document.
type MongoStore struct {
	client *mongo.Client
	tracks *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		database = DefaultMongoDatabase
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	s := &MongoStore{
		client: client,
		tracks: client.Database(database).Collection(TracksCollection),
	}
	if err := s.createIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: 1}}, Options: options.Index().SetName("owner_created")},
		{Keys: bson.D{{Key: "features.fingerprint", Value: 1}}, Options: options.Index().SetName("features_fingerprint")},
	}
	if _, err := s.tracks.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("creating track indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Driver() string { return DriverMongo }

func (s *MongoStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) SaveTrack(ctx context.Context, t *models.Track) error {
	if err := prepareTrack(t); err != nil {
		return err
	}
	if _, err := s.tracks.InsertOne(ctx, t); err != nil {
		return fmt.Errorf("inserting track: %w", err)
	}
	return nil
}

func (s *MongoStore) GetTrack(ctx context.Context, id string) (*models.Track, error) {
	var t models.Track
	err := s.tracks.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("finding track: %w", err)
	}
	return &t, nil
}

func (s *MongoStore) ListTracks(ctx context.Context, ownerID string) ([]models.Track, error) {
	filter := bson.M{}
	if ownerID != "" {
		filter["owner_id"] = ownerID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := s.tracks.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing tracks: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]models.Track, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decoding tracks: %w", err)
	}
	return out, nil
}

func (s *MongoStore) DeleteTrack(ctx context.Context, id string) error {
	res, err := s.tracks.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting track: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}
	return nil
}

func (s *MongoStore) CountTracks(ctx context.Context) (int64, error) {
	n, err := s.tracks.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("counting tracks: %w", err)
	}
	return n, nil
}
