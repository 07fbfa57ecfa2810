package storage

import (
	"context"
	"fmt"
	"time"

	"logscope/core"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoDB holds the MongoDB client and database
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongoDB creates a new MongoDB connection
func NewMongoDB(uri, dbName string, maxPoolSize uint64, logger *zap.SugaredLogger) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri).SetMaxPoolSize(maxPoolSize)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB successfully")

	return &MongoDB{
		Client:   client,
		Database: client.Database(dbName),
	}, nil
}

// Close disconnects from MongoDB
func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// HistoryStorage persists search history records in the search_history
// collection. Records are append-only.
type HistoryStorage struct {
	collection *mongo.Collection
	logger     *zap.SugaredLogger
}

// NewHistoryStorage creates a new history storage. A nil database yields
// a disabled store whose Insert returns ErrHistoryUnavailable; callers
// treat history as best-effort, so a disabled store degrades cleanly.
func NewHistoryStorage(db *mongo.Database, logger *zap.SugaredLogger) *HistoryStorage {
	hs := &HistoryStorage{logger: logger}
	if db == nil {
		return hs
	}
	hs.collection = db.Collection("search_history")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Index on timestamp for recent-history queries
	_, err := hs.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "timestamp", Value: -1}},
	})
	if err != nil {
		logger.Warnw("Failed to create search_history index", "error", err)
	}

	return hs
}

// Insert appends one history record, assigning an ID and timestamp when
// unset.
func (hs *HistoryStorage) Insert(ctx context.Context, record *core.HistoryRecord) error {
	if hs.collection == nil {
		return ErrHistoryUnavailable
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	if _, err := hs.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}
	return nil
}

// Recent returns the most recent history records, newest first.
func (hs *HistoryStorage) Recent(ctx context.Context, limit int) ([]core.HistoryRecord, error) {
	if hs.collection == nil {
		return nil, ErrHistoryUnavailable
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := hs.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer cursor.Close(ctx)

	var records []core.HistoryRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode history records: %w", err)
	}
	return records, nil
}
