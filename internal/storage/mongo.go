package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chemstalk/internal/config"
	"chemstalk/internal/types"
)

// MongoStore persists chemical items in a MongoDB collection. Insert is
// called from concurrent crawl workers, so the counter is atomic.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
	count      atomic.Int64
}

// NewMongoStore connects to MongoDB and pings it.
func NewMongoStore(cfg *config.StorageConfig, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		logger:     logger.With("component", "mongo_store"),
	}, nil
}

// Insert implements Store.
func (s *MongoStore) Insert(ctx context.Context, item *types.ChemicalItem) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, item); err != nil {
		return &types.StorageError{Backend: "mongodb", Err: err}
	}

	s.logger.Debug("item stored", "cas", item.CASNumber, "total", s.count.Add(1))
	return nil
}

// DeleteByCompany implements Store.
func (s *MongoStore) DeleteByCompany(ctx context.Context, companyName string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := s.collection.DeleteMany(ctx, bson.M{"company_name": companyName})
	if err != nil {
		return 0, &types.StorageError{Backend: "mongodb", Err: err}
	}

	s.logger.Info("company items deleted", "company", companyName, "deleted", res.DeletedCount)
	return res.DeletedCount, nil
}

// FindByCAS implements Store.
func (s *MongoStore) FindByCAS(ctx context.Context, casNumber string) ([]types.StoredChemical, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "datetime", Value: -1}})
	cursor, err := s.collection.Find(ctx, bson.M{"numcas": casNumber}, opts)
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: err}
	}
	defer cursor.Close(ctx)

	var items []types.StoredChemical
	if err := cursor.All(ctx, &items); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: err}
	}
	return items, nil
}

// Close implements Store.
func (s *MongoStore) Close(ctx context.Context) error {
	s.logger.Info("mongo store closing", "total_items", s.count.Load())
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
