package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"sjsage522/estatecrawler/internal/crawler"
	"sjsage522/estatecrawler/logger"
)

const mongoConnectTimeout = 10 * time.Second

// MongoStore inserts listings as documents shaped by their bson tags
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	log        *logger.Logger
}

// NewMongoStore connects and pings the server
func NewMongoStore(ctx context.Context, uri, dbName, collection string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(dbName).Collection(collection),
		log:        logger.ForStore("mongo"),
	}, nil
}

// InsertMany writes the records as one ordered bulk insert
func (s *MongoStore) InsertMany(ctx context.Context, records []crawler.ListingRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, len(records))
	for i := range records {
		docs[i] = records[i]
	}

	res, err := s.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		inserted := 0
		if res != nil {
			inserted = len(res.InsertedIDs)
		}
		return inserted, fmt.Errorf("insert listings into %s: %w", s.collection.Name(), err)
	}

	s.log.Info().Int("documents", len(res.InsertedIDs)).Msg("listings inserted")
	return len(res.InsertedIDs), nil
}

// Close disconnects the client
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
