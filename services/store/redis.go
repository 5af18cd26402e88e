package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"sjsage522/estatecrawler/internal/crawler"
	"sjsage522/estatecrawler/logger"
)

// listingField is the stream entry field carrying one base64 JSON listing
const listingField = "b64_listing"

// RedisStore appends listings to a Redis stream for downstream consumers
type RedisStore struct {
	client          *redis.Client
	stream          string
	streamMaxLength int64
	log             *logger.Logger
}

// NewRedisStore creates a Redis stream store and checks the connection
func NewRedisStore(ctx context.Context, addr string, db int, stream string, streamMaxLength int64) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{
		client:          client,
		stream:          stream,
		streamMaxLength: streamMaxLength,
		log:             logger.ForStore("redis"),
	}, nil
}

// InsertMany adds one stream entry per record in a single MULTI/EXEC so the
// batch is appended in order without interleaving
func (s *RedisStore) InsertMany(ctx context.Context, records []crawler.ListingRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	payloads := make([]string, len(records))
	for i, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("encode listing %q: %w", r.URL, err)
		}
		payloads[i] = base64.StdEncoding.EncodeToString(data)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range payloads {
			args := &redis.XAddArgs{
				Stream: s.stream,
				Values: map[string]interface{}{listingField: p},
			}
			if s.streamMaxLength > 0 {
				args.MaxLen = s.streamMaxLength
				args.Approx = true
			}
			pipe.XAdd(ctx, args)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("append listings to stream %s: %w", s.stream, err)
	}

	s.log.Info().Int("entries", len(payloads)).Str("stream", s.stream).Msg("listings inserted")
	return len(payloads), nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
