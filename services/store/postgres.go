package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"sjsage522/estatecrawler/internal/crawler"
	"sjsage522/estatecrawler/logger"
)

const pgConnectTimeout = 10 * time.Second

// PostgresStore writes listings into one table inside a single transaction
type PostgresStore struct {
	pool  *pgxpool.Pool
	name  string
	table string // sanitized name
	log   *logger.Logger
}

// NewPostgresStore connects, pings and makes sure the listing table exists
func NewPostgresStore(ctx context.Context, dsn, table string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 2

	connectCtx, cancel := context.WithTimeout(ctx, pgConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{
		pool:  pool,
		name:  table,
		table: pgx.Identifier{table}.Sanitize(),
		log:   logger.ForStore("postgres"),
	}
	if err := s.ensureSchema(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	// url is indexed but not unique: every run appends a fresh snapshot
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + s.table + ` (
			id                  BIGSERIAL PRIMARY KEY,
			type                TEXT NOT NULL,
			building_name       TEXT NOT NULL,
			address             TEXT NOT NULL,
			description         TEXT NOT NULL,
			image_url           TEXT NOT NULL,
			url                 TEXT NOT NULL,
			price               TEXT NOT NULL,
			size                TEXT NOT NULL,
			station_raw         TEXT NOT NULL,
			age                 TEXT NOT NULL,
			price_yen           BIGINT,
			monthly_payment_yen BIGINT,
			area_sqm            DOUBLE PRECISION,
			layout_raw          TEXT,
			rooms               INTEGER,
			ldk                 BOOLEAN,
			built_year          INTEGER,
			built_month         INTEGER,
			station_line        TEXT,
			station_name        TEXT,
			walk_minutes        INTEGER,
			pet_ok              BOOLEAN NOT NULL DEFAULT FALSE,
			south_facing        BOOLEAN NOT NULL DEFAULT FALSE,
			corner              BOOLEAN NOT NULL DEFAULT FALSE,
			balcony             BOOLEAN NOT NULL DEFAULT FALSE,
			tower_mansion       BOOLEAN NOT NULL DEFAULT FALSE,
			created_at          DATE NOT NULL,
			inserted_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS ` + pgx.Identifier{s.name + "_url_idx"}.Sanitize() + ` ON ` + s.table + ` (url)`,
		`CREATE INDEX IF NOT EXISTS ` + pgx.Identifier{s.name + "_created_at_idx"}.Sanitize() + ` ON ` + s.table + ` (created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure listing schema: %w", err)
		}
	}
	return nil
}

// InsertMany queues every record in one batch; either all rows land or none
func (s *PostgresStore) InsertMany(ctx context.Context, records []crawler.ListingRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback(ctx)
	}()

	query := `INSERT INTO ` + s.table + ` (
		type, building_name, address, description, image_url, url,
		price, size, station_raw, age,
		price_yen, monthly_payment_yen, area_sqm, layout_raw, rooms, ldk, built_year, built_month,
		station_line, station_name, walk_minutes,
		pet_ok, south_facing, corner, balcony, tower_mansion, created_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`

	b := &pgx.Batch{}
	for _, r := range records {
		b.Queue(query,
			r.Category, r.Name, r.Address, r.Description, r.Image, r.URL,
			r.RawPrice, r.RawSize, r.RawStation, r.RawAge,
			r.PriceYen, r.MonthlyPaymentYen, r.AreaSqm, r.LayoutRaw, r.Rooms, r.LDK, r.BuiltYear, r.BuiltMonth,
			r.Station.Line, r.Station.Name, r.Station.WalkMinutes,
			r.Flags.PetOK, r.Flags.SouthFacing, r.Flags.Corner, r.Flags.Balcony, r.Flags.TowerMansion, r.CreatedAt,
		)
	}

	br := tx.SendBatch(ctx, b)
	total := 0
	for i := range records {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("insert listing %q: %w", records[i].URL, err)
		}
		total += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	s.log.Info().Int("rows", total).Msg("listings inserted")
	return total, nil
}

// Close releases the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
