package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"PriceWatcher/internal/domain"
	"PriceWatcher/internal/ports"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS price_history (
  id BIGSERIAL PRIMARY KEY,
  site TEXT NOT NULL,
  price DOUBLE PRECISION NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  "timestamp" TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_price_history_site_ts ON price_history (site, "timestamp");
`

// PostgresRepository persists the price log into Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
	q    queries
}

var _ ports.PriceRepository = (*PostgresRepository)(nil)

// OpenPostgres connects a pool, verifies it and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	repo := NewPostgresRepository(pool)
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return repo, nil
}

// NewPostgresRepository wires an existing pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool, q: newQueries(sq.Dollar)}
}

// Record appends one observation; an empty currency is stored as USD.
func (r *PostgresRepository) Record(ctx context.Context, site string, price float64, currency string) error {
	query, args, err := r.q.insert(site, price, currency)
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert price: %w", err)
	}
	return nil
}

// ListRecent returns up to limit rows across all sites, newest first.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]domain.PriceRecord, error) {
	return r.list(ctx, nil, 0, limit)
}

// ListBySite returns up to limit rows of one site, newest first.
func (r *PostgresRepository) ListBySite(ctx context.Context, site string, limit int) ([]domain.PriceRecord, error) {
	return r.list(ctx, &site, 0, limit)
}

// ListBySitePaginated returns rows [offset, offset+limit) of one site plus its total row count.
func (r *PostgresRepository) ListBySitePaginated(ctx context.Context, site string, offset, limit int) (domain.PricePage, error) {
	records, err := r.list(ctx, &site, offset, limit)
	if err != nil {
		return domain.PricePage{}, err
	}

	query, args, err := r.q.count(site)
	if err != nil {
		return domain.PricePage{}, fmt.Errorf("build count: %w", err)
	}
	var total int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return domain.PricePage{}, fmt.Errorf("count prices: %w", err)
	}

	return domain.PricePage{
		Site:    site,
		Data:    records,
		Total:   total,
		Offset:  offset,
		Limit:   limit,
		HasMore: hasMore(offset, limit, total),
	}, nil
}

// Close closes the connection pool.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) list(ctx context.Context, site *string, offset, limit int) ([]domain.PriceRecord, error) {
	query, args, err := r.q.list(site, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	records := make([]domain.PriceRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return records, nil
}
