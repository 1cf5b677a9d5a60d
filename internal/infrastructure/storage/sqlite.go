package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"PriceWatcher/internal/domain"
	"PriceWatcher/internal/ports"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS price_history (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  site TEXT NOT NULL,
  price REAL NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  "timestamp" DATETIME NOT NULL DEFAULT (STRFTIME('%Y-%m-%d %H:%M:%f', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_price_history_site_ts ON price_history (site, "timestamp");
`

// SQLiteRepository persists the price log into a local SQLite file in WAL mode.
type SQLiteRepository struct {
	db *sql.DB
	q  queries
}

var _ ports.PriceRepository = (*SQLiteRepository)(nil)

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if isMemoryPath(path) {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	repo := &SQLiteRepository{db: db, q: newQueries(sq.Question)}
	if err := repo.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `PRAGMA journal_mode = WAL`); err != nil {
		return fmt.Errorf("enable wal: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Record appends one observation; an empty currency is stored as USD.
func (r *SQLiteRepository) Record(ctx context.Context, site string, price float64, currency string) error {
	query, args, err := r.q.insert(site, price, currency)
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert price: %w", err)
	}
	return nil
}

// ListRecent returns up to limit rows across all sites, newest first.
func (r *SQLiteRepository) ListRecent(ctx context.Context, limit int) ([]domain.PriceRecord, error) {
	return r.list(ctx, nil, 0, limit)
}

// ListBySite returns up to limit rows of one site, newest first.
func (r *SQLiteRepository) ListBySite(ctx context.Context, site string, limit int) ([]domain.PriceRecord, error) {
	return r.list(ctx, &site, 0, limit)
}

// ListBySitePaginated returns rows [offset, offset+limit) of one site plus its total row count.
func (r *SQLiteRepository) ListBySitePaginated(ctx context.Context, site string, offset, limit int) (domain.PricePage, error) {
	records, err := r.list(ctx, &site, offset, limit)
	if err != nil {
		return domain.PricePage{}, err
	}

	query, args, err := r.q.count(site)
	if err != nil {
		return domain.PricePage{}, fmt.Errorf("build count: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
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

// Close releases the underlying database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) list(ctx context.Context, site *string, offset, limit int) ([]domain.PriceRecord, error) {
	query, args, err := r.q.list(site, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}

	records := make([]domain.PriceRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		records = append(records, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return records, nil
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	if isMemoryPath(path) {
		return "file::memory:?_pragma=busy_timeout(5000)"
	}
	return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}
