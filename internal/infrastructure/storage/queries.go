package storage

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"PriceWatcher/internal/domain"
)

const (
	priceTable = "price_history"

	// DefaultLimit is the page size used when callers pass no limit.
	DefaultLimit = 50
)

// timestamp is quoted since Postgres treats it as a type keyword.
var priceColumns = []string{"id", "site", "price", "currency", `"timestamp"`}

// queries builds the price_history statements for one placeholder dialect.
type queries struct {
	sb sq.StatementBuilderType
}

func newQueries(format sq.PlaceholderFormat) queries {
	return queries{sb: sq.StatementBuilder.PlaceholderFormat(format)}
}

func (q queries) insert(site string, price float64, currency string) (string, []interface{}, error) {
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return q.sb.Insert(priceTable).
		Columns("site", "price", "currency").
		Values(site, price, currency).
		ToSql()
}

// list selects newest first. LIMIT/OFFSET go through a suffix because
// squirrel's Limit/Offset take unsigned values and callers may pass anything.
func (q queries) list(site *string, offset, limit int) (string, []interface{}, error) {
	b := q.sb.Select(priceColumns...).From(priceTable)
	if site != nil {
		b = b.Where(sq.Eq{"site": *site})
	}
	return b.OrderBy(`"timestamp" DESC`, "id DESC").
		Suffix("LIMIT ? OFFSET ?", limit, offset).
		ToSql()
}

func (q queries) count(site string) (string, []interface{}, error) {
	return q.sb.Select("COUNT(*)").From(priceTable).Where(sq.Eq{"site": site}).ToSql()
}

// rowScanner is satisfied by *sql.Rows and pgx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (domain.PriceRecord, error) {
	var (
		rec domain.PriceRecord
		ts  dbTime
	)
	if err := row.Scan(&rec.ID, &rec.Site, &rec.Price, &rec.Currency, &ts); err != nil {
		return domain.PriceRecord{}, fmt.Errorf("scan price record: %w", err)
	}
	rec.Timestamp = ts.Time
	return rec, nil
}

func hasMore(offset, limit, total int) bool {
	return offset+limit < total
}

// dbTime accepts the timestamp encodings of both drivers.
type dbTime struct {
	time.Time
}

var dbTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
}

func (t *dbTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *dbTime) parse(value string) error {
	for _, layout := range dbTimeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", value)
}
