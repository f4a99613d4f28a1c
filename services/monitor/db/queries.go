package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const createStore = `
INSERT OR IGNORE INTO stores (name) VALUES (?)
`

func (q *Queries) CreateStore(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, createStore, name)
	return err
}

const getStores = `
SELECT name FROM stores ORDER BY name
`

func (q *Queries) GetStores(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, getStores)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

type Item struct {
	StoreName   string
	IdentityKey string
	Name        string
	Link        string
	Image       string
	SoldOut     bool
	Archived    bool
	Prices      string
	FirstSeen   int64
	LastSeen    int64
}

const getActiveItems = `
SELECT store_name, identity_key, name, link, image, sold_out, archived, prices, first_seen, last_seen
FROM items
WHERE store_name = ? AND archived = 0
ORDER BY identity_key
`

func (q *Queries) GetActiveItems(ctx context.Context, storeName string) ([]Item, error) {
	return q.queryItems(ctx, getActiveItems, storeName)
}

const getAllItems = `
SELECT store_name, identity_key, name, link, image, sold_out, archived, prices, first_seen, last_seen
FROM items
WHERE store_name = ?
ORDER BY identity_key
`

func (q *Queries) GetAllItems(ctx context.Context, storeName string) ([]Item, error) {
	return q.queryItems(ctx, getAllItems, storeName)
}

func (q *Queries) queryItems(ctx context.Context, query string, storeName string) ([]Item, error) {
	rows, err := q.db.QueryContext(ctx, query, storeName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var i Item
		err := rows.Scan(
			&i.StoreName,
			&i.IdentityKey,
			&i.Name,
			&i.Link,
			&i.Image,
			&i.SoldOut,
			&i.Archived,
			&i.Prices,
			&i.FirstSeen,
			&i.LastSeen,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type UpsertItemParams struct {
	StoreName   string
	IdentityKey string
	Name        string
	Link        string
	Image       string
	SoldOut     bool
	Prices      string
	FirstSeen   int64
	LastSeen    int64
}

// the insert's first_seen only applies to brand new rows, updates keep
// the original value
const upsertItem = `
INSERT INTO items (store_name, identity_key, name, link, image, sold_out, archived, prices, first_seen, last_seen)
VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
ON CONFLICT (store_name, identity_key) DO UPDATE SET
    name = excluded.name,
    link = excluded.link,
    image = excluded.image,
    sold_out = excluded.sold_out,
    archived = 0,
    prices = excluded.prices,
    last_seen = excluded.last_seen
`

func (q *Queries) UpsertItem(ctx context.Context, arg UpsertItemParams) error {
	_, err := q.db.ExecContext(ctx, upsertItem,
		arg.StoreName,
		arg.IdentityKey,
		arg.Name,
		arg.Link,
		arg.Image,
		arg.SoldOut,
		arg.Prices,
		arg.FirstSeen,
		arg.LastSeen,
	)
	return err
}

type ArchiveItemParams struct {
	StoreName   string
	IdentityKey string
}

const archiveItem = `
UPDATE items SET archived = 1
WHERE store_name = ? AND identity_key = ?
`

func (q *Queries) ArchiveItem(ctx context.Context, arg ArchiveItemParams) error {
	_, err := q.db.ExecContext(ctx, archiveItem, arg.StoreName, arg.IdentityKey)
	return err
}

type CreatePriceRecordParams struct {
	StoreName   string
	IdentityKey string
	Currency    string
	Price       float64
	ObservedAt  int64
}

const createPriceRecord = `
INSERT INTO price_history (store_name, identity_key, currency, price, observed_at)
VALUES (?, ?, ?, ?, ?)
`

func (q *Queries) CreatePriceRecord(ctx context.Context, arg CreatePriceRecordParams) error {
	_, err := q.db.ExecContext(ctx, createPriceRecord,
		arg.StoreName,
		arg.IdentityKey,
		arg.Currency,
		arg.Price,
		arg.ObservedAt,
	)
	return err
}

type GetPriceHistoryParams struct {
	StoreName   string
	IdentityKey string
}

type PriceRecord struct {
	Currency   string
	Price      float64
	ObservedAt int64
}

const getPriceHistory = `
SELECT currency, price, observed_at
FROM price_history
WHERE store_name = ? AND identity_key = ?
ORDER BY currency, observed_at
`

func (q *Queries) GetPriceHistory(ctx context.Context, arg GetPriceHistoryParams) ([]PriceRecord, error) {
	rows, err := q.db.QueryContext(ctx, getPriceHistory, arg.StoreName, arg.IdentityKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []PriceRecord
	for rows.Next() {
		var r PriceRecord
		if err := rows.Scan(&r.Currency, &r.Price, &r.ObservedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

const getAgentCursor = `
SELECT position FROM agent_cursor WHERE id = 0
`

func (q *Queries) GetAgentCursor(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, getAgentCursor)
	var position int64
	err := row.Scan(&position)
	return position, err
}

const setAgentCursor = `
INSERT INTO agent_cursor (id, position) VALUES (0, ?)
ON CONFLICT (id) DO UPDATE SET position = excluded.position
`

func (q *Queries) SetAgentCursor(ctx context.Context, position int64) error {
	_, err := q.db.ExecContext(ctx, setAgentCursor, position)
	return err
}
