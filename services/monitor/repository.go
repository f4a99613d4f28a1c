package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"storewatch-backend/services/monitor/db"
)

// PriceObservation is one pending append-only history row. The store
// and timestamp are supplied at commit time.
type PriceObservation struct {
	IdentityKey string
	Currency    string
	Price       float64
}

// Repository is the durable store of item state and price history.
// One instance is shared by every store pipeline; sqlite serializes
// the writes underneath.
type Repository struct {
	db  *sql.DB
	qry *db.Queries
}

func NewRepository(database *sql.DB) Repository {
	return Repository{
		db:  database,
		qry: db.New(database),
	}
}

// LoadLastKnown returns the store's last committed snapshot keyed by
// identity. Archived items (gone from the site) are excluded, their
// reappearance reads as a new item.
func (r Repository) LoadLastKnown(ctx context.Context, storeName string) (map[string]Item, error) {
	rows, err := r.qry.GetActiveItems(ctx, storeName)
	if err != nil {
		return nil, &PersistenceError{Store: storeName, Err: err}
	}

	items := make(map[string]Item, len(rows))
	for _, row := range rows {
		item, err := itemFromRow(row)
		if err != nil {
			return nil, &PersistenceError{Store: storeName, Err: err}
		}
		items[row.IdentityKey] = item
	}
	return items, nil
}

type CommitParams struct {
	StoreName string
	// the full current item set; upserted, preserving first_seen
	Items map[string]Item
	// identity keys that disappeared this cycle
	Archive []string
	// history rows implied by this cycle's diff
	Observations []PriceObservation
	// observation time stamped onto last_seen and history rows
	Now time.Time
}

// Commit persists one cycle atomically: either every upsert, archive
// and history row lands, or none do and the prior snapshot stays the
// last committed one.
func (r Repository) Commit(ctx context.Context, params CommitParams) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &PersistenceError{Store: params.StoreName, Err: err}
	}
	defer tx.Rollback()
	txqry := r.qry.WithTx(tx)

	err = r.commitTx(ctx, txqry, params)
	if err != nil {
		return &PersistenceError{Store: params.StoreName, Err: err}
	}

	err = tx.Commit()
	if err != nil {
		return &PersistenceError{Store: params.StoreName, Err: err}
	}
	return nil
}

func (r Repository) commitTx(ctx context.Context, txqry *db.Queries, params CommitParams) error {
	err := txqry.CreateStore(ctx, params.StoreName)
	if err != nil {
		return err
	}

	now := params.Now.Unix()
	for _, key := range sortedKeys(params.Items) {
		item := params.Items[key]
		prices, err := json.Marshal(item.Prices)
		if err != nil {
			return err
		}
		err = txqry.UpsertItem(ctx, db.UpsertItemParams{
			StoreName:   params.StoreName,
			IdentityKey: key,
			Name:        item.Name,
			Link:        item.Link,
			Image:       item.Image,
			SoldOut:     item.SoldOut,
			Prices:      string(prices),
			FirstSeen:   now,
			LastSeen:    now,
		})
		if err != nil {
			return err
		}
	}

	for _, key := range params.Archive {
		err := txqry.ArchiveItem(ctx, db.ArchiveItemParams{
			StoreName:   params.StoreName,
			IdentityKey: key,
		})
		if err != nil {
			return err
		}
	}

	for _, observation := range params.Observations {
		err := txqry.CreatePriceRecord(ctx, db.CreatePriceRecordParams{
			StoreName:   params.StoreName,
			IdentityKey: observation.IdentityKey,
			Currency:    observation.Currency,
			Price:       observation.Price,
			ObservedAt:  now,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func itemFromRow(row db.Item) (Item, error) {
	prices := map[string]float64{}
	if row.Prices != "" {
		err := json.Unmarshal([]byte(row.Prices), &prices)
		if err != nil {
			return Item{}, err
		}
	}
	return Item{
		Name:      row.Name,
		Link:      row.Link,
		Image:     row.Image,
		SoldOut:   row.SoldOut,
		Prices:    prices,
		FirstSeen: time.Unix(row.FirstSeen, 0),
		LastSeen:  time.Unix(row.LastSeen, 0),
	}, nil
}

// DBCursorStore keeps the agent rotation cursor in the shared
// storage engine instead of a loose file, same single-writer
// discipline as everything else in the database.
type DBCursorStore struct {
	qry *db.Queries
}

func NewDBCursorStore(database *sql.DB) DBCursorStore {
	return DBCursorStore{qry: db.New(database)}
}

func (s DBCursorStore) Load() (int, error) {
	position, err := s.qry.GetAgentCursor(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(position), nil
}

func (s DBCursorStore) Save(position int) error {
	return s.qry.SetAgentCursor(context.Background(), int64(position))
}
