package badger

import (
	"context"
	"fmt"
	"os"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/trogers1052/stock-sentiment-service/internal/models"
)

// sentimentRow is the stored form of a SentimentRecord. Timestamps are kept as
// unix nanoseconds so range queries compare integers.
type sentimentRow struct {
	ID             uint64 `badgerhold:"key"`
	Symbol         string
	TimestampUnix  int64
	Source         string
	Headline       string
	Content        string
	URL            string
	SentimentScore float64
	SentimentLabel string
}

func (r *sentimentRow) toRecord() *models.SentimentRecord {
	return &models.SentimentRecord{
		ID:             int64(r.ID),
		Symbol:         r.Symbol,
		Timestamp:      time.Unix(0, r.TimestampUnix).UTC(),
		Source:         models.Source(r.Source),
		Headline:       r.Headline,
		Content:        r.Content,
		URL:            r.URL,
		SentimentScore: r.SentimentScore,
		SentimentLabel: models.Label(r.SentimentLabel),
	}
}

// Store is an embedded sentiment record store for single-node deployments
type Store struct {
	store *badgerhold.Store
}

// Open opens or creates a store in dir
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil

	return open(options)
}

// OpenInMemory opens a store that keeps everything in memory
func OpenInMemory() (*Store, error) {
	options := badgerhold.DefaultOptions
	options.Dir = ""
	options.ValueDir = ""
	options.InMemory = true
	options.Logger = nil

	return open(options)
}

func open(options badgerhold.Options) (*Store, error) {
	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &Store{store: store}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.store.Close()
}

// InsertSentiment stores a new record and sets its ID
func (s *Store) InsertSentiment(ctx context.Context, record *models.SentimentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	row := &sentimentRow{
		Symbol:         record.Symbol,
		TimestampUnix:  record.Timestamp.UnixNano(),
		Source:         string(record.Source),
		Headline:       record.Headline,
		Content:        record.Content,
		URL:            record.URL,
		SentimentScore: record.SentimentScore,
		SentimentLabel: string(record.SentimentLabel),
	}
	if err := s.store.Insert(badgerhold.NextSequence(), row); err != nil {
		return fmt.Errorf("failed to insert sentiment for %s: %w", record.Symbol, err)
	}

	record.ID = int64(row.ID)
	return nil
}

// HeadlineExistsSince reports whether symbol has a record with exactly this
// headline recorded at or after since.
func (s *Store) HeadlineExistsSince(ctx context.Context, symbol, headline string, since time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	query := badgerhold.Where("Symbol").Eq(symbol).
		And("Headline").Eq(headline).
		And("TimestampUnix").Ge(since.UnixNano())

	count, err := s.store.Count(&sentimentRow{}, query)
	if err != nil {
		return false, fmt.Errorf("failed to check headline for %s: %w", symbol, err)
	}
	return count > 0, nil
}

// GetSentimentSince returns symbol's records recorded at or after since, oldest first
func (s *Store) GetSentimentSince(ctx context.Context, symbol string, since time.Time) ([]*models.SentimentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := badgerhold.Where("Symbol").Eq(symbol).
		And("TimestampUnix").Ge(since.UnixNano()).
		SortBy("TimestampUnix")

	return s.find(query, symbol)
}

// GetRecentSentiment returns symbol's newest records, newest first
func (s *Store) GetRecentSentiment(ctx context.Context, symbol string, limit int) ([]*models.SentimentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := badgerhold.Where("Symbol").Eq(symbol).
		SortBy("TimestampUnix").Reverse().
		Limit(limit)

	return s.find(query, symbol)
}

// DeleteSentimentBefore removes every record older than cutoff and returns the count
func (s *Store) DeleteSentimentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	query := badgerhold.Where("TimestampUnix").Lt(cutoff.UnixNano())

	// count and delete share one transaction so the returned count matches
	// exactly the rows removed
	var count uint64
	err := s.store.Badger().Update(func(tx *badgerdb.Txn) error {
		var err error
		count, err = s.store.TxCount(tx, &sentimentRow{}, query)
		if err != nil {
			return fmt.Errorf("failed to count stale sentiment: %w", err)
		}
		if count == 0 {
			return nil
		}
		return s.store.TxDeleteMatching(tx, &sentimentRow{}, query)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete sentiment before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return int64(count), nil
}

func (s *Store) find(query *badgerhold.Query, symbol string) ([]*models.SentimentRecord, error) {
	var rows []sentimentRow
	if err := s.store.Find(&rows, query); err != nil {
		return nil, fmt.Errorf("failed to get sentiment for %s: %w", symbol, err)
	}

	records := make([]*models.SentimentRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toRecord())
	}
	return records, nil
}
