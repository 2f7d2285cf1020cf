package database

import (
	"context"
	"fmt"
	"time"

	"github.com/trogers1052/stock-sentiment-service/internal/models"
)

const sentimentColumns = `
	id, symbol, recorded_at, source,
	COALESCE(headline, '') AS headline,
	COALESCE(content, '') AS content,
	COALESCE(url, '') AS url,
	sentiment_score, sentiment_label`

// InsertSentiment stores a new record and sets its ID
func (db *DB) InsertSentiment(ctx context.Context, record *models.SentimentRecord) error {
	query := `
		INSERT INTO sentiment_records (
			symbol, recorded_at, source, headline, content, url,
			sentiment_score, sentiment_label
		) VALUES (
			$1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8
		)
		RETURNING id
	`

	err := db.conn.QueryRowxContext(ctx, query,
		record.Symbol, record.Timestamp, record.Source,
		record.Headline, record.Content, record.URL,
		record.SentimentScore, record.SentimentLabel,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to insert sentiment for %s: %w", record.Symbol, err)
	}

	return nil
}

// HeadlineExistsSince reports whether symbol has a record with exactly this
// headline recorded at or after since.
func (db *DB) HeadlineExistsSince(ctx context.Context, symbol, headline string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM sentiment_records
			WHERE symbol = $1 AND headline = $2 AND recorded_at >= $3
		)
	`

	var exists bool
	if err := db.conn.GetContext(ctx, &exists, query, symbol, headline, since); err != nil {
		return false, fmt.Errorf("failed to check headline for %s: %w", symbol, err)
	}

	return exists, nil
}

// GetSentimentSince returns symbol's records recorded at or after since, oldest first
func (db *DB) GetSentimentSince(ctx context.Context, symbol string, since time.Time) ([]*models.SentimentRecord, error) {
	query := `SELECT ` + sentimentColumns + `
		FROM sentiment_records
		WHERE symbol = $1 AND recorded_at >= $2
		ORDER BY recorded_at ASC
	`

	var records []*models.SentimentRecord
	if err := db.conn.SelectContext(ctx, &records, query, symbol, since); err != nil {
		return nil, fmt.Errorf("failed to get sentiment for %s: %w", symbol, err)
	}

	return records, nil
}

// GetRecentSentiment returns symbol's newest records, newest first
func (db *DB) GetRecentSentiment(ctx context.Context, symbol string, limit int) ([]*models.SentimentRecord, error) {
	query := `SELECT ` + sentimentColumns + `
		FROM sentiment_records
		WHERE symbol = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`

	var records []*models.SentimentRecord
	if err := db.conn.SelectContext(ctx, &records, query, symbol, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent sentiment for %s: %w", symbol, err)
	}

	return records, nil
}

// DeleteSentimentBefore removes every record older than cutoff and returns the count
func (db *DB) DeleteSentimentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM sentiment_records WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sentiment before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted sentiment: %w", err)
	}

	return n, nil
}
