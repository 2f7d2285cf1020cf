package aggregator

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/trogers1052/stock-sentiment-service/internal/catalog"
	"github.com/trogers1052/stock-sentiment-service/internal/models"
)

const (
	// SnapshotWindow is the window used for the all-stocks snapshot
	SnapshotWindow = 72 * time.Hour

	DefaultRecentLimit = 20
	MaxRecentLimit     = 100
)

// RecordReader is the read side of the sentiment store
type RecordReader interface {
	GetSentimentSince(ctx context.Context, symbol string, since time.Time) ([]*models.SentimentRecord, error)
	GetRecentSentiment(ctx context.Context, symbol string, limit int) ([]*models.SentimentRecord, error)
}

// Aggregator computes windowed statistics over persisted sentiment records.
// It never writes.
type Aggregator struct {
	store   RecordReader
	catalog *catalog.Catalog
	now     func() time.Time
	log     *zap.SugaredLogger
}

// New creates an aggregator. A nil clock means time.Now.
func New(store RecordReader, cat *catalog.Catalog, now func() time.Time, log *zap.SugaredLogger) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{
		store:   store,
		catalog: cat,
		now:     now,
		log:     log.With("component", "aggregator"),
	}
}

// Aggregate summarizes symbol's records within the trailing window. A store
// failure is returned as an error, distinct from a result with DataAvailable false.
func (a *Aggregator) Aggregate(ctx context.Context, symbol string, window time.Duration) (*models.AggregateResult, error) {
	records, err := a.store.GetSentimentSince(ctx, symbol, a.now().Add(-window))
	if err != nil {
		return nil, &models.PersistenceError{Op: "load sentiment window", Err: err}
	}
	return Summarize(records), nil
}

// Summarize computes the aggregate of a set of records
func Summarize(records []*models.SentimentRecord) *models.AggregateResult {
	if len(records) == 0 {
		return &models.AggregateResult{SentimentTrend: models.TrendNeutral}
	}

	result := &models.AggregateResult{
		TotalMentions: len(records),
		DataAvailable: true,
	}
	var sum float64
	for _, r := range records {
		sum += r.SentimentScore
		switch r.SentimentLabel {
		case models.LabelPositive:
			result.PositiveCount++
		case models.LabelNegative:
			result.NegativeCount++
		default:
			result.NeutralCount++
		}
	}

	total := float64(len(records))
	result.AvgSentiment = round4(sum / total)
	result.SentimentTrend = Trend(result.AvgSentiment)
	result.PositivePercentage = percent(result.PositiveCount, total)
	result.NegativePercentage = percent(result.NegativeCount, total)
	result.NeutralPercentage = percent(result.NeutralCount, total)
	return result
}

// Trend maps an average score onto a trend label
func Trend(avg float64) models.Trend {
	switch {
	case avg > 0.3:
		return models.TrendVeryBullish
	case avg > 0.1:
		return models.TrendBullish
	case avg < -0.3:
		return models.TrendVeryBearish
	case avg < -0.1:
		return models.TrendBearish
	default:
		return models.TrendNeutral
	}
}

type bucketKey struct {
	date string
	hour int
}

type bucketAcc struct {
	sum      float64
	count    int
	positive int
	negative int
}

// History groups symbol's records of the last days by UTC date and hour,
// ascending.
func (a *Aggregator) History(ctx context.Context, symbol string, days int) ([]models.HistoryBucket, error) {
	since := a.now().Add(-time.Duration(days) * 24 * time.Hour)
	records, err := a.store.GetSentimentSince(ctx, symbol, since)
	if err != nil {
		return nil, &models.PersistenceError{Op: "load sentiment history", Err: err}
	}
	return Bucketize(records), nil
}

// Bucketize groups records into (date, hour) buckets
func Bucketize(records []*models.SentimentRecord) []models.HistoryBucket {
	groups := make(map[bucketKey]*bucketAcc)
	for _, r := range records {
		ts := r.Timestamp.UTC()
		key := bucketKey{date: ts.Format("2006-01-02"), hour: ts.Hour()}
		acc, ok := groups[key]
		if !ok {
			acc = &bucketAcc{}
			groups[key] = acc
		}
		acc.sum += r.SentimentScore
		acc.count++
		switch r.SentimentLabel {
		case models.LabelPositive:
			acc.positive++
		case models.LabelNegative:
			acc.negative++
		}
	}

	keys := make([]bucketKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].date != keys[j].date {
			return keys[i].date < keys[j].date
		}
		return keys[i].hour < keys[j].hour
	})

	buckets := make([]models.HistoryBucket, 0, len(keys))
	for _, k := range keys {
		acc := groups[k]
		buckets = append(buckets, models.HistoryBucket{
			Timestamp: fmt.Sprintf("%s %d:00", k.date, k.hour),
			Date:      k.date,
			Hour:      k.hour,
			Sentiment: round4(acc.sum / float64(acc.count)),
			Mentions:  acc.count,
			Positive:  acc.positive,
			Negative:  acc.negative,
		})
	}
	return buckets
}

// Snapshot aggregates every tracked stock over SnapshotWindow. Stocks whose
// aggregation fails are logged and left out.
func (a *Aggregator) Snapshot(ctx context.Context) []models.StockSentiment {
	stocks := a.catalog.Stocks()
	out := make([]models.StockSentiment, 0, len(stocks))
	for _, stock := range stocks {
		result, err := a.Aggregate(ctx, stock.Symbol, SnapshotWindow)
		if err != nil {
			a.log.Warnw("Failed to aggregate sentiment", "symbol", stock.Symbol, "error", err)
			continue
		}
		out = append(out, models.StockSentiment{
			Symbol:          stock.Symbol,
			Name:            stock.Name,
			AggregateResult: *result,
		})
	}
	return out
}

// Recent returns the newest records for symbol, newest first. limit is
// clamped to [1, MaxRecentLimit], with 0 meaning DefaultRecentLimit.
func (a *Aggregator) Recent(ctx context.Context, symbol string, limit int) ([]*models.SentimentRecord, error) {
	records, err := a.store.GetRecentSentiment(ctx, symbol, ClampLimit(limit))
	if err != nil {
		return nil, &models.PersistenceError{Op: "load recent sentiment", Err: err}
	}
	return records, nil
}

// ClampLimit applies the recent-articles limit bounds
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultRecentLimit
	case limit < 1:
		return 1
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	default:
		return limit
	}
}

func round4(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(4).Float64()
	return f
}

func percent(count int, total float64) int {
	return int(math.Round(float64(count) / total * 100))
}
