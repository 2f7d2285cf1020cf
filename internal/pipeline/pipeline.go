package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/trogers1052/stock-sentiment-service/internal/metrics"
	"github.com/trogers1052/stock-sentiment-service/internal/models"
)

// ArticleSource fetches candidate articles for a symbol
type ArticleSource interface {
	FetchArticles(ctx context.Context, symbol, displayName string) ([]models.Article, error)
}

// Scorer maps text to a sentiment score, nil meaning no opinion
type Scorer interface {
	Score(text string) *models.ScoreResult
}

// RecordStore is the subset of the sentiment store the pipeline writes to
type RecordStore interface {
	HeadlineChecker
	InsertSentiment(ctx context.Context, record *models.SentimentRecord) error
}

// RecordsObserver is notified after a symbol produced new records
type RecordsObserver interface {
	PublishRecordsIngested(ctx context.Context, symbol string, records []*models.SentimentRecord) error
}

// Pipeline fetches, scores, deduplicates and persists news for one symbol at a time
type Pipeline struct {
	source   ArticleSource
	scorer   Scorer
	store    RecordStore
	dedup    *Deduplicator
	observer RecordsObserver
	now      func() time.Time
	log      *zap.SugaredLogger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithObserver registers an observer for newly created records
func WithObserver(o RecordsObserver) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// WithClock overrides the processing clock
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates an ingestion pipeline
func New(source ArticleSource, scorer Scorer, store RecordStore, log *zap.SugaredLogger, opts ...Option) *Pipeline {
	p := &Pipeline{
		source: source,
		scorer: scorer,
		store:  store,
		now:    time.Now,
		log:    log.With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.dedup = NewDeduplicator(store, p.now)
	return p
}

// Ingest returns the records newly created for symbol. Fetch and persistence
// failures are logged and absorbed; records persisted before a failure are
// still returned. Only a missing symbol is reported as an error.
func (p *Pipeline) Ingest(ctx context.Context, symbol, displayName string) ([]*models.SentimentRecord, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, models.Invalid("symbol is required")
	}

	created := make([]*models.SentimentRecord, 0)

	articles, err := p.source.FetchArticles(ctx, symbol, displayName)
	if err != nil {
		metrics.IngestErrors.WithLabelValues("fetch").Inc()
		p.log.Warnw("Failed to fetch articles", "symbol", symbol, "error", err)
		return created, nil
	}
	if len(articles) == 0 {
		p.log.Infow("No articles found", "symbol", symbol)
		return created, nil
	}

	for _, article := range articles {
		select {
		case <-ctx.Done():
			p.log.Infow("Ingestion interrupted",
				"symbol", symbol,
				"total_articles", len(articles),
				"created", len(created),
			)
			return p.finish(ctx, symbol, created), nil
		default:
		}

		record, err := p.process(ctx, symbol, article)
		if err != nil {
			metrics.IngestErrors.WithLabelValues("persist").Inc()
			p.log.Errorw("Failed to persist sentiment",
				"symbol", symbol,
				"headline", article.Title,
				"error", err,
			)
			return p.finish(ctx, symbol, created), nil
		}
		if record != nil {
			created = append(created, record)
		}
	}

	p.log.Infow("Ingestion complete",
		"symbol", symbol,
		"total_articles", len(articles),
		"created", len(created),
	)
	return p.finish(ctx, symbol, created), nil
}

// process handles one article. A nil record without error means it was skipped.
func (p *Pipeline) process(ctx context.Context, symbol string, article models.Article) (*models.SentimentRecord, error) {
	text := strings.TrimSpace(article.Title + " " + article.Description)
	result := p.scorer.Score(text)
	if result == nil {
		metrics.IngestArticles.WithLabelValues("empty").Inc()
		return nil, nil
	}

	dup, err := p.dedup.IsDuplicate(ctx, symbol, article.Title, DedupWindow)
	if err != nil {
		return nil, err
	}
	if dup {
		metrics.IngestArticles.WithLabelValues("duplicate").Inc()
		return nil, nil
	}

	record := &models.SentimentRecord{
		Symbol:         symbol,
		Timestamp:      p.now(),
		Source:         models.SourceNews,
		Headline:       article.Title,
		Content:        article.Description,
		URL:            article.URL,
		SentimentScore: result.SentimentScore,
		SentimentLabel: result.SentimentLabel,
	}

	// a started write completes even if the caller is shutting down
	if err := p.store.InsertSentiment(context.WithoutCancel(ctx), record); err != nil {
		return nil, &models.PersistenceError{Op: "insert sentiment", Err: err}
	}
	metrics.IngestArticles.WithLabelValues("created").Inc()
	return record, nil
}

func (p *Pipeline) finish(ctx context.Context, symbol string, created []*models.SentimentRecord) []*models.SentimentRecord {
	if p.observer == nil || len(created) == 0 {
		return created
	}
	if err := p.observer.PublishRecordsIngested(context.WithoutCancel(ctx), symbol, created); err != nil {
		p.log.Warnw("Failed to publish ingested records", "symbol", symbol, "error", err)
	}
	return created
}
