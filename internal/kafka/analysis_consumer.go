package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/trogers1052/stock-sentiment-service/internal/catalog"
	"github.com/trogers1052/stock-sentiment-service/internal/models"
)

const (
	EventAnalyzeRequested = "SENTIMENT_ANALYZE_REQUESTED"
	EventSymbolAdded      = "WATCHLIST_SYMBOL_ADDED"
)

// Ingester runs on-demand ingestion for one symbol
type Ingester interface {
	Ingest(ctx context.Context, symbol, displayName string) ([]*models.SentimentRecord, error)
}

// RequestEvent represents an analysis request from Kafka
type RequestEvent struct {
	EventType string           `json:"event_type"`
	Source    string           `json:"source"`
	Timestamp string           `json:"timestamp"`
	Data      RequestEventData `json:"data"`
}

// RequestEventData holds the data for the supported request types
type RequestEventData struct {
	// For SENTIMENT_ANALYZE_REQUESTED events
	Symbols []string `json:"symbols,omitempty"`

	// For WATCHLIST_SYMBOL_ADDED events
	Symbol string `json:"symbol,omitempty"`
	Name   string `json:"name,omitempty"`
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// AnalysisConsumer ingests symbols named in request events
type AnalysisConsumer struct {
	reader   messageReader
	ingester Ingester
	catalog  *catalog.Catalog
	log      *zap.SugaredLogger
}

// NewAnalysisConsumer creates a new Kafka consumer for analysis requests
func NewAnalysisConsumer(brokers []string, topic, groupID string, ingester Ingester, cat *catalog.Catalog, log *zap.SugaredLogger) *AnalysisConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID + "-analysis",
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	return &AnalysisConsumer{
		reader:   reader,
		ingester: ingester,
		catalog:  cat,
		log:      log.With("component", "analysis_consumer"),
	}
}

// Start consumes messages until ctx is cancelled
func (c *AnalysisConsumer) Start(ctx context.Context) error {
	c.log.Infow("Starting analysis consumer", "topic", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			c.log.Info("Analysis consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return c.reader.Close()
				}
				c.log.Errorw("Error reading analysis request", "error", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.log.Errorw("Error processing analysis request", "error", err, "offset", msg.Offset)
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *AnalysisConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event RequestEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal request event: %w", err)
	}

	switch event.EventType {
	case EventAnalyzeRequested:
		for _, symbol := range event.Data.Symbols {
			if err := c.analyze(ctx, symbol, ""); err != nil {
				c.log.Warnw("Skipping requested symbol", "symbol", symbol, "error", err)
			}
		}
		return nil

	case EventSymbolAdded:
		return c.analyze(ctx, event.Data.Symbol, event.Data.Name)

	default:
		c.log.Debugw("Ignoring unknown event type", "event_type", event.EventType)
		return nil
	}
}

func (c *AnalysisConsumer) analyze(ctx context.Context, rawSymbol, name string) error {
	symbol, err := catalog.NormalizeSymbol(rawSymbol)
	if err != nil {
		return err
	}
	if name == "" {
		if stock, ok := c.catalog.Lookup(symbol); ok {
			name = stock.Name
		}
	}

	created, err := c.ingester.Ingest(ctx, symbol, name)
	if err != nil {
		return fmt.Errorf("failed to ingest %s: %w", symbol, err)
	}

	c.log.Infow("Analyzed requested symbol", "symbol", symbol, "created", len(created))
	return nil
}

// Close closes the Kafka consumer
func (c *AnalysisConsumer) Close() error {
	return c.reader.Close()
}
