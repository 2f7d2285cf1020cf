package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/trogers1052/stock-sentiment-service/internal/models"
)

const (
	EventSentimentUpdated  = "SENTIMENT_UPDATED"
	EventSentimentRecorded = "SENTIMENT_RECORDED"

	eventSource = "stock-sentiment-service"
)

// Event is the envelope for every message this service produces
type Event struct {
	EventType string      `json:"event_type"`
	Source    string      `json:"source"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// RecordedData is the payload of a SENTIMENT_RECORDED event
type RecordedData struct {
	Symbol  string                    `json:"symbol"`
	Count   int                       `json:"count"`
	Records []*models.SentimentRecord `json:"records"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes sentiment events to a single topic
type Producer struct {
	writer messageWriter
	now    func() time.Time
	log    *zap.SugaredLogger
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string, log *zap.SugaredLogger) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newProducer(w, log)
}

func newProducer(w messageWriter, log *zap.SugaredLogger) *Producer {
	return &Producer{
		writer: w,
		now:    time.Now,
		log:    log.With("component", "kafka_producer"),
	}
}

func (p *Producer) publish(ctx context.Context, key, eventType string, data interface{}) error {
	value, err := json.Marshal(Event{
		EventType: eventType,
		Source:    eventSource,
		Timestamp: p.now().UTC().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	p.log.Debugw("Published event", "event_type", eventType, "key", key)
	return nil
}

// Broadcast publishes a sentiment_update snapshot
func (p *Producer) Broadcast(ctx context.Context, update models.SentimentUpdate) error {
	return p.publish(ctx, update.Type, EventSentimentUpdated, update)
}

// PublishRecordsIngested publishes the records newly created for a symbol
func (p *Producer) PublishRecordsIngested(ctx context.Context, symbol string, records []*models.SentimentRecord) error {
	return p.publish(ctx, symbol, EventSentimentRecorded, RecordedData{
		Symbol:  symbol,
		Count:   len(records),
		Records: records,
	})
}

// Close closes the writer
func (p *Producer) Close() error {
	return p.writer.Close()
}
