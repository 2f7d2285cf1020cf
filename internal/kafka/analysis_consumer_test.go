package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trogers1052/stock-sentiment-service/internal/catalog"
	"github.com/trogers1052/stock-sentiment-service/internal/models"
)

// ---------------------------------------------------------------------------
// Mock Ingester
// ---------------------------------------------------------------------------

type mockIngester struct {
	mu    sync.Mutex
	calls []ingestCall
	err   error
}

type ingestCall struct {
	Symbol string
	Name   string
}

func (m *mockIngester) Ingest(ctx context.Context, symbol, displayName string) ([]*models.SentimentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, ingestCall{Symbol: symbol, Name: displayName})
	if m.err != nil {
		return nil, m.err
	}
	return []*models.SentimentRecord{{Symbol: symbol}}, nil
}

func (m *mockIngester) Calls() []ingestCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]ingestCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

func newTestConsumer(t *testing.T, ingester Ingester) *AnalysisConsumer {
	t.Helper()
	cat, err := catalog.New(
		catalog.TrackedStock{Symbol: "TCS.NS", Name: "Tata Consultancy Services Ltd"},
		catalog.TrackedStock{Symbol: "INFY.NS", Name: "Infosys Ltd"},
	)
	require.NoError(t, err)
	return &AnalysisConsumer{ingester: ingester, catalog: cat, log: zap.NewNop().Sugar()}
}

func marshalEvent(t *testing.T, event RequestEvent) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return kafkago.Message{Value: payload}
}

// ---------------------------------------------------------------------------
// processMessage tests
// ---------------------------------------------------------------------------

func TestAnalysisConsumer_processMessage_AnalyzeRequested(t *testing.T) {
	ingester := &mockIngester{}
	consumer := newTestConsumer(t, ingester)

	msg := marshalEvent(t, RequestEvent{
		EventType: EventAnalyzeRequested,
		Source:    "dashboard",
		Timestamp: time.Now().Format(time.RFC3339),
		Data:      RequestEventData{Symbols: []string{"tcs", "infy.ns", "ZOMATO"}},
	})

	require.NoError(t, consumer.processMessage(context.Background(), msg))

	assert.Equal(t, []ingestCall{
		{Symbol: "TCS.NS", Name: "Tata Consultancy Services Ltd"},
		{Symbol: "INFY.NS", Name: "Infosys Ltd"},
		{Symbol: "ZOMATO.NS", Name: ""},
	}, ingester.Calls())
}

func TestAnalysisConsumer_processMessage_SkipsBlankSymbols(t *testing.T) {
	ingester := &mockIngester{}
	consumer := newTestConsumer(t, ingester)

	msg := marshalEvent(t, RequestEvent{
		EventType: EventAnalyzeRequested,
		Data:      RequestEventData{Symbols: []string{"  ", "TCS"}},
	})

	require.NoError(t, consumer.processMessage(context.Background(), msg))
	calls := ingester.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "TCS.NS", calls[0].Symbol)
}

func TestAnalysisConsumer_processMessage_SymbolAdded(t *testing.T) {
	ingester := &mockIngester{}
	consumer := newTestConsumer(t, ingester)

	msg := marshalEvent(t, RequestEvent{
		EventType: EventSymbolAdded,
		Data:      RequestEventData{Symbol: "zomato", Name: "Zomato Ltd"},
	})

	require.NoError(t, consumer.processMessage(context.Background(), msg))
	assert.Equal(t, []ingestCall{{Symbol: "ZOMATO.NS", Name: "Zomato Ltd"}}, ingester.Calls())
}

func TestAnalysisConsumer_processMessage_SymbolAdded_IngestError(t *testing.T) {
	ingester := &mockIngester{err: assert.AnError}
	consumer := newTestConsumer(t, ingester)

	msg := marshalEvent(t, RequestEvent{
		EventType: EventSymbolAdded,
		Data:      RequestEventData{Symbol: "TCS"},
	})

	err := consumer.processMessage(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ingest TCS.NS")
}

func TestAnalysisConsumer_processMessage_SymbolAdded_MissingSymbol(t *testing.T) {
	ingester := &mockIngester{}
	consumer := newTestConsumer(t, ingester)

	msg := marshalEvent(t, RequestEvent{EventType: EventSymbolAdded})

	err := consumer.processMessage(context.Background(), msg)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, ingester.Calls())
}

func TestAnalysisConsumer_processMessage_UnknownEventType(t *testing.T) {
	ingester := &mockIngester{}
	consumer := newTestConsumer(t, ingester)

	msg := marshalEvent(t, RequestEvent{EventType: "TOTALLY_UNKNOWN"})

	require.NoError(t, consumer.processMessage(context.Background(), msg)) // Unknown types are silently ignored
	assert.Empty(t, ingester.Calls())
}

func TestAnalysisConsumer_processMessage_InvalidJSON(t *testing.T) {
	consumer := newTestConsumer(t, &mockIngester{})

	err := consumer.processMessage(context.Background(), kafkago.Message{Value: []byte("{invalid")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

// ---------------------------------------------------------------------------
// Start lifecycle
// ---------------------------------------------------------------------------

type mockReader struct {
	cfg  kafkago.ReaderConfig
	msgs chan kafkago.Message

	mu         sync.Mutex
	closeCalls int
}

func newMockReader(topic string, buffer int) *mockReader {
	return &mockReader{
		cfg:  kafkago.ReaderConfig{Topic: topic},
		msgs: make(chan kafkago.Message, buffer),
	}
}

func (r *mockReader) ReadMessage(ctx context.Context) (kafkago.Message, error) {
	select {
	case msg := <-r.msgs:
		return msg, nil
	case <-ctx.Done():
		return kafkago.Message{}, ctx.Err()
	}
}

func (r *mockReader) Close() error {
	r.mu.Lock()
	r.closeCalls++
	r.mu.Unlock()
	return nil
}

func (r *mockReader) Config() kafkago.ReaderConfig {
	return r.cfg
}

func (r *mockReader) CloseCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeCalls
}

func TestAnalysisConsumer_Start_ProcessesUntilCancelled(t *testing.T) {
	ingester := &mockIngester{}
	reader := newMockReader("sentiment.analyze-requests", 1)
	consumer := newTestConsumer(t, ingester)
	consumer.reader = reader

	reader.msgs <- marshalEvent(t, RequestEvent{
		EventType: EventSymbolAdded,
		Data:      RequestEventData{Symbol: "INFY"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	require.Eventually(t, func() bool { return len(ingester.Calls()) == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
	assert.Equal(t, 1, reader.CloseCalls())
	assert.Equal(t, "INFY.NS", ingester.Calls()[0].Symbol)
}
