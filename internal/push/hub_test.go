package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trogers1052/stock-sentiment-service/internal/models"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHub_BroadcastReachesSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a := dial(t, srv)
	defer a.Close()
	b := dial(t, srv)
	defer b.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	ts := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)
	update := models.NewSentimentUpdate([]models.StockSentiment{{
		Symbol: "TCS.NS",
		Name:   "Tata Consultancy Services Ltd",
		AggregateResult: models.AggregateResult{
			AvgSentiment:   0.25,
			TotalMentions:  4,
			SentimentTrend: models.TrendBullish,
			DataAvailable:  true,
		},
	}}, ts)
	require.NoError(t, hub.Broadcast(context.Background(), update))

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "sentiment_update", msg["type"])
		assert.Equal(t, "2024-03-01T09:15:00Z", msg["timestamp"])

		entries := msg["data"].([]interface{})
		require.Len(t, entries, 1)
		entry := entries[0].(map[string]interface{})
		assert.Equal(t, "TCS.NS", entry["symbol"])
		assert.Equal(t, "bullish", entry["sentimentTrend"])
		assert.Equal(t, 0.25, entry["avgSentiment"])
	}
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastWithoutSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar())
	assert.NoError(t, hub.Broadcast(context.Background(), models.NewSentimentUpdate(nil, time.Now())))
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}

// ---------------------------------------------------------------------------
// Fanout
// ---------------------------------------------------------------------------

type recordingSink struct {
	mu      sync.Mutex
	updates []models.SentimentUpdate
	err     error
}

func (s *recordingSink) Broadcast(ctx context.Context, update models.SentimentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, update)
	return s.err
}

func TestFanout_DeliversToAllSinksDespiteFailures(t *testing.T) {
	failing := &recordingSink{err: errors.New("redis down")}
	ok := &recordingSink{}
	fanout := NewFanout(zap.NewNop().Sugar()).
		Add("redis", failing).
		Add("websocket", ok)

	update := models.NewSentimentUpdate(nil, time.Now())
	assert.NoError(t, fanout.Broadcast(context.Background(), update))

	assert.Len(t, failing.updates, 1)
	assert.Len(t, ok.updates, 1)
	assert.Equal(t, models.SentimentUpdateType, ok.updates[0].Type)
}
