package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/trogers1052/stock-sentiment-service/internal/aggregator"
	"github.com/trogers1052/stock-sentiment-service/internal/catalog"
	"github.com/trogers1052/stock-sentiment-service/internal/models"
)

const (
	defaultHours = 24
	defaultDays  = 7
	analyzeHours = 24
)

// Ingester runs on-demand ingestion for one symbol
type Ingester interface {
	Ingest(ctx context.Context, symbol, displayName string) ([]*models.SentimentRecord, error)
}

// SentimentReader serves the aggregate views
type SentimentReader interface {
	Aggregate(ctx context.Context, symbol string, window time.Duration) (*models.AggregateResult, error)
	History(ctx context.Context, symbol string, days int) ([]models.HistoryBucket, error)
	Snapshot(ctx context.Context) []models.StockSentiment
	Recent(ctx context.Context, symbol string, limit int) ([]*models.SentimentRecord, error)
}

// SnapshotCache caches the all-stocks snapshot between sweeps
type SnapshotCache interface {
	GetSnapshot(ctx context.Context) (*models.SentimentUpdate, error)
	SetSnapshot(ctx context.Context, update models.SentimentUpdate) error
}

// Pinger is a dependency reported by the health check
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	ingester Ingester
	reader   SentimentReader
	catalog  *catalog.Catalog
	cache    SnapshotCache
	checks   map[string]Pinger
	validate *validator.Validate
	now      func() time.Time
	log      *zap.SugaredLogger
}

// NewHandler creates a new Handler. cache may be nil.
func NewHandler(ingester Ingester, reader SentimentReader, cat *catalog.Catalog, cache SnapshotCache, log *zap.SugaredLogger) *Handler {
	return &Handler{
		ingester: ingester,
		reader:   reader,
		catalog:  cat,
		cache:    cache,
		checks:   make(map[string]Pinger),
		validate: validator.New(),
		now:      time.Now,
		log:      log.With("component", "api"),
	}
}

// AddHealthCheck registers a dependency reported by GET /health
func (h *Handler) AddHealthCheck(name string, p Pinger) {
	h.checks[name] = p
}

// GetStocks handles GET /stocks
func (h *Handler) GetStocks(w http.ResponseWriter, r *http.Request) {
	stocks := h.catalog.Stocks()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(stocks),
		"data":    stocks,
	})
}

// GetAllSentiment handles GET /sentiment
func (h *Handler) GetAllSentiment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.cache != nil {
		cached, err := h.cache.GetSnapshot(ctx)
		if err != nil {
			h.log.Warnw("Snapshot cache read failed", "error", err)
		} else if cached != nil {
			respondSnapshot(w, cached.Data)
			return
		}
	}

	data := h.reader.Snapshot(ctx)
	if h.cache != nil {
		if err := h.cache.SetSnapshot(ctx, models.NewSentimentUpdate(data, h.now())); err != nil {
			h.log.Warnw("Snapshot cache write failed", "error", err)
		}
	}
	respondSnapshot(w, data)
}

func respondSnapshot(w http.ResponseWriter, data []models.StockSentiment) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(data),
		"data":    data,
	})
}

// GetSentiment handles GET /sentiment/{symbol}?hours=
func (h *Handler) GetSentiment(w http.ResponseWriter, r *http.Request) {
	symbol, err := catalog.NormalizeSymbol(mux.Vars(r)["symbol"])
	if err != nil {
		respondError(w, err)
		return
	}
	hours, err := h.intParam(r, "hours", defaultHours, "min=1,max=720")
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := h.reader.Aggregate(r.Context(), symbol, time.Duration(hours)*time.Hour)
	if err != nil {
		h.log.Errorw("Failed to aggregate sentiment", "symbol", symbol, "error", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"symbol":  symbol,
		"hours":   hours,
		"data":    result,
	})
}

// GetHistory handles GET /sentiment/{symbol}/history?days=
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	symbol, err := catalog.NormalizeSymbol(mux.Vars(r)["symbol"])
	if err != nil {
		respondError(w, err)
		return
	}
	days, err := h.intParam(r, "days", defaultDays, "min=1,max=30")
	if err != nil {
		respondError(w, err)
		return
	}

	buckets, err := h.reader.History(r.Context(), symbol, days)
	if err != nil {
		h.log.Errorw("Failed to load sentiment history", "symbol", symbol, "error", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"symbol":  symbol,
		"days":    days,
		"data":    buckets,
	})
}

// GetNews handles GET /sentiment/{symbol}/news?limit=
func (h *Handler) GetNews(w http.ResponseWriter, r *http.Request) {
	symbol, err := catalog.NormalizeSymbol(mux.Vars(r)["symbol"])
	if err != nil {
		respondError(w, err)
		return
	}
	limit, err := h.intParam(r, "limit", aggregator.DefaultRecentLimit, "min=1,max=100")
	if err != nil {
		respondError(w, err)
		return
	}

	records, err := h.reader.Recent(r.Context(), symbol, limit)
	if err != nil {
		h.log.Errorw("Failed to load recent sentiment", "symbol", symbol, "error", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"symbol":  symbol,
		"count":   len(records),
		"data":    records,
	})
}

// Analyze handles POST /sentiment/{symbol}/analyze
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	symbol, err := catalog.NormalizeSymbol(mux.Vars(r)["symbol"])
	if err != nil {
		respondError(w, err)
		return
	}

	name := ""
	if stock, ok := h.catalog.Lookup(symbol); ok {
		name = stock.Name
	}

	created, err := h.ingester.Ingest(r.Context(), symbol, name)
	if err != nil {
		respondError(w, err)
		return
	}

	aggregate, err := h.reader.Aggregate(r.Context(), symbol, analyzeHours*time.Hour)
	if err != nil {
		h.log.Errorw("Failed to aggregate after analysis", "symbol", symbol, "error", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"symbol":    symbol,
		"analyzed":  len(created),
		"aggregate": aggregate,
	})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]string, len(h.checks))
	allHealthy := true

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			services[name] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			services[name] = "healthy"
		}
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"services":  services,
	}
	if !allHealthy {
		health["status"] = "degraded"
	}

	respondJSON(w, http.StatusOK, health)
}

// intParam reads an optional integer query parameter and validates it against rules
func (h *Handler) intParam(r *http.Request, name string, def int, rules string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.Invalid("%s must be an integer", name)
	}
	if err := h.validate.Var(v, rules); err != nil {
		return 0, models.Invalid("%s out of range (%s)", name, rules)
	}
	return v, nil
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, models.ErrValidation) {
		status = http.StatusBadRequest
	}
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
