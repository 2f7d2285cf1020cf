package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/trogers1052/stock-sentiment-service/internal/metrics"
)

// SetupRoutes configures all API routes. push serves the websocket endpoint
// and may be nil.
func SetupRoutes(handler *Handler, push http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	// Health and metrics
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	if push != nil {
		r.Handle("/ws", push)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/stocks", handler.GetStocks).Methods("GET")

	// Sentiment routes
	api.HandleFunc("/sentiment", handler.GetAllSentiment).Methods("GET")
	api.HandleFunc("/sentiment/{symbol}", handler.GetSentiment).Methods("GET")
	api.HandleFunc("/sentiment/{symbol}/history", handler.GetHistory).Methods("GET")
	api.HandleFunc("/sentiment/{symbol}/news", handler.GetNews).Methods("GET")
	api.HandleFunc("/sentiment/{symbol}/analyze", handler.Analyze).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
