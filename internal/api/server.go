// Package api exposes the classification pipeline and prediction history
// over HTTP.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/rotor-data/vibration.report/internal/classify"
	"github.com/rotor-data/vibration.report/internal/config"
	"github.com/rotor-data/vibration.report/internal/db"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	pipeline *classify.Pipeline
	db       *db.DB
	tuning   *config.TuningConfig
}

// NewServer wires the handlers to a pipeline, a history store and the
// tuning configuration. The db may be nil, in which case predictions are
// served but not persisted and the history endpoints report an error.
func NewServer(pipeline *classify.Pipeline, database *db.DB, tuning *config.TuningConfig) *Server {
	return &Server{
		pipeline: pipeline,
		db:       database,
		tuning:   tuning,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/predict", s.predict)
	mux.HandleFunc("/api/predict/batch", s.predictBatch)
	mux.HandleFunc("/api/features", s.listFeatures)
	mux.HandleFunc("/api/models", s.listModels)
	mux.HandleFunc("/api/predictions/recent", s.recentPredictions)
	mux.HandleFunc("/api/predictions/", s.deletePrediction)
	mux.HandleFunc("/api/predictions/stats", s.predictionStats)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/version", s.showVersion)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
