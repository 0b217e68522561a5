package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/rotor-data/vibration.report/internal/classify"
	"github.com/rotor-data/vibration.report/internal/db"
	"github.com/rotor-data/vibration.report/internal/model"
	"github.com/rotor-data/vibration.report/internal/version"
	"github.com/rotor-data/vibration.report/internal/vibration"
)

// maxBodyBytes bounds request bodies; a full batch of raw waveforms is
// large but finite.
const maxBodyBytes = 256 << 20

// predictItem is one recording in a request body.
type predictItem struct {
	SourceID         string      `json:"source_id"`
	SensorConfig     string      `json:"sensor_config"`
	DecimationFactor int         `json:"decimation_factor"`
	Channels         [][]float64 `json:"channels"`
}

// toItem converts the wire form to a pipeline item. A zero decimation
// factor means no decimation.
func (p predictItem) toItem() (classify.Item, error) {
	cfg, err := vibration.ParseSensorConfig(p.SensorConfig)
	if err != nil {
		return classify.Item{}, err
	}
	factor := p.DecimationFactor
	if factor == 0 {
		factor = 1
	}
	if !vibration.ValidFactor(factor) {
		return classify.Item{}, fmt.Errorf("invalid decimation factor %d", factor)
	}
	return classify.Item{
		SourceID:  p.SourceID,
		Recording: &vibration.Recording{Channels: p.Channels},
		Config:    cfg,
		Factor:    factor,
	}, nil
}

type predictResponse struct {
	SourceID   string            `json:"source_id"`
	ModelKey   string            `json:"model_key"`
	Prediction *model.Prediction `json:"prediction"`
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req predictItem
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	item, err := req.toItem()
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	pred, key, err := s.pipeline.ClassifyRecording(item.Recording, item.Config, item.Factor)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, model.ErrUnknownModelKey) {
			status = http.StatusNotFound
		}
		s.recordOutcome(db.PredictionRecord{
			SourceID:     item.SourceID,
			SensorConfig: string(item.Config),
			SampleRate:   key.SampleRate,
			Error:        err.Error(),
		})
		s.writeJSONError(w, status, err.Error())
		return
	}

	s.recordOutcome(predictionToRecord("", item, key, pred))

	if err := json.NewEncoder(w).Encode(predictResponse{
		SourceID:   item.SourceID,
		ModelKey:   key.String(),
		Prediction: pred,
	}); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to write prediction")
	}
}

type batchRequest struct {
	Items []predictItem `json:"items"`
}

func (s *Server) predictBatch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req batchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if len(req.Items) == 0 {
		s.writeJSONError(w, http.StatusBadRequest, "batch has no items")
		return
	}

	items := make([]classify.Item, len(req.Items))
	for i, p := range req.Items {
		item, err := p.toItem()
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest,
				fmt.Sprintf("item %d: %v", i, err))
			return
		}
		items[i] = item
	}

	result := s.pipeline.ClassifyBatch(r.Context(), items, s.tuning.GetBatchWorkers())

	for i, itemResult := range result.Items {
		rec := db.PredictionRecord{
			BatchID:      result.BatchID,
			SourceID:     itemResult.SourceID,
			SensorConfig: string(items[i].Config),
			SampleRate:   vibration.EffectiveRate(items[i].Factor),
			Success:      itemResult.Success,
			Error:        itemResult.Error,
		}
		if itemResult.Success {
			rec.Class = string(itemResult.Prediction.Class)
			rec.Confidence = itemResult.Prediction.Confidence
			rec.Probabilities = probabilityMap(itemResult.Prediction)
		}
		s.recordOutcome(rec)
	}

	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to write batch result")
	}
}

// listFeatures serves the frozen feature-name order on GET, and on POST
// computes the named feature values for a submitted recording so displayed
// statistics are exactly the numbers the classifier consumes.
func (s *Server) listFeatures(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		s.computeFeatures(w, r)
		return
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	cfgName := r.URL.Query().Get("sensor_config")
	if cfgName == "" {
		cfgName = string(vibration.ThreeAxis)
	}
	cfg, err := vibration.ParseSensorConfig(cfgName)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := map[string]interface{}{
		"sensor_config": cfg,
		"feature_names": vibration.FeatureNames(cfg),
		"vector_length": cfg.VectorLength(),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to write features")
	}
}

func (s *Server) computeFeatures(w http.ResponseWriter, r *http.Request) {
	var req predictItem
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	item, err := req.toItem()
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	values, names, err := s.pipeline.ExtractFeatures(item.Recording, item.Config, item.Factor)
	if err != nil {
		s.writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	features := make(map[string]float64, len(names))
	for i, name := range names {
		features[name] = values[i]
	}
	resp := map[string]interface{}{
		"sensor_config": item.Config,
		"sample_rate":   vibration.EffectiveRate(item.Factor),
		"features":      features,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to write features")
	}
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	keys := s.pipeline.Registry().Keys()
	models := make([]map[string]interface{}, len(keys))
	for i, k := range keys {
		models[i] = map[string]interface{}{
			"key":           k.String(),
			"sensor_config": k.Config,
			"sample_rate":   k.SampleRate,
		}
	}
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"models": models}); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to write models")
	}
}

func (s *Server) recentPredictions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "prediction history is disabled")
		return
	}

	limit := s.tuning.GetHistoryLimit()
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	records, err := s.db.RecentPredictions(limit, r.URL.Query().Get("source_id"))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to retrieve predictions: %v", err))
		return
	}
	if records == nil {
		records = []db.PredictionRecord{}
	}

	if err := json.NewEncoder(w).Encode(records); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to write predictions")
	}
}

func (s *Server) deletePrediction(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodDelete {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "prediction history is disabled")
		return
	}

	idText := strings.TrimPrefix(r.URL.Path, "/api/predictions/")
	id, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid prediction id")
		return
	}

	if err := s.db.DeletePrediction(id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "prediction not found")
			return
		}
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to delete prediction: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(map[string]int64{"deleted": id}); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (s *Server) predictionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "prediction history is disabled")
		return
	}

	counts, err := s.db.ClassDistribution()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to retrieve stats: %v", err))
		return
	}
	if counts == nil {
		counts = []db.ClassCount{}
	}

	if err := json.NewEncoder(w).Encode(map[string]interface{}{"class_counts": counts}); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to write stats")
	}
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	cfg := map[string]interface{}{
		"min_window_samples": s.tuning.GetMinWindowSamples(),
		"batch_workers":      s.tuning.GetBatchWorkers(),
		"history_limit":      s.tuning.GetHistoryLimit(),
		"base_sample_rate":   vibration.BaseSampleRate,
		"decimation_factors": vibration.DecimationFactors,
	}

	if err := json.NewEncoder(w).Encode(cfg); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to write config")
	}
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	info := map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	}
	if err := json.NewEncoder(w).Encode(info); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to write version")
	}
}

// recordOutcome persists one outcome row, logging instead of failing the
// request when the store is unavailable.
func (s *Server) recordOutcome(rec db.PredictionRecord) {
	if s.db == nil {
		return
	}
	if _, err := s.db.RecordPrediction(rec); err != nil {
		log.Printf("failed to record prediction for %q: %v", rec.SourceID, err)
	}
}

func probabilityMap(p *model.Prediction) map[string]float64 {
	out := make(map[string]float64, len(p.Probabilities))
	for class, prob := range p.Probabilities {
		out[string(class)] = prob
	}
	return out
}

func predictionToRecord(batchID string, item classify.Item, key model.Key, pred *model.Prediction) db.PredictionRecord {
	return db.PredictionRecord{
		BatchID:       batchID,
		SourceID:      item.SourceID,
		SensorConfig:  string(item.Config),
		SampleRate:    key.SampleRate,
		Class:         string(pred.Class),
		Confidence:    pred.Confidence,
		Probabilities: probabilityMap(pred),
		Success:       true,
	}
}
