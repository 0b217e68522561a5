package classify

import (
	"context"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/rotor-data/vibration.report/internal/model"
	"github.com/rotor-data/vibration.report/internal/vibration"
)

// Item is one recording submitted for batch classification.
type Item struct {
	// SourceID is a caller-supplied identifier echoed back in the result.
	SourceID  string
	Recording *vibration.Recording
	Config    vibration.SensorConfig
	Factor    int
}

// ItemResult is the per-item outcome. A failed item carries the error text
// and a nil prediction; its failure never affects the other items.
type ItemResult struct {
	SourceID   string            `json:"source_id"`
	Success    bool              `json:"success"`
	ModelKey   string            `json:"model_key,omitempty"`
	Prediction *model.Prediction `json:"prediction,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Summary aggregates the successful items of one batch.
type Summary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`

	// MostCommonClass is the modal predicted class over successful items,
	// with ties resolved to the lowest class index. Empty when no item
	// succeeded. The percentage is of successful items, rounded to two
	// decimal places.
	MostCommonClass      model.FaultClass `json:"most_common_class,omitempty"`
	MostCommonCount      int              `json:"most_common_count"`
	MostCommonPercentage float64          `json:"most_common_percentage"`

	// MeanProbabilities averages the per-class probabilities over
	// successful items only. Nil when no item succeeded.
	MeanProbabilities map[model.FaultClass]float64 `json:"mean_probabilities,omitempty"`
}

// BatchResult carries the per-item results in submission order plus the
// batch summary.
type BatchResult struct {
	BatchID string       `json:"batch_id"`
	Items   []ItemResult `json:"items"`
	Summary Summary      `json:"summary"`
}

// ClassifyBatch classifies the items concurrently on a pool of workers
// and returns results in submission order. Cancelling the context stops
// the pool; items not yet started are marked failed with the context
// error. workers below 1 is treated as 1.
func (p *Pipeline) ClassifyBatch(ctx context.Context, items []Item, workers int) *BatchResult {
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	results := make([]ItemResult, len(items))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = p.classifyItem(items[i])
			}
		}()
	}

feed:
	for i := range items {
		select {
		case indexes <- i:
		case <-ctx.Done():
			// Mark everything not yet dispatched as failed.
			for j := i; j < len(items); j++ {
				results[j] = ItemResult{SourceID: items[j].SourceID, Error: ctx.Err().Error()}
			}
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	return &BatchResult{
		BatchID: uuid.NewString(),
		Items:   results,
		Summary: summarize(results),
	}
}

func (p *Pipeline) classifyItem(item Item) ItemResult {
	pred, key, err := p.ClassifyRecording(item.Recording, item.Config, item.Factor)
	if err != nil {
		return ItemResult{SourceID: item.SourceID, ModelKey: key.String(), Error: err.Error()}
	}
	return ItemResult{
		SourceID:   item.SourceID,
		Success:    true,
		ModelKey:   key.String(),
		Prediction: pred,
	}
}

func summarize(results []ItemResult) Summary {
	s := Summary{Total: len(results)}

	counts := make(map[model.FaultClass]int)
	sums := make(map[model.FaultClass]float64)
	for _, r := range results {
		if !r.Success {
			continue
		}
		s.Successful++
		counts[r.Prediction.Class]++
		for class, p := range r.Prediction.Probabilities {
			sums[class] += p
		}
	}
	if s.Successful == 0 {
		return s
	}

	// Modal class, ties to the lowest class index.
	best := -1
	for i, class := range model.Classes {
		if best == -1 || counts[class] > counts[model.Classes[best]] {
			best = i
		}
	}
	s.MostCommonClass = model.Classes[best]
	s.MostCommonCount = counts[s.MostCommonClass]
	s.MostCommonPercentage = math.Round(float64(s.MostCommonCount)/float64(s.Successful)*10000) / 100

	s.MeanProbabilities = make(map[model.FaultClass]float64, len(sums))
	for class, sum := range sums {
		s.MeanProbabilities[class] = sum / float64(s.Successful)
	}
	return s
}
