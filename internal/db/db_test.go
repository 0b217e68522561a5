package db

import (
	"errors"
	"path/filepath"
	"testing"
)

// migrationsDir points at the repo-level migrations from this package's
// test working directory.
const migrationsDir = "../../migrations"

func newTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	database, err := NewDB(path)
	if err != nil {
		t.Fatalf("NewDB() error: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.MigrateUp(migrationsDir); err != nil {
		t.Fatalf("MigrateUp() error: %v", err)
	}
	return database
}

func TestMigrateUpAndVersion(t *testing.T) {
	database := newTestDB(t)

	version, dirty, err := database.MigrateVersion(migrationsDir)
	if err != nil {
		t.Fatalf("MigrateVersion() error: %v", err)
	}
	if dirty {
		t.Error("expected clean migration state")
	}
	if version == 0 {
		t.Error("expected non-zero version after MigrateUp")
	}

	if err := database.CheckMigrations(migrationsDir); err != nil {
		t.Errorf("CheckMigrations() after MigrateUp: %v", err)
	}

	// Running up again is a no-op, not an error.
	if err := database.MigrateUp(migrationsDir); err != nil {
		t.Errorf("second MigrateUp() error: %v", err)
	}
}

func TestCheckMigrationsOutOfDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")
	database, err := NewDB(path)
	if err != nil {
		t.Fatalf("NewDB() error: %v", err)
	}
	defer database.Close()

	if err := database.CheckMigrations(migrationsDir); err == nil {
		t.Error("expected error for unmigrated database")
	}
}

func TestRecordAndRecentPredictions(t *testing.T) {
	database := newTestDB(t)

	recs := []PredictionRecord{
		{
			BatchID:      "batch-1",
			SourceID:     "pump-a",
			SensorConfig: "3axis",
			SampleRate:   50000,
			Class:        "imbalance",
			Confidence:   0.91,
			Probabilities: map[string]float64{
				"normal": 0.09, "imbalance": 0.91,
			},
			Success: true,
		},
		{
			BatchID:      "batch-1",
			SourceID:     "pump-b",
			SensorConfig: "3axis",
			SampleRate:   50000,
			Success:      false,
			Error:        "insufficient samples",
		},
		{
			SourceID:     "pump-a",
			SensorConfig: "axial",
			SampleRate:   25000,
			Class:        "normal",
			Confidence:   0.77,
			Success:      true,
		},
	}
	for i, rec := range recs {
		id, err := database.RecordPrediction(rec)
		if err != nil {
			t.Fatalf("RecordPrediction(%d) error: %v", i, err)
		}
		if id == 0 {
			t.Fatalf("RecordPrediction(%d) returned zero id", i)
		}
	}

	got, err := database.RecentPredictions(10, "")
	if err != nil {
		t.Fatalf("RecentPredictions() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	// Most recent first.
	if got[0].SensorConfig != "axial" {
		t.Errorf("got[0].SensorConfig = %q, want axial", got[0].SensorConfig)
	}
	if got[0].Probabilities != nil {
		t.Errorf("expected nil probabilities, got %v", got[0].Probabilities)
	}
	if got[2].Probabilities["imbalance"] != 0.91 {
		t.Errorf("probabilities round-trip failed: %v", got[2].Probabilities)
	}
	if got[1].Success || got[1].Error != "insufficient samples" {
		t.Errorf("failed row did not round-trip: %+v", got[1])
	}
	if got[2].CreatedAt.IsZero() {
		t.Error("expected non-zero timestamp")
	}

	// Filter by source.
	bySource, err := database.RecentPredictions(10, "pump-a")
	if err != nil {
		t.Fatalf("RecentPredictions(pump-a) error: %v", err)
	}
	if len(bySource) != 2 {
		t.Fatalf("got %d pump-a records, want 2", len(bySource))
	}

	// Honour the limit.
	limited, err := database.RecentPredictions(1, "")
	if err != nil {
		t.Fatalf("RecentPredictions(limit=1) error: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("got %d records, want 1", len(limited))
	}
}

func TestDeletePrediction(t *testing.T) {
	database := newTestDB(t)

	id, err := database.RecordPrediction(PredictionRecord{
		SourceID: "motor-1", SensorConfig: "3axis", SampleRate: 50000,
		Class: "normal", Confidence: 0.8, Success: true,
	})
	if err != nil {
		t.Fatalf("RecordPrediction() error: %v", err)
	}

	if err := database.DeletePrediction(id); err != nil {
		t.Errorf("DeletePrediction(%d) error: %v", id, err)
	}
	if err := database.DeletePrediction(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}

	got, err := database.RecentPredictions(10, "")
	if err != nil {
		t.Fatalf("RecentPredictions() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d records after delete, want 0", len(got))
	}
}

func TestClassDistribution(t *testing.T) {
	database := newTestDB(t)

	insert := func(class string, success bool) {
		t.Helper()
		_, err := database.RecordPrediction(PredictionRecord{
			SourceID: "m", SensorConfig: "3axis", SampleRate: 50000,
			Class: class, Success: success,
		})
		if err != nil {
			t.Fatalf("RecordPrediction() error: %v", err)
		}
	}
	insert("imbalance", true)
	insert("imbalance", true)
	insert("normal", true)
	insert("", false) // failures are excluded from the distribution

	counts, err := database.ClassDistribution()
	if err != nil {
		t.Fatalf("ClassDistribution() error: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("got %d classes, want 2", len(counts))
	}
	if counts[0].Class != "imbalance" || counts[0].Count != 2 {
		t.Errorf("counts[0] = %+v, want imbalance x2", counts[0])
	}
	if counts[1].Class != "normal" || counts[1].Count != 1 {
		t.Errorf("counts[1] = %+v, want normal x1", counts[1])
	}
}

func TestMigrateDown(t *testing.T) {
	database := newTestDB(t)

	if err := database.MigrateDown(migrationsDir); err != nil {
		t.Fatalf("MigrateDown() error: %v", err)
	}

	// The predictions table is gone.
	if _, err := database.RecordPrediction(PredictionRecord{
		SourceID: "x", SensorConfig: "3axis", SampleRate: 50000,
	}); err == nil {
		t.Error("expected insert to fail after down migration")
	}
}
