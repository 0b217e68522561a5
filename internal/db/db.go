// Package db stores classification results in SQLite so past predictions
// can be queried, audited and summarised.
package db

import (
	"compress/gzip"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"
)

// ErrNotFound indicates the requested prediction row does not exist.
var ErrNotFound = errors.New("prediction not found")

type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the SQLite database at path. The schema is
// managed by migrations, so callers normally follow this with MigrateUp.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; serialise access through a single
	// connection instead of surfacing SQLITE_BUSY to callers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	return &DB{db}, nil
}

// PredictionRecord is one stored classification outcome. Failed items are
// stored too, with Success false and the error text, so batch history is
// complete.
type PredictionRecord struct {
	ID            int64              `json:"id"`
	BatchID       string             `json:"batch_id,omitempty"`
	SourceID      string             `json:"source_id"`
	SensorConfig  string             `json:"sensor_config"`
	SampleRate    int                `json:"sample_rate"`
	Class         string             `json:"predicted_class,omitempty"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
	Success       bool               `json:"success"`
	Error         string             `json:"error,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// RecordPrediction inserts one prediction row and returns its id.
func (db *DB) RecordPrediction(rec PredictionRecord) (int64, error) {
	var probsJSON []byte
	if rec.Probabilities != nil {
		var err error
		probsJSON, err = json.Marshal(rec.Probabilities)
		if err != nil {
			return 0, fmt.Errorf("failed to encode probabilities: %w", err)
		}
	}

	res, err := db.Exec(
		`INSERT INTO predictions (
			batch_id, source_id, sensor_config, sample_rate,
			predicted_class, confidence, probabilities, success, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.BatchID, rec.SourceID, rec.SensorConfig, rec.SampleRate,
		rec.Class, rec.Confidence, string(probsJSON), rec.Success, rec.Error,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentPredictions returns the newest rows, most recent first. A non-empty
// sourceID restricts the result to one source.
func (db *DB) RecentPredictions(limit int, sourceID string) ([]PredictionRecord, error) {
	query := `SELECT id, batch_id, source_id, sensor_config, sample_rate,
		predicted_class, confidence, probabilities, success, error, timestamp
		FROM predictions`
	args := []any{}
	if sourceID != "" {
		query += " WHERE source_id = ?"
		args = append(args, sourceID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PredictionRecord
	for rows.Next() {
		var rec PredictionRecord
		var probsJSON string
		if err := rows.Scan(
			&rec.ID,
			&rec.BatchID,
			&rec.SourceID,
			&rec.SensorConfig,
			&rec.SampleRate,
			&rec.Class,
			&rec.Confidence,
			&probsJSON,
			&rec.Success,
			&rec.Error,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		if probsJSON != "" {
			if err := json.Unmarshal([]byte(probsJSON), &rec.Probabilities); err != nil {
				return nil, fmt.Errorf("failed to decode probabilities for row %d: %w", rec.ID, err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// DeletePrediction removes one row by id. Deleting a missing row returns
// ErrNotFound.
func (db *DB) DeletePrediction(id int64) error {
	res, err := db.Exec("DELETE FROM predictions WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

// ClassCount is one row of the per-class distribution.
type ClassCount struct {
	Class string `json:"predicted_class"`
	Count int64  `json:"count"`
}

// ClassDistribution returns how many successful predictions landed in each
// class, largest first.
func (db *DB) ClassDistribution() ([]ClassCount, error) {
	rows, err := db.Query(`SELECT predicted_class, COUNT(*) FROM predictions
		WHERE success = 1 GROUP BY predicted_class ORDER BY COUNT(*) DESC, predicted_class`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []ClassCount
	for rows.Next() {
		var c ClassCount
		if err := rows.Scan(&c.Class, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	// create a tailSQL instance and point it to our DB
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://predictions.db", db.DB, &tailsql.DBOptions{
		Label: "Predictions DB",
	})

	// mount the tailSQL server on the debug /tailsql path
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unixTime := time.Now().Unix()
		backupPath := fmt.Sprintf("backup-%d.db", unixTime)
		if _, err := db.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Encoding", "gzip")

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}

		// close the backup file after sending it
		// and remove it from the filesystem
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				log.Printf("Failed to remove backup file: %v", err)
			}
		}()

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()
		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			http.Error(w, fmt.Sprintf("Failed to write backup file: %v", err), http.StatusInternalServerError)
			return
		}
	}))
}
