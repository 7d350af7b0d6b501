// Package store persists scored posting records in SQLite.
// It is a narrow collaborator of the batch engine: records go in, records
// come out; the engine never depends on the storage technology.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anatolykoptev/go_match/internal/engine/match"
)

// Store wraps the SQLite database holding posting records.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("store: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS postings (
		job_id          TEXT PRIMARY KEY,
		title           TEXT NOT NULL,
		company         TEXT NOT NULL,
		company_norm    TEXT,
		location        TEXT,
		location_norm   TEXT,
		description     TEXT,
		posted_at       TEXT,
		collected_at    TEXT NOT NULL,
		employment_type TEXT,
		seniority       TEXT,
		skills          TEXT,
		skills_meta     TEXT,
		score_total     REAL,
		score_breakdown TEXT,
		status          TEXT NOT NULL DEFAULT 'new'
	)`)
	return err
}

// UpsertRecords writes records, replacing existing rows by job_id.
func (s *Store) UpsertRecords(ctx context.Context, records []*match.PostingRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO postings
		(job_id, title, company, company_norm, location, location_norm,
		 description, posted_at, collected_at, employment_type, seniority,
		 skills, skills_meta, score_total, score_breakdown, status)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(job_id) DO UPDATE SET
		 title=excluded.title, company=excluded.company,
		 company_norm=excluded.company_norm, location=excluded.location,
		 location_norm=excluded.location_norm, description=excluded.description,
		 posted_at=excluded.posted_at, collected_at=excluded.collected_at,
		 employment_type=excluded.employment_type, seniority=excluded.seniority,
		 skills=excluded.skills, skills_meta=excluded.skills_meta,
		 score_total=excluded.score_total, score_breakdown=excluded.score_breakdown,
		 status=excluded.status`)
	if err != nil {
		return fmt.Errorf("store: prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		skills, _ := json.Marshal(rec.SkillsExtracted)
		meta, _ := json.Marshal(rec.SkillsMeta)
		breakdown, _ := json.Marshal(rec.ScoreBreakdown)

		var postedAt any
		if rec.PostedAt != nil {
			postedAt = rec.PostedAt.UTC().Format("2006-01-02")
		}
		if _, err := stmt.ExecContext(ctx,
			rec.JobID, rec.Title, rec.CompanyName, rec.CompanyNameNormalized,
			rec.Location, rec.LocationNormalized, rec.DescriptionClean,
			postedAt, rec.CollectedAt.UTC().Format(time.RFC3339),
			rec.EmploymentType, rec.SeniorityLevel,
			string(skills), string(meta), rec.ScoreTotal, string(breakdown),
			string(rec.Status),
		); err != nil {
			return fmt.Errorf("store: upsert %s: %w", rec.JobID, err)
		}
	}
	return tx.Commit()
}

// FetchAll loads every stored record, newest collected first.
func (s *Store) FetchAll(ctx context.Context) ([]*match.PostingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		job_id, title, company, company_norm, location, location_norm,
		description, posted_at, collected_at, employment_type, seniority,
		skills, skills_meta, score_total, score_breakdown, status
		FROM postings ORDER BY collected_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: fetch: %w", err)
	}
	defer rows.Close()

	var out []*match.PostingRecord
	for rows.Next() {
		var (
			rec         match.PostingRecord
			postedAt    sql.NullString
			collectedAt string
			skills      sql.NullString
			meta        sql.NullString
			scoreTotal  sql.NullFloat64
			breakdown   sql.NullString
			status      string
		)
		if err := rows.Scan(
			&rec.JobID, &rec.Title, &rec.CompanyName, &rec.CompanyNameNormalized,
			&rec.Location, &rec.LocationNormalized, &rec.DescriptionClean,
			&postedAt, &collectedAt, &rec.EmploymentType, &rec.SeniorityLevel,
			&skills, &meta, &scoreTotal, &breakdown, &status,
		); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		if postedAt.Valid {
			if t, err := time.Parse("2006-01-02", postedAt.String); err == nil {
				rec.PostedAt = &t
			}
		}
		if t, err := time.Parse(time.RFC3339, collectedAt); err == nil {
			rec.CollectedAt = t
		}
		if skills.Valid {
			json.Unmarshal([]byte(skills.String), &rec.SkillsExtracted)
		}
		if meta.Valid && meta.String != "null" {
			var sm match.SkillsMeta
			if json.Unmarshal([]byte(meta.String), &sm) == nil {
				rec.SkillsMeta = &sm
			}
		}
		if scoreTotal.Valid {
			rec.ScoreTotal = scoreTotal.Float64
		}
		if breakdown.Valid {
			json.Unmarshal([]byte(breakdown.String), &rec.ScoreBreakdown)
		}
		rec.Status = match.Status(status)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// UpdateScore rewrites the score total and breakdown of a single record.
func (s *Store) UpdateScore(ctx context.Context, jobID string, total float64, breakdown map[string]float64) error {
	data, err := json.Marshal(breakdown)
	if err != nil {
		return fmt.Errorf("store: marshal breakdown: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE postings SET score_total = ?, score_breakdown = ? WHERE job_id = ?`,
		total, string(data), jobID)
	if err != nil {
		return fmt.Errorf("store: update score: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: no posting with job_id %q", jobID)
	}
	return nil
}

// UpdateStatus sets the status of a single record.
func (s *Store) UpdateStatus(ctx context.Context, jobID string, status match.Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE postings SET status = ? WHERE job_id = ?`, string(status), jobID)
	if err != nil {
		return fmt.Errorf("store: update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: no posting with job_id %q", jobID)
	}
	return nil
}
