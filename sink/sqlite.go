package sink

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/use-agent/placescout/models"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// SQLite stores every run, with its records in DOM order, in a SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeIO, "open sqlite database", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, models.NewScrapeError(models.ErrCodeIO, "apply sqlite schema", err)
	}
	return &SQLite{db: db}, nil
}

// Save inserts one run and its records in a single transaction and returns the run id.
func (s *SQLite) Save(ctx context.Context, q models.SearchQuery, records []models.ResultRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, models.NewScrapeError(models.ErrCodeIO, "begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (term, country, scraped_at, record_count) VALUES (?, ?, ?, ?)`,
		q.Term, q.Country, time.Now().Unix(), len(records),
	)
	if err != nil {
		return 0, models.NewScrapeError(models.ErrCodeIO, "insert run", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, models.NewScrapeError(models.ErrCodeIO, "read run id", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO places (run_id, position, name, latitude, longitude, address, country, type)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, models.NewScrapeError(models.ErrCodeIO, "prepare insert", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, runID, i, r.Name, nullFloat(r.Latitude), nullFloat(r.Longitude), r.Address, r.Country, r.Type); err != nil {
			return 0, models.NewScrapeError(models.ErrCodeIO, fmt.Sprintf("insert record %d", i), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, models.NewScrapeError(models.ErrCodeIO, "commit run", err)
	}
	return runID, nil
}

// Records loads the records of a run in their original order.
func (s *SQLite) Records(ctx context.Context, runID int64) ([]models.ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, latitude, longitude, address, country, type
		 FROM places WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeIO, "query records", err)
	}
	defer rows.Close()

	out := []models.ResultRecord{}
	for rows.Next() {
		var (
			r        models.ResultRecord
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&r.Name, &lat, &lon, &r.Address, &r.Country, &r.Type); err != nil {
			return nil, models.NewScrapeError(models.ErrCodeIO, "scan record", err)
		}
		if lat.Valid {
			r.Latitude = &lat.Float64
		}
		if lon.Valid {
			r.Longitude = &lon.Float64
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeIO, "iterate records", err)
	}
	return out, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
