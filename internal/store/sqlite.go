package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

const tsLayout = "2006-01-02T15:04:05Z"

// SQLite is a Store backed by a local SQLite database file.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and initialises
// the schema. Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite serialises writers; one connection also keeps ":memory:" stable.
	conn.SetMaxOpenConns(1)

	db := &SQLite{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return db, nil
}

func (db *SQLite) Close() error {
	return db.conn.Close()
}

func (db *SQLite) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS recommendations (
		resource_id TEXT PRIMARY KEY,
		recommendation_id TEXT NOT NULL,
		service_type TEXT NOT NULL,
		region TEXT,
		instance_type TEXT,
		wastage_score REAL NOT NULL,
		priority TEXT NOT NULL,
		estimated_monthly_savings TEXT NOT NULL,
		current_cost TEXT NOT NULL,
		confidence_score REAL NOT NULL,
		heuristics TEXT NOT NULL,
		rationale TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_recommendations_status ON recommendations(status);

	CREATE TABLE IF NOT EXISTS usage_records (
		resource_id TEXT NOT NULL,
		ts TEXT NOT NULL,
		usage_type TEXT NOT NULL DEFAULT '',
		operation TEXT NOT NULL DEFAULT '',
		service_type TEXT NOT NULL,
		region TEXT,
		unblended_cost TEXT NOT NULL,
		usage_amount TEXT NOT NULL,
		utilization REAL,
		instance_type TEXT,
		availability_zone TEXT,
		file_source TEXT,
		PRIMARY KEY (resource_id, ts, usage_type, operation)
	);
	CREATE INDEX IF NOT EXISTS idx_usage_ts ON usage_records(ts);

	CREATE TABLE IF NOT EXISTS predictions (
		prediction_date TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

const recColumns = `resource_id, recommendation_id, service_type, region, instance_type, wastage_score,
	priority, estimated_monthly_savings, current_cost, confidence_score, heuristics, rationale,
	status, created_at, updated_at`

func (db *SQLite) Get(ctx context.Context, resourceID string) (models.WasteRecommendation, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+recColumns+` FROM recommendations WHERE resource_id = ?`, resourceID)
	rec, err := scanRec(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.WasteRecommendation{}, fmt.Errorf("recommendation %q: %w", resourceID, ErrNotFound)
	}
	if err != nil {
		return models.WasteRecommendation{}, fmt.Errorf("querying recommendation %q: %w", resourceID, err)
	}
	return rec, nil
}

func (db *SQLite) Put(ctx context.Context, rec models.WasteRecommendation) error {
	heuristics, err := json.Marshal(rec.Heuristics)
	if err != nil {
		return fmt.Errorf("encoding heuristics: %w", err)
	}
	_, err = db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO recommendations (`+recColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ResourceID, rec.RecommendationID, string(rec.Service), rec.Region, rec.InstanceType,
		rec.CompositeScore, string(rec.Priority), rec.EstimatedMonthlySavings.String(),
		rec.CurrentCost.String(), rec.Confidence, string(heuristics), rec.Rationale,
		string(rec.Status), formatTS(rec.CreatedAt), formatTS(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("writing recommendation %q: %w", rec.ResourceID, err)
	}
	return nil
}

func (db *SQLite) ListByStatus(ctx context.Context, status models.Status) ([]models.WasteRecommendation, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+recColumns+` FROM recommendations WHERE status = ? ORDER BY resource_id`, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing recommendations: %w", err)
	}
	defer rows.Close()

	var out []models.WasteRecommendation
	for rows.Next() {
		rec, err := scanRec(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning recommendation: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (db *SQLite) UpdateStatus(ctx context.Context, resourceID string, status models.Status, at time.Time) (models.WasteRecommendation, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE recommendations SET status = ?, updated_at = ? WHERE resource_id = ?`,
		string(status), formatTS(at), resourceID)
	if err != nil {
		return models.WasteRecommendation{}, fmt.Errorf("updating recommendation %q: %w", resourceID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.WasteRecommendation{}, fmt.Errorf("recommendation %q: %w", resourceID, ErrNotFound)
	}
	return db.Get(ctx, resourceID)
}

func (db *SQLite) DeleteActive(ctx context.Context, resourceID string) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM recommendations WHERE resource_id = ? AND status = ?`,
		resourceID, string(models.StatusActive))
	if err != nil {
		return false, fmt.Errorf("deleting recommendation %q: %w", resourceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting recommendation %q: %w", resourceID, err)
	}
	return n > 0, nil
}

func (db *SQLite) PutUsage(ctx context.Context, recs []models.UsageRecord) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting usage transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO usage_records
		(resource_id, ts, usage_type, operation, service_type, region, unblended_cost, usage_amount,
		 utilization, instance_type, availability_zone, file_source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing usage insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		var util sql.NullFloat64
		if v, ok := r.UtilizationValue(); ok {
			util = sql.NullFloat64{Float64: v, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, r.ResourceID, formatTS(r.Timestamp), r.UsageType, r.Operation,
			string(r.Service), r.Region, r.Cost.String(), r.UsageQuantity.String(), util,
			r.InstanceType, r.AvailabilityZone, r.Source); err != nil {
			return fmt.Errorf("inserting usage for %q: %w", r.ResourceID, err)
		}
	}
	return tx.Commit()
}

const usageColumns = `resource_id, ts, usage_type, operation, service_type, region, unblended_cost,
	usage_amount, utilization, instance_type, availability_zone, file_source`

func (db *SQLite) UsageFor(ctx context.Context, resourceID string) ([]models.UsageRecord, error) {
	return db.queryUsage(ctx, `SELECT `+usageColumns+` FROM usage_records WHERE resource_id = ?
		ORDER BY ts, usage_type, operation`, resourceID)
}

func (db *SQLite) UsageSince(ctx context.Context, since time.Time) ([]models.UsageRecord, error) {
	return db.queryUsage(ctx, `SELECT `+usageColumns+` FROM usage_records WHERE ts >= ?
		ORDER BY ts, resource_id, usage_type, operation`, formatTS(since))
}

func (db *SQLite) queryUsage(ctx context.Context, query string, args ...any) ([]models.UsageRecord, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying usage: %w", err)
	}
	defer rows.Close()

	var out []models.UsageRecord
	for rows.Next() {
		var (
			r                models.UsageRecord
			ts, service      string
			cost, qty        string
			util             sql.NullFloat64
			region, instType sql.NullString
			az, source       sql.NullString
		)
		if err := rows.Scan(&r.ResourceID, &ts, &r.UsageType, &r.Operation, &service, &region,
			&cost, &qty, &util, &instType, &az, &source); err != nil {
			return nil, fmt.Errorf("scanning usage: %w", err)
		}
		if r.Timestamp, err = parseTS(ts); err != nil {
			return nil, err
		}
		if r.Cost, err = decimal.NewFromString(cost); err != nil {
			return nil, fmt.Errorf("parsing cost: %w", err)
		}
		if r.UsageQuantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("parsing usage amount: %w", err)
		}
		if util.Valid {
			v := util.Float64
			r.Utilization = &v
		}
		r.Service = models.ServiceType(service)
		r.Region, r.InstanceType = region.String, instType.String
		r.AvailabilityZone, r.Source = az.String, source.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *SQLite) PutPrediction(ctx context.Context, p models.Prediction) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding prediction: %w", err)
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO predictions (prediction_date, body, created_at) VALUES (?, ?, ?)`,
		p.PredictionDate, string(body), formatTS(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("writing prediction %s: %w", p.PredictionDate, err)
	}
	return nil
}

func (db *SQLite) LatestPrediction(ctx context.Context) (models.Prediction, error) {
	var body string
	err := db.conn.QueryRowContext(ctx,
		`SELECT body FROM predictions ORDER BY prediction_date DESC LIMIT 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Prediction{}, fmt.Errorf("latest prediction: %w", ErrNotFound)
	}
	if err != nil {
		return models.Prediction{}, fmt.Errorf("querying latest prediction: %w", err)
	}
	var p models.Prediction
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return models.Prediction{}, fmt.Errorf("decoding prediction: %w", err)
	}
	return p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRec(s scanner) (models.WasteRecommendation, error) {
	var (
		rec                         models.WasteRecommendation
		service, priority, status   string
		savings, cost, heuristics   string
		region, instType, rationale sql.NullString
		created, updated            string
	)
	if err := s.Scan(&rec.ResourceID, &rec.RecommendationID, &service, &region, &instType,
		&rec.CompositeScore, &priority, &savings, &cost, &rec.Confidence, &heuristics, &rationale,
		&status, &created, &updated); err != nil {
		return rec, err
	}
	var err error
	if rec.EstimatedMonthlySavings, err = decimal.NewFromString(savings); err != nil {
		return rec, fmt.Errorf("parsing savings: %w", err)
	}
	if rec.CurrentCost, err = decimal.NewFromString(cost); err != nil {
		return rec, fmt.Errorf("parsing current cost: %w", err)
	}
	if err := json.Unmarshal([]byte(heuristics), &rec.Heuristics); err != nil {
		return rec, fmt.Errorf("decoding heuristics: %w", err)
	}
	if rec.CreatedAt, err = parseTS(created); err != nil {
		return rec, err
	}
	if rec.UpdatedAt, err = parseTS(updated); err != nil {
		return rec, err
	}
	rec.Service = models.ServiceType(service)
	rec.Priority = models.Priority(priority)
	rec.Status = models.Status(status)
	rec.Region, rec.InstanceType, rec.Rationale = region.String, instType.String, rationale.String
	return rec, nil
}

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
