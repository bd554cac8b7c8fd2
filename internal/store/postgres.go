package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

// Postgres is a Store backed by PostgreSQL. Money columns are NUMERIC and
// round-trip through decimal.Decimal's Scanner/Valuer.
type Postgres struct {
	conn *sql.DB
}

// OpenPostgres connects to dsn and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db := &Postgres{conn: conn}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

func (db *Postgres) migrate(ctx context.Context) error {
	schema, err := postgresFS.ReadFile("migrations/001_postgres_schema.sql")
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}
	_, err = db.conn.ExecContext(ctx, string(schema))
	return err
}

func (db *Postgres) Close() error {
	return db.conn.Close()
}

func (db *Postgres) Get(ctx context.Context, resourceID string) (models.WasteRecommendation, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+recColumns+` FROM recommendations WHERE resource_id = $1`, resourceID)
	rec, err := scanPGRec(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.WasteRecommendation{}, fmt.Errorf("recommendation %q: %w", resourceID, ErrNotFound)
	}
	if err != nil {
		return models.WasteRecommendation{}, fmt.Errorf("querying recommendation %q: %w", resourceID, err)
	}
	return rec, nil
}

func (db *Postgres) Put(ctx context.Context, rec models.WasteRecommendation) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO recommendations (`+recColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (resource_id) DO UPDATE SET
			recommendation_id = EXCLUDED.recommendation_id,
			service_type = EXCLUDED.service_type,
			region = EXCLUDED.region,
			instance_type = EXCLUDED.instance_type,
			wastage_score = EXCLUDED.wastage_score,
			priority = EXCLUDED.priority,
			estimated_monthly_savings = EXCLUDED.estimated_monthly_savings,
			current_cost = EXCLUDED.current_cost,
			confidence_score = EXCLUDED.confidence_score,
			heuristics = EXCLUDED.heuristics,
			rationale = EXCLUDED.rationale,
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at`,
		rec.ResourceID, rec.RecommendationID, string(rec.Service), rec.Region, rec.InstanceType,
		rec.CompositeScore, string(rec.Priority), rec.EstimatedMonthlySavings, rec.CurrentCost,
		rec.Confidence, pq.Array(rec.Heuristics), rec.Rationale, string(rec.Status),
		rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing recommendation %q: %w", rec.ResourceID, err)
	}
	return nil
}

func (db *Postgres) ListByStatus(ctx context.Context, status models.Status) ([]models.WasteRecommendation, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+recColumns+` FROM recommendations WHERE status = $1 ORDER BY resource_id`, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing recommendations: %w", err)
	}
	defer rows.Close()

	var out []models.WasteRecommendation
	for rows.Next() {
		rec, err := scanPGRec(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning recommendation: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (db *Postgres) UpdateStatus(ctx context.Context, resourceID string, status models.Status, at time.Time) (models.WasteRecommendation, error) {
	row := db.conn.QueryRowContext(ctx,
		`UPDATE recommendations SET status = $1, updated_at = $2 WHERE resource_id = $3 RETURNING `+recColumns,
		string(status), at.UTC(), resourceID)
	rec, err := scanPGRec(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.WasteRecommendation{}, fmt.Errorf("recommendation %q: %w", resourceID, ErrNotFound)
	}
	if err != nil {
		return models.WasteRecommendation{}, fmt.Errorf("updating recommendation %q: %w", resourceID, err)
	}
	return rec, nil
}

func (db *Postgres) DeleteActive(ctx context.Context, resourceID string) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM recommendations WHERE resource_id = $1 AND status = $2`,
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

func (db *Postgres) PutUsage(ctx context.Context, recs []models.UsageRecord) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting usage transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO usage_records (`+usageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (resource_id, ts, usage_type, operation) DO UPDATE SET
			service_type = EXCLUDED.service_type,
			region = EXCLUDED.region,
			unblended_cost = EXCLUDED.unblended_cost,
			usage_amount = EXCLUDED.usage_amount,
			utilization = EXCLUDED.utilization,
			instance_type = EXCLUDED.instance_type,
			availability_zone = EXCLUDED.availability_zone,
			file_source = EXCLUDED.file_source`)
	if err != nil {
		return fmt.Errorf("preparing usage insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		var util sql.NullFloat64
		if v, ok := r.UtilizationValue(); ok {
			util = sql.NullFloat64{Float64: v, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, r.ResourceID, r.Timestamp.UTC(), r.UsageType, r.Operation,
			string(r.Service), r.Region, r.Cost, r.UsageQuantity, util,
			r.InstanceType, r.AvailabilityZone, r.Source); err != nil {
			return fmt.Errorf("inserting usage for %q: %w", r.ResourceID, err)
		}
	}
	return tx.Commit()
}

func (db *Postgres) UsageFor(ctx context.Context, resourceID string) ([]models.UsageRecord, error) {
	return db.queryUsage(ctx, `SELECT `+usageColumns+` FROM usage_records WHERE resource_id = $1
		ORDER BY ts, usage_type, operation`, resourceID)
}

func (db *Postgres) UsageSince(ctx context.Context, since time.Time) ([]models.UsageRecord, error) {
	return db.queryUsage(ctx, `SELECT `+usageColumns+` FROM usage_records WHERE ts >= $1
		ORDER BY ts, resource_id, usage_type, operation`, since.UTC())
}

func (db *Postgres) queryUsage(ctx context.Context, query string, args ...any) ([]models.UsageRecord, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying usage: %w", err)
	}
	defer rows.Close()

	var out []models.UsageRecord
	for rows.Next() {
		var (
			r       models.UsageRecord
			service string
			util    sql.NullFloat64
		)
		if err := rows.Scan(&r.ResourceID, &r.Timestamp, &r.UsageType, &r.Operation, &service, &r.Region,
			&r.Cost, &r.UsageQuantity, &util, &r.InstanceType, &r.AvailabilityZone, &r.Source); err != nil {
			return nil, fmt.Errorf("scanning usage: %w", err)
		}
		r.Timestamp = r.Timestamp.UTC()
		r.Service = models.ServiceType(service)
		if util.Valid {
			v := util.Float64
			r.Utilization = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *Postgres) PutPrediction(ctx context.Context, p models.Prediction) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding prediction: %w", err)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO predictions (prediction_date, body, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (prediction_date) DO UPDATE SET body = EXCLUDED.body, created_at = EXCLUDED.created_at`,
		p.PredictionDate, string(body), p.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("writing prediction %s: %w", p.PredictionDate, err)
	}
	return nil
}

func (db *Postgres) LatestPrediction(ctx context.Context) (models.Prediction, error) {
	var body []byte
	err := db.conn.QueryRowContext(ctx,
		`SELECT body FROM predictions ORDER BY prediction_date DESC LIMIT 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Prediction{}, fmt.Errorf("latest prediction: %w", ErrNotFound)
	}
	if err != nil {
		return models.Prediction{}, fmt.Errorf("querying latest prediction: %w", err)
	}
	var p models.Prediction
	if err := json.Unmarshal(body, &p); err != nil {
		return models.Prediction{}, fmt.Errorf("decoding prediction: %w", err)
	}
	return p, nil
}

func scanPGRec(s scanner) (models.WasteRecommendation, error) {
	var (
		rec                       models.WasteRecommendation
		service, priority, status string
	)
	if err := s.Scan(&rec.ResourceID, &rec.RecommendationID, &service, &rec.Region, &rec.InstanceType,
		&rec.CompositeScore, &priority, &rec.EstimatedMonthlySavings, &rec.CurrentCost, &rec.Confidence,
		pq.Array(&rec.Heuristics), &rec.Rationale, &status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return rec, err
	}
	rec.Service = models.ServiceType(service)
	rec.Priority = models.Priority(priority)
	rec.Status = models.Status(status)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}
