package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/brightpath/campaign-monitor/internal/analysis"
	"github.com/brightpath/campaign-monitor/internal/domain"
)

// ResultRepo implements analysis.ResultStore against PostgreSQL. The
// recommendation list and metric evidence are JSONB columns written in the
// same transaction as the row, so an alert is never visible half-built.
type ResultRepo struct{ db *sql.DB }

// NewResultRepo creates a Postgres-backed result store.
func NewResultRepo(db *sql.DB) *ResultRepo { return &ResultRepo{db: db} }

// Create inserts a result atomically.
func (r *ResultRepo) Create(ctx context.Context, res *domain.AnalysisResult) error {
	recs, err := json.Marshal(res.Recommendations)
	if err != nil {
		return fmt.Errorf("encode recommendations: %w", err)
	}
	data, err := json.Marshal(res.MetricData)
	if err != nil {
		return fmt.Errorf("encode metric data: %w", err)
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO analysis_results
				(id, campaign_id, analysis_type, date_detected, severity,
				 metric_affected, description, recommendations, metric_data)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, res.ID, res.CampaignID, res.Kind, res.DateDetected, res.Severity,
			res.Metric, res.Description, recs, data)
		if err != nil {
			return fmt.Errorf("insert analysis result: %w", err)
		}
		return nil
	})
}

func (r *ResultRepo) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const resultColumns = `id, campaign_id, analysis_type, date_detected, severity,
	       metric_affected, description, recommendations, metric_data, created_at`

// List returns results matching the filter, newest first.
func (r *ResultRepo) List(ctx context.Context, f analysis.ListFilter) ([]domain.AnalysisResult, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	q := `
		SELECT ` + resultColumns + `
		FROM analysis_results
		WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if f.CampaignID != nil {
		q += fmt.Sprintf(" AND campaign_id = $%d", idx)
		args = append(args, *f.CampaignID)
		idx++
	}
	if f.Severity != "" {
		q += fmt.Sprintf(" AND severity = $%d", idx)
		args = append(args, f.Severity)
		idx++
	}
	if f.Kind != "" {
		q += fmt.Sprintf(" AND analysis_type = $%d", idx)
		args = append(args, f.Kind)
		idx++
	}
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list analysis results: %w", err)
	}
	defer rows.Close()

	var out []domain.AnalysisResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Get returns a single result. Returns analysis.ErrNotFound if absent.
func (r *ResultRepo) Get(ctx context.Context, id string) (*domain.AnalysisResult, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+resultColumns+`
		FROM analysis_results
		WHERE id = $1
	`, id)

	res, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, analysis.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func scanResult(row rowScanner) (domain.AnalysisResult, error) {
	var res domain.AnalysisResult
	var recs, data []byte
	err := row.Scan(
		&res.ID, &res.CampaignID, &res.Kind, &res.DateDetected, &res.Severity,
		&res.Metric, &res.Description, &recs, &data, &res.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return res, err
	}
	if err != nil {
		return res, fmt.Errorf("scan analysis result: %w", err)
	}
	if err := json.Unmarshal(recs, &res.Recommendations); err != nil {
		return res, fmt.Errorf("decode recommendations: %w", err)
	}
	if err := json.Unmarshal(data, &res.MetricData); err != nil {
		return res, fmt.Errorf("decode metric data: %w", err)
	}
	return res, nil
}
