// Package postgres implements the analysis stores against PostgreSQL
// using database/sql with lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/brightpath/campaign-monitor/internal/analysis"
	"github.com/brightpath/campaign-monitor/internal/domain"
)

// CampaignRepo implements analysis.CampaignStore against PostgreSQL.
// Campaigns are written by campaign management; the monitor only reads.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign store.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

const campaignColumns = `id, name, platform, COALESCE(objective,''), start_date, end_date,
	       budget_cents, COALESCE(audience_segment,''), status, owner_email,
	       created_at, updated_at`

func (r *CampaignRepo) Active(ctx context.Context, id *int64) ([]domain.Campaign, error) {
	q := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE status = 'active'`
	args := []interface{}{}
	if id != nil {
		q += " AND id = $1"
		args = append(args, *id)
	}
	q += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list active campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CampaignRepo) Get(ctx context.Context, id int64) (*domain.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE id = $1
	`, id)

	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, analysis.ErrNoCampaign
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return &c, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner) (domain.Campaign, error) {
	var c domain.Campaign
	err := row.Scan(
		&c.ID, &c.Name, &c.Platform, &c.Objective, &c.StartDate, &c.EndDate,
		&c.BudgetCents, &c.AudienceSegment, &c.Status, &c.OwnerEmail,
		&c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}
