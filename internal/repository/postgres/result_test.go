package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/campaign-monitor/internal/analysis"
	"github.com/brightpath/campaign-monitor/internal/domain"
)

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, *ResultRepo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, NewResultRepo(db)
}

func sampleResult() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		ID:              "6f1c9a3e-0000-0000-0000-000000000001",
		CampaignID:      1,
		Kind:            domain.FindingCTRDrop,
		DateDetected:    time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		Severity:        domain.SeverityHigh,
		Metric:          "ctr",
		Description:     "CTR dropped by 80.0% - possible ad fatigue or audience saturation",
		Recommendations: []string{"Refresh ad creative to combat ad fatigue"},
		MetricData:      domain.MetricData{RecentValue: 2, BaselineValue: 10, ChangePercent: 80},
	}
}

func TestResultCreateCommitsTransaction(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO analysis_results").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), sampleResult()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultCreateRollsBackOnFailure(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO analysis_results").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleResult())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func resultRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "campaign_id", "analysis_type", "date_detected", "severity",
		"metric_affected", "description", "recommendations", "metric_data", "created_at",
	}).AddRow(
		"6f1c9a3e-0000-0000-0000-000000000001", int64(1), "ctr_drop",
		time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), "high", "ctr",
		"CTR dropped by 80.0% - possible ad fatigue or audience saturation",
		[]byte(`["Refresh ad creative to combat ad fatigue"]`),
		[]byte(`{"recent_value":2,"baseline_value":10,"change_percent":80}`),
		time.Date(2026, 8, 30, 1, 0, 0, 0, time.UTC),
	)
}

func TestResultGet(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery("SELECT (.+) FROM analysis_results").
		WithArgs("6f1c9a3e-0000-0000-0000-000000000001").
		WillReturnRows(resultRows())

	res, err := repo.Get(context.Background(), "6f1c9a3e-0000-0000-0000-000000000001")
	require.NoError(t, err)
	assert.Equal(t, domain.FindingCTRDrop, res.Kind)
	assert.Equal(t, domain.SeverityHigh, res.Severity)
	assert.Equal(t, []string{"Refresh ad creative to combat ad fatigue"}, res.Recommendations)
	assert.Equal(t, 80.0, res.MetricData.ChangePercent)
}

func TestResultGetNotFound(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery("SELECT (.+) FROM analysis_results").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, analysis.ErrNotFound)
}

func TestResultListFilters(t *testing.T) {
	mock, repo := setupMockDB(t)

	id := int64(1)
	mock.ExpectQuery("SELECT (.+) FROM analysis_results").
		WithArgs(id, "high", "ctr_drop", 20, 0).
		WillReturnRows(resultRows())

	out, err := repo.List(context.Background(), analysis.ListFilter{
		CampaignID: &id,
		Severity:   "high",
		Kind:       "ctr_drop",
		Limit:      20,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(1), out[0].CampaignID)
}

func TestResultListDefaultLimit(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery("SELECT (.+) FROM analysis_results").
		WithArgs(50, 0).
		WillReturnRows(resultRows())

	_, err := repo.List(context.Background(), analysis.ListFilter{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
