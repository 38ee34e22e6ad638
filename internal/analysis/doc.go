// Package analysis implements the campaign anomaly-analysis pipeline.
//
// The service layer iterates active campaigns, runs the detectors over a
// recent metric window, and turns significant findings into persisted
// alerts with enriched recommendations and a queued owner notification.
// It depends on repository interfaces defined in this package; Postgres
// implementations live in repository/postgres.
package analysis
