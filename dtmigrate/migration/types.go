package migration

import "time"

// MigrationStats tracks per-run progress and failures for the final report.
type MigrationStats struct {
	RunID          string                 `json:"run_id"`
	Tables         map[string]*TableStats `json:"tables"`
	StartTime      time.Time              `json:"start_time"`
	EndTime        time.Time              `json:"end_time"`
	TotalErrors    int                    `json:"total_errors"`
	TotalSkipped   int                    `json:"total_skipped"`
	TotalProcessed int                    `json:"total_processed"`
}

// TableStats tracks stats for one entity pass.
type TableStats struct {
	TableName      string          `json:"table_name"`
	Processed      int             `json:"processed"`
	Successful     int             `json:"successful"`
	Skipped        int             `json:"skipped"`
	Errors         int             `json:"errors"`
	SkippedRecords []SkippedRecord `json:"skipped_records"`
	ErrorRecords   []ErrorRecord   `json:"error_records"`
}

// SkippedRecord tracks why a record was skipped.
type SkippedRecord struct {
	Reason    string    `json:"reason"`
	SourceID  string    `json:"source_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorRecord tracks a contained per-record failure.
type ErrorRecord struct {
	Error     string    `json:"error"`
	SourceID  string    `json:"source_id"`
	Timestamp time.Time `json:"timestamp"`
}
