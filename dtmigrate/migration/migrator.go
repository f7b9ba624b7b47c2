package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"

	"github.com/dsctickets/dtmigrate/dtmigrate/database"
)

// Migrator walks the v3 store in dependency order and writes the v4 store.
// It is single-threaded by design: the category map and participant cache
// built by earlier passes feed later ones, so pass order is load-bearing.
type Migrator struct {
	source   *database.SourceDB
	db       *bun.DB
	resolver *Resolver
	stats    MigrationStats

	// Optional COPY fast path for archived messages.
	useCopy bool
	pool    *pgxpool.Pool

	reportDir string
}

func NewMigrator(source *database.SourceDB, target *database.TargetDB) *Migrator {
	db := target.BunDB()
	return &Migrator{
		source:   source,
		db:       db,
		resolver: NewResolver(db),
		stats: MigrationStats{
			RunID:  uuid.NewString(),
			Tables: make(map[string]*TableStats),
		},
		pool:      target.Pool(),
		reportDir: ".",
	}
}

// SetUseCopy enables COPY-based bulk inserts for archived messages. Only
// effective when the target handle carries a pgx pool.
func (m *Migrator) SetUseCopy(v bool) { m.useCopy = v }

// SetReportDir overrides where the run report is written.
func (m *Migrator) SetReportDir(dir string) { m.reportDir = dir }

// Resolver exposes the run-scoped reference resolver.
func (m *Migrator) Resolver() *Resolver { return m.resolver }

// Stats exposes the run statistics.
func (m *Migrator) Stats() *MigrationStats { return &m.stats }

// MigrateAll runs every pass in dependency order: categories need their
// guild, tickets need their guild and resolved category, and each ticket's
// sub-entities need the ticket row. A step error is an infrastructure
// failure; record-level failures never bubble out of a step.
func (m *Migrator) MigrateAll(ctx context.Context) error {
	logProgress("Starting v3 to v4 migration")

	m.stats.StartTime = time.Now()

	steps := []struct {
		name    string
		migrate func(context.Context) error
	}{
		{"guilds", m.MigrateGuilds},
		{"categories", m.MigrateCategories},
		{"tickets", m.MigrateTickets},
	}

	for _, step := range steps {
		logProgress(fmt.Sprintf("Starting migration step: %s", step.name))
		if err := step.migrate(ctx); err != nil {
			return fmt.Errorf("migration failed at step %s: %w", step.name, err)
		}
		logProgress(fmt.Sprintf("Completed migration step: %s", step.name))
	}

	m.stats.EndTime = time.Now()
	if err := m.generateMigrationReport(); err != nil {
		slog.Error("Failed to generate migration report", "error", err)
	}

	m.logFinalStats()
	return nil
}

func (m *Migrator) generateMigrationReport() error {
	timestamp := time.Now().Format("20060102_150405")
	reportFile := filepath.Join(m.reportDir, fmt.Sprintf("migration_report_%s.json", timestamp))

	file, err := os.Create(reportFile)
	if err != nil {
		return fmt.Errorf("failed to create migration report file: %w", err)
	}
	defer file.Close()

	m.stats.TotalProcessed = 0
	m.stats.TotalSkipped = 0
	m.stats.TotalErrors = 0
	for _, tableStats := range m.stats.Tables {
		m.stats.TotalProcessed += tableStats.Processed
		m.stats.TotalSkipped += tableStats.Skipped
		m.stats.TotalErrors += tableStats.Errors
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m.stats); err != nil {
		return fmt.Errorf("failed to write migration report: %w", err)
	}

	slog.Info("Migration report generated", "file", reportFile, "run_id", m.stats.RunID)
	return nil
}

// logFinalStats logs a summary of migration statistics.
func (m *Migrator) logFinalStats() {
	duration := m.stats.EndTime.Sub(m.stats.StartTime)

	slog.Info("Migration completed",
		"duration", duration,
		"total_processed", m.stats.TotalProcessed,
		"total_errors", m.stats.TotalErrors)

	for tableName, stats := range m.stats.Tables {
		slog.Info("Table migration stats",
			"table", tableName,
			"processed", stats.Processed,
			"successful", stats.Successful,
			"errors", stats.Errors)
	}
}

// Helper methods for statistics tracking

func (m *Migrator) initTableStats(tableName string) {
	m.stats.Tables[tableName] = &TableStats{
		TableName:      tableName,
		SkippedRecords: []SkippedRecord{},
		ErrorRecords:   []ErrorRecord{},
	}
}

func (m *Migrator) recordProcessed(tableName string) {
	if stats, exists := m.stats.Tables[tableName]; exists {
		stats.Processed++
	}
}

func (m *Migrator) recordSuccessful(tableName string) {
	if stats, exists := m.stats.Tables[tableName]; exists {
		stats.Successful++
	}
}

func (m *Migrator) recordSkipped(tableName, reason, sourceID string) {
	if stats, exists := m.stats.Tables[tableName]; exists {
		stats.Skipped++
		stats.SkippedRecords = append(stats.SkippedRecords, SkippedRecord{
			Reason:    reason,
			SourceID:  sourceID,
			Timestamp: time.Now(),
		})
	}
}

func (m *Migrator) recordError(tableName, errorMsg, sourceID string) {
	if stats, exists := m.stats.Tables[tableName]; exists {
		stats.Errors++
		stats.ErrorRecords = append(stats.ErrorRecords, ErrorRecord{
			Error:     errorMsg,
			SourceID:  sourceID,
			Timestamp: time.Now(),
		})
	}
}

func logProgress(message string) {
	slog.Info(message, "service", "Ticket Migration")
}

// createdAt copies a v3 timestamp, falling back to now when the source row
// never had one.
func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
