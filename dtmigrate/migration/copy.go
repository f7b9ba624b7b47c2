package migration

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dsctickets/dtmigrate/dtmigrate/database/models"
)

// copyInsertArchivedMessages bulk-inserts one ticket's resolved messages
// through COPY. Author resolution already happened, so this is a plain
// column copy; any failure falls back to row inserts at the call site.
func (m *Migrator) copyInsertArchivedMessages(ctx context.Context, rows []*models.ArchivedMessage) error {
	if m.pool == nil {
		return fmt.Errorf("pgx pool not configured")
	}

	_, err := m.pool.CopyFrom(ctx,
		pgx.Identifier{"archived_messages"},
		[]string{"id", "ticket_id", "author_id", "content", "deleted", "edited", "created_at"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.ID, r.TicketID, r.AuthorID, r.Content, r.Deleted, r.Edited, r.CreatedAt}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to COPY archived messages: %w", err)
	}
	return nil
}
