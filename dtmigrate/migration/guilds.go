package migration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dsctickets/dtmigrate/dtmigrate/database/models"
)

// MigrateGuilds copies every v3 guild into the v4 store. Guild ids are
// Discord snowflakes and are kept verbatim; re-runs are absorbed by the
// conflict clause on the primary key.
func (m *Migrator) MigrateGuilds(ctx context.Context) error {
	m.initTableStats("guilds")

	guilds, err := m.source.Guilds(ctx)
	if err != nil {
		return fmt.Errorf("failed to read v3 guilds: %w", err)
	}

	for i := range guilds {
		v3 := &guilds[i]
		logProgress(fmt.Sprintf("Migrating guild %s...", v3.ID))
		m.recordProcessed("guilds")

		if err := m.migrateGuild(ctx, v3); err != nil {
			slog.Error("Failed to migrate guild", "guild", v3.ID, "error", err)
			m.recordError("guilds", err.Error(), v3.ID)
			continue
		}
		m.recordSuccessful("guilds")
	}
	return nil
}

func (m *Migrator) migrateGuild(ctx context.Context, v3 *models.SourceGuild) error {
	blocklist := DecodeBlocklist(v3.Blacklist)

	guild := &models.Guild{
		ID:            v3.ID,
		Archive:       v3.LogMessages,
		Blocklist:     blocklist.Roles,
		CloseButton:   v3.CloseButton,
		ErrorColour:   NormalizeColour(v3.ErrorColour),
		Footer:        v3.Footer,
		Locale:        v3.Locale,
		PrimaryColour: NormalizeColour(v3.Colour),
		SuccessColour: NormalizeColour(v3.SuccessColour),
		CreatedAt:     createdAt(v3.CreatedAt),
	}

	_, err := m.db.NewInsert().
		Model(guild).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	return err
}
