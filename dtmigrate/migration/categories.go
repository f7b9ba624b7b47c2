package migration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dsctickets/dtmigrate/dtmigrate/database/models"
)

// Fixed values the v4 schema wants that v3 never stored.
const (
	defaultCategoryDescription = "Please edit your category description"
	defaultCategoryEmoji       = "\U0001F3AB" // 🎫
)

// MigrateCategories copies every v3 category into the v4 store. The v4 store
// mints a fresh surrogate key per category; the v3 id is recorded in the
// resolver so the ticket pass can resolve its foreign keys. Categories have
// no natural uniqueness key in the v4 schema, so a re-run duplicates them;
// that is a documented limitation of this pipeline.
func (m *Migrator) MigrateCategories(ctx context.Context) error {
	m.initTableStats("categories")

	categories, err := m.source.Categories(ctx)
	if err != nil {
		return fmt.Errorf("failed to read v3 categories: %w", err)
	}

	for i := range categories {
		v3 := &categories[i]
		logProgress(fmt.Sprintf("Migrating category %s...", v3.ID))
		m.recordProcessed("categories")

		if err := m.migrateCategory(ctx, v3); err != nil {
			slog.Error("Failed to migrate category", "category", v3.ID, "error", err)
			m.recordError("categories", err.Error(), v3.ID)
			continue
		}
		m.recordSuccessful("categories")
	}
	return nil
}

func (m *Migrator) migrateCategory(ctx context.Context, v3 *models.SourceCategory) error {
	category := &models.Category{
		ChannelName:     v3.NameFormat,
		Claiming:        v3.Claiming,
		Description:     defaultCategoryDescription,
		DiscordCategory: v3.ID,
		Emoji:           defaultCategoryEmoji,
		EnableFeedback:  Truthy(v3.Survey),
		GuildID:         v3.Guild,
		Image:           v3.Image,
		MemberLimit:     v3.MaxPerMember,
		Name:            v3.Name,
		OpeningMessage:  v3.OpeningMessage,
		PingRoles:       DecodeStringList(v3.Ping),
		RequireTopic:    v3.RequireTopic,
		StaffRoles:      DecodeStringList(v3.Roles),
		CreatedAt:       createdAt(v3.CreatedAt),
	}

	if _, err := m.db.NewInsert().
		Model(category).
		Returning("id").
		Exec(ctx); err != nil {
		return err
	}

	m.resolver.RegisterCategory(v3.ID, category.ID)
	return nil
}
