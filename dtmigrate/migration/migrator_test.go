package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/dsctickets/dtmigrate/dtmigrate/database"
	"github.com/dsctickets/dtmigrate/dtmigrate/database/models"
)

var testDBCounter atomic.Int64

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBCounter.Add(1))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxIdleTime(0)
	sqldb.SetConnMaxLifetime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

const testPrefix = "v3test_"

func newTestSource(t *testing.T) *database.SourceDB {
	t.Helper()
	db := openTestDB(t)
	ctx := context.Background()

	tables := []struct {
		model any
		name  string
	}{
		{(*models.SourceGuild)(nil), "guilds"},
		{(*models.SourceCategory)(nil), "categories"},
		{(*models.SourceTicket)(nil), "tickets"},
		{(*models.SourceChannel)(nil), "channels"},
		{(*models.SourceRole)(nil), "roles"},
		{(*models.SourceUser)(nil), "users"},
		{(*models.SourceMessage)(nil), "messages"},
	}
	for _, tb := range tables {
		_, err := db.NewCreateTable().
			Model(tb.model).
			ModelTableExpr("?", bun.Ident(testPrefix+tb.name)).
			Exec(ctx)
		require.NoError(t, err)
	}
	return database.NewSource(db, testPrefix)
}

func newTestTarget(t *testing.T) *database.TargetDB {
	t.Helper()
	target := database.NewTarget(openTestDB(t))
	require.NoError(t, target.InitSchema(context.Background()))
	return target
}

func newTestMigrator(t *testing.T) (*Migrator, *database.SourceDB, *bun.DB) {
	t.Helper()
	source := newTestSource(t)
	target := newTestTarget(t)
	m := NewMigrator(source, target)
	m.SetReportDir(t.TempDir())
	return m, source, target.BunDB()
}

func seedSource(t *testing.T, source *database.SourceDB, table string, row any) {
	t.Helper()
	_, err := source.DB().NewInsert().
		Model(row).
		ModelTableExpr("?", bun.Ident(source.Table(table))).
		Exec(context.Background())
	require.NoError(t, err)
}

func strPtr(s string) *string { return &s }

func TestMigrateAllEndToEnd(t *testing.T) {
	ctx := context.Background()
	m, source, targetDB := newTestMigrator(t)

	opened := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

	seedSource(t, source, "guilds", &models.SourceGuild{
		ID:            "guild-1",
		Colour:        "RED",
		ErrorColour:   "#ff0000",
		SuccessColour: "GREEN",
		Footer:        "Discord Tickets",
		Locale:        "en-GB",
		LogMessages:   true,
		CloseButton:   false,
		Blacklist:     json.RawMessage(`{"members":["m1"],"roles":["blocked-role"]}`),
		CreatedAt:     opened,
	})
	seedSource(t, source, "categories", &models.SourceCategory{
		ID:             "cat-1",
		Name:           "Support",
		Guild:          "guild-1",
		NameFormat:     "ticket-{number}",
		Claiming:       true,
		Survey:         "satisfaction",
		MaxPerMember:   3,
		OpeningMessage: "Hello",
		Ping:           json.RawMessage(`["ping-role"]`),
		RequireTopic:   true,
		Roles:          json.RawMessage(`["staff-role"]`),
		CreatedAt:      opened,
	})
	seedSource(t, source, "tickets", &models.SourceTicket{
		ID:             "ticket-1",
		Number:         7,
		Guild:          "guild-1",
		Category:       "cat-1",
		Creator:        "creator-1",
		Open:           false,
		ClaimedBy:      strPtr("staff-1"),
		ClosedBy:       strPtr("staff-1"),
		ClosedReason:   strPtr("resolved"),
		PinnedMessages: json.RawMessage(`["pin-1"]`),
		Topic:          strPtr("broken thing"),
		CreatedAt:      opened,
	})
	seedSource(t, source, "channels", &models.SourceChannel{
		Channel:   "chan-1",
		Name:      "ticket-0007",
		Ticket:    "ticket-1",
		CreatedAt: opened,
	})
	seedSource(t, source, "roles", &models.SourceRole{
		Role:      "role-1",
		Ticket:    "ticket-1",
		Name:      "Support Team",
		Colour:    0x9999,
		CreatedAt: opened,
	})
	seedSource(t, source, "users", &models.SourceUser{
		User:          "member-1",
		Ticket:        "ticket-1",
		Name:          "alice",
		Discriminator: "1234",
		DisplayName:   "Alice",
		Role:          "role-1",
		CreatedAt:     opened,
	})
	// member-1 has a participant row; ghost-1 does not and needs a placeholder.
	seedSource(t, source, "messages", &models.SourceMessage{
		ID:        "msg-1",
		Author:    "member-1",
		Data:      "hello there",
		Ticket:    "ticket-1",
		CreatedAt: opened,
	})
	seedSource(t, source, "messages", &models.SourceMessage{
		ID:        "msg-2",
		Author:    "ghost-1",
		Data:      "who am I",
		Ticket:    "ticket-1",
		Edited:    true,
		CreatedAt: opened.Add(time.Minute),
	})

	require.NoError(t, m.MigrateAll(ctx))

	// Guild: id reused, colours normalized, blocklist reduced to roles.
	var guild models.Guild
	require.NoError(t, targetDB.NewSelect().Model(&guild).Where("id = ?", "guild-1").Scan(ctx))
	assert.Equal(t, "Red", guild.PrimaryColour)
	assert.Equal(t, "#ff0000", guild.ErrorColour)
	assert.Equal(t, "Green", guild.SuccessColour)
	assert.Equal(t, []string{"blocked-role"}, guild.Blocklist)
	assert.True(t, guild.Archive)

	// Category: fresh surrogate key, source id resolvable through the run.
	var category models.Category
	require.NoError(t, targetDB.NewSelect().Model(&category).Where("discord_category = ?", "cat-1").Scan(ctx))
	assert.NotZero(t, category.ID)
	assert.True(t, category.EnableFeedback)
	assert.Equal(t, []string{"staff-role"}, category.StaffRoles)
	assert.Equal(t, []string{"ping-role"}, category.PingRoles)

	resolved, err := m.Resolver().ResolveCategory("cat-1")
	require.NoError(t, err)
	assert.Equal(t, category.ID, resolved)

	// Ticket: id reused, category reference points at the minted key.
	var ticket models.Ticket
	require.NoError(t, targetDB.NewSelect().Model(&ticket).Where("id = ?", "ticket-1").Scan(ctx))
	assert.Equal(t, category.ID, ticket.CategoryID)
	assert.Equal(t, "creator-1", ticket.CreatedByID)
	assert.Equal(t, []string{"pin-1"}, ticket.PinnedMessageIDs)
	require.NotNil(t, ticket.ClaimedByID)
	assert.Equal(t, "staff-1", *ticket.ClaimedByID)

	// Claimer/closer/creator become known users by id alone.
	knownUsers, err := targetDB.NewSelect().Model((*models.User)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, knownUsers, "creator-1 and staff-1")

	var channels []models.ArchivedChannel
	require.NoError(t, targetDB.NewSelect().Model(&channels).Where("ticket_id = ?", "ticket-1").Scan(ctx))
	require.Len(t, channels, 1)
	assert.Equal(t, "chan-1", channels[0].ChannelID)

	var roles []models.ArchivedRole
	require.NoError(t, targetDB.NewSelect().Model(&roles).Where("ticket_id = ?", "ticket-1").Scan(ctx))
	require.Len(t, roles, 1)

	// Participants: the real member keeps its metadata and role link, the
	// ghost author got exactly one synthesized placeholder.
	var participants []models.ArchivedUser
	require.NoError(t, targetDB.NewSelect().Model(&participants).
		Where("ticket_id = ?", "ticket-1").
		Order("user_id ASC").
		Scan(ctx))
	require.Len(t, participants, 2)

	ghost, member := participants[0], participants[1]
	assert.Equal(t, "ghost-1", ghost.UserID)
	assert.Equal(t, "Unknown User", ghost.Username)
	assert.Equal(t, "Unknown User", ghost.DisplayName)
	assert.Equal(t, "0000", ghost.Discriminator)
	assert.Nil(t, ghost.RoleID)

	assert.Equal(t, "member-1", member.UserID)
	assert.Equal(t, "alice", member.Username)
	require.NotNil(t, member.RoleID)
	assert.Equal(t, "role-1", *member.RoleID)

	// Messages reference their author via the (ticket, user) pair.
	var messages []models.ArchivedMessage
	require.NoError(t, targetDB.NewSelect().Model(&messages).
		Where("ticket_id = ?", "ticket-1").
		Order("created_at ASC").
		Scan(ctx))
	require.Len(t, messages, 2)
	assert.Equal(t, "member-1", messages[0].AuthorID)
	assert.Equal(t, "hello there", messages[0].Content)
	assert.Equal(t, "ghost-1", messages[1].AuthorID)
	assert.True(t, messages[1].Edited)

	stats := m.Stats()
	assert.Equal(t, 0, stats.TotalErrors)
	assert.Equal(t, 1, stats.Tables["tickets"].Successful)
	assert.NotEmpty(t, stats.RunID)
}

func TestMigrateTicketsFailureContainment(t *testing.T) {
	ctx := context.Background()
	m, source, targetDB := newTestMigrator(t)

	seedSource(t, source, "guilds", &models.SourceGuild{ID: "guild-1", Colour: "#000000"})
	seedSource(t, source, "categories", &models.SourceCategory{ID: "cat-1", Name: "Support", Guild: "guild-1"})

	for _, tk := range []models.SourceTicket{
		{ID: "ticket-1", Number: 1, Guild: "guild-1", Category: "cat-1", Creator: "u1", Open: true},
		{ID: "ticket-bad", Number: 2, Guild: "guild-1", Category: "cat-gone", Creator: "u2", Open: true},
		{ID: "ticket-3", Number: 3, Guild: "guild-1", Category: "cat-1", Creator: "u3", Open: true},
	} {
		tk := tk
		seedSource(t, source, "tickets", &tk)
	}

	require.NoError(t, m.MigrateAll(ctx))

	// The bad ticket is absent; every other ticket still migrated.
	count, err := targetDB.NewSelect().Model((*models.Ticket)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// The unresolvable category is a skip, not a write error.
	stats := m.Stats().Tables["tickets"]
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 2, stats.Successful)
	assert.Zero(t, stats.Errors)
	require.Equal(t, 1, stats.Skipped)
	assert.Equal(t, "ticket-bad", stats.SkippedRecords[0].SourceID)
	assert.Contains(t, stats.SkippedRecords[0].Reason, "category was not migrated")
	assert.Equal(t, 1, m.Stats().TotalSkipped)
}

func TestMigrateGuildsRerunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, source, targetDB := newTestMigrator(t)

	seedSource(t, source, "guilds", &models.SourceGuild{ID: "guild-1", Colour: "TEAL"})

	require.NoError(t, m.MigrateGuilds(ctx))
	require.NoError(t, m.MigrateGuilds(ctx))

	count, err := targetDB.NewSelect().Model((*models.Guild)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMigrateTicketFailsOnMissingRole(t *testing.T) {
	ctx := context.Background()
	m, source, targetDB := newTestMigrator(t)

	seedSource(t, source, "guilds", &models.SourceGuild{ID: "guild-1"})
	seedSource(t, source, "categories", &models.SourceCategory{ID: "cat-1", Guild: "guild-1"})
	seedSource(t, source, "tickets", &models.SourceTicket{
		ID: "ticket-1", Number: 1, Guild: "guild-1", Category: "cat-1", Creator: "u1",
	})
	// References a role that has no archived row: the ticket fails cleanly.
	seedSource(t, source, "users", &models.SourceUser{
		User: "member-1", Ticket: "ticket-1", Name: "alice", Role: "role-gone",
	})

	require.NoError(t, m.MigrateAll(ctx))

	stats := m.Stats().Tables["tickets"]
	assert.Equal(t, 1, stats.Errors)

	count, err := targetDB.NewSelect().Model((*models.ArchivedUser)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
