package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/dsctickets/dtmigrate/dtmigrate/database/models"
)

// MigrateTickets copies every v3 ticket, then its archived sub-entities in
// strict order: channels land with the ticket itself, then roles, then users
// (which reference roles by the (ticket, role) pair), then messages (which
// reference users by the (ticket, user) pair). One bad ticket is logged and
// skipped; it never stops the pass.
func (m *Migrator) MigrateTickets(ctx context.Context) error {
	m.initTableStats("tickets")

	tickets, err := m.source.Tickets(ctx)
	if err != nil {
		return fmt.Errorf("failed to read v3 tickets: %w", err)
	}

	for i := range tickets {
		v3 := &tickets[i]
		logProgress(fmt.Sprintf("Migrating ticket %s...", v3.ID))
		m.recordProcessed("tickets")

		if err := m.migrateTicket(ctx, v3); err != nil {
			// A ticket whose category never migrated is a known class of
			// source inconsistency, not a write failure: report it as a
			// skip so operators can tell the two apart.
			if errors.Is(err, ErrCategoryNotMigrated) {
				slog.Warn("Skipping ticket", "ticket", v3.ID, "reason", err)
				m.recordSkipped("tickets", err.Error(), v3.ID)
				continue
			}
			slog.Error("Failed to migrate ticket", "ticket", v3.ID, "error", err)
			m.recordError("tickets", err.Error(), v3.ID)
			continue
		}
		m.recordSuccessful("tickets")
	}
	return nil
}

func (m *Migrator) migrateTicket(ctx context.Context, v3 *models.SourceTicket) error {
	// An unresolvable category is fatal for this ticket: writing it anyway
	// would orphan its foreign key.
	categoryID, err := m.resolver.ResolveCategory(v3.Category)
	if err != nil {
		return err
	}

	for _, userID := range []*string{v3.ClaimedBy, v3.ClosedBy, &v3.Creator} {
		if userID == nil {
			continue
		}
		if err := m.resolver.EnsureKnownUser(ctx, *userID); err != nil {
			return err
		}
	}

	channels, err := m.source.ChannelsForTicket(ctx, v3.ID)
	if err != nil {
		return fmt.Errorf("failed to read v3 channels: %w", err)
	}

	ticket := &models.Ticket{
		ID:               v3.ID,
		CategoryID:       categoryID,
		ClaimedByID:      v3.ClaimedBy,
		ClosedByID:       v3.ClosedBy,
		ClosedReason:     v3.ClosedReason,
		CreatedByID:      v3.Creator,
		FirstResponseAt:  v3.FirstResponse,
		GuildID:          v3.Guild,
		LastMessageAt:    v3.LastMessage,
		Number:           v3.Number,
		Open:             v3.Open,
		OpeningMessageID: v3.OpeningMessage,
		PinnedMessageIDs: DecodeStringList(v3.PinnedMessages),
		Topic:            v3.Topic,
		CreatedAt:        createdAt(v3.CreatedAt),
	}

	archivedChannels := make([]*models.ArchivedChannel, 0, len(channels))
	for _, ch := range channels {
		archivedChannels = append(archivedChannels, &models.ArchivedChannel{
			TicketID:  v3.ID,
			ChannelID: ch.Channel,
			Name:      ch.Name,
			CreatedAt: createdAt(ch.CreatedAt),
		})
	}

	// The ticket row and its archived channels are one nested write.
	err = m.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().
			Model(ticket).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert ticket: %w", err)
		}
		if len(archivedChannels) > 0 {
			if _, err := tx.NewInsert().Model(&archivedChannels).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert archived channels: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := m.migrateTicketRolesAndUsers(ctx, v3.ID); err != nil {
		return err
	}
	return m.migrateTicketMessages(ctx, v3.ID)
}

func (m *Migrator) migrateTicketRolesAndUsers(ctx context.Context, ticketID string) error {
	roles, err := m.source.RolesForTicket(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("failed to read v3 roles: %w", err)
	}

	archivedRoles := make(map[string]bool, len(roles))
	for _, v3role := range roles {
		role := &models.ArchivedRole{
			TicketID:  ticketID,
			RoleID:    v3role.Role,
			Colour:    v3role.Colour,
			Name:      v3role.Name,
			CreatedAt: createdAt(v3role.CreatedAt),
		}
		if _, err := m.db.NewInsert().Model(role).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert archived role %s: %w", v3role.Role, err)
		}
		archivedRoles[v3role.Role] = true
	}

	users, err := m.source.UsersForTicket(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("failed to read v3 users: %w", err)
	}

	for i := range users {
		v3user := &users[i]

		var roleID *string
		if v3user.Role != "" {
			if !archivedRoles[v3user.Role] {
				return fmt.Errorf("archived role %s not found for user %s", v3user.Role, v3user.User)
			}
			roleID = &v3user.Role
		}

		participant := &models.ArchivedUser{
			TicketID:      ticketID,
			UserID:        v3user.User,
			Avatar:        v3user.Avatar,
			Bot:           v3user.Bot,
			Discriminator: v3user.Discriminator,
			DisplayName:   v3user.DisplayName,
			Username:      v3user.Name,
			RoleID:        roleID,
			CreatedAt:     createdAt(v3user.CreatedAt),
		}
		if _, err := m.db.NewInsert().
			Model(participant).
			On("CONFLICT (ticket_id, user_id) DO NOTHING").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert archived user %s: %w", v3user.User, err)
		}
	}
	return nil
}

func (m *Migrator) migrateTicketMessages(ctx context.Context, ticketID string) error {
	messages, err := m.source.MessagesForTicket(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("failed to read v3 messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	archived := make([]*models.ArchivedMessage, 0, len(messages))
	for _, v3msg := range messages {
		// An author with no participant row (deleted, or never recorded)
		// gets a placeholder so the composite reference always resolves.
		author, err := m.resolver.EnsureParticipant(ctx, ticketID, v3msg.Author)
		if err != nil {
			return err
		}
		archived = append(archived, &models.ArchivedMessage{
			ID:        v3msg.ID,
			TicketID:  ticketID,
			AuthorID:  author.UserID,
			Content:   v3msg.Data,
			Deleted:   v3msg.Deleted,
			Edited:    v3msg.Edited,
			CreatedAt: createdAt(v3msg.CreatedAt),
		})
	}

	if m.useCopy && m.pool != nil {
		err := m.copyInsertArchivedMessages(ctx, archived)
		if err == nil {
			return nil
		}
		slog.Warn("COPY insert failed, falling back to row inserts", "ticket", ticketID, "error", err)
	}

	for _, msg := range archived {
		if _, err := m.db.NewInsert().Model(msg).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert archived message %s: %w", msg.ID, err)
		}
	}
	return nil
}
