package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/uptrace/bun"

	"github.com/dsctickets/dtmigrate/dtmigrate/database/models"
)

// ErrCategoryNotMigrated marks a ticket whose v3 category never made it into
// the v4 store. Writing the ticket anyway would leave a dangling reference,
// so the caller must fail that ticket.
var ErrCategoryNotMigrated = errors.New("category was not migrated")

const (
	placeholderName          = "Unknown User"
	placeholderDiscriminator = "0000"
)

type participantKey struct {
	ticket string
	user   string
}

// Resolver maps v3 identifiers to v4 identifiers for one migration run. The
// category map only lives here; known-user and participant lookups are
// find-or-create against the target store, with the caches saving round
// trips, not enforcing uniqueness. The target's unique constraints do that.
type Resolver struct {
	db           *bun.DB
	categories   map[string]int64
	knownUsers   *lru.Cache
	participants *lru.Cache
}

func NewResolver(db *bun.DB) *Resolver {
	knownUsers, _ := lru.New(8192)
	participants, _ := lru.New(8192)
	return &Resolver{
		db:           db,
		categories:   make(map[string]int64),
		knownUsers:   knownUsers,
		participants: participants,
	}
}

// RegisterCategory records the v4 id minted for a v3 category.
func (r *Resolver) RegisterCategory(sourceID string, targetID int64) {
	r.categories[sourceID] = targetID
}

// ResolveCategory returns the v4 id for a v3 category id, or
// ErrCategoryNotMigrated when the category failed or predates this run.
func (r *Resolver) ResolveCategory(sourceID string) (int64, error) {
	targetID, ok := r.categories[sourceID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrCategoryNotMigrated, sourceID)
	}
	return targetID, nil
}

// EnsureKnownUser find-or-creates a global user row by id alone. Claimer,
// closer and creator references need nothing beyond the identifier.
func (r *Resolver) EnsureKnownUser(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	if r.knownUsers.Contains(userID) {
		return nil
	}
	_, err := r.db.NewInsert().
		Model(&models.User{ID: userID}).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to ensure known user %s: %w", userID, err)
	}
	r.knownUsers.Add(userID, struct{}{})
	return nil
}

// EnsureParticipant find-or-creates the archived user for (ticketID, userID).
// When no participant row exists, a message authored by that user still needs
// one, so a placeholder is synthesized. Safe to call repeatedly; the unique
// constraint on (ticket_id, user_id) absorbs races and re-runs.
func (r *Resolver) EnsureParticipant(ctx context.Context, ticketID, userID string) (*models.ArchivedUser, error) {
	key := participantKey{ticket: ticketID, user: userID}
	if cached, ok := r.participants.Get(key); ok {
		return cached.(*models.ArchivedUser), nil
	}

	participant, err := r.findParticipant(ctx, ticketID, userID)
	if err == nil {
		r.participants.Add(key, participant)
		return participant, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up participant %s/%s: %w", ticketID, userID, err)
	}

	placeholder := &models.ArchivedUser{
		TicketID:      ticketID,
		UserID:        userID,
		Discriminator: placeholderDiscriminator,
		DisplayName:   placeholderName,
		Username:      placeholderName,
		CreatedAt:     snowflakeTime(userID),
	}
	if _, err := r.db.NewInsert().
		Model(placeholder).
		On("CONFLICT (ticket_id, user_id) DO NOTHING").
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create placeholder participant %s/%s: %w", ticketID, userID, err)
	}

	// Re-select to pick up the stored row whichever insert won.
	participant, err = r.findParticipant(ctx, ticketID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back participant %s/%s: %w", ticketID, userID, err)
	}
	r.participants.Add(key, participant)
	return participant, nil
}

func (r *Resolver) findParticipant(ctx context.Context, ticketID, userID string) (*models.ArchivedUser, error) {
	participant := new(models.ArchivedUser)
	err := r.db.NewSelect().
		Model(participant).
		Where("ticket_id = ?", ticketID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return participant, nil
}

// snowflakeTime recovers a creation timestamp from a Discord id. Placeholder
// participants have no v3 row to copy one from.
func snowflakeTime(id string) time.Time {
	sf, err := snowflake.Parse(id)
	if err != nil {
		return time.Now()
	}
	return sf.Time()
}
