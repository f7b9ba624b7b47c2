package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the global "known users" store. Claimers, closers and creators are
// connected by id alone; no profile data is ever attached here.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID string `bun:"id,pk"`
}

// Ticket keeps its v3 id verbatim; archived channel rows reference it.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets,alias:t"`

	ID               string     `bun:"id,pk"`
	CategoryID       int64      `bun:"category_id,notnull"`
	ClaimedByID      *string    `bun:"claimed_by_id"`
	ClosedByID       *string    `bun:"closed_by_id"`
	ClosedReason     *string    `bun:"closed_reason"`
	CreatedByID      string     `bun:"created_by_id,nullzero"`
	FirstResponseAt  *time.Time `bun:"first_response_at"`
	GuildID          string     `bun:"guild_id,notnull"`
	LastMessageAt    *time.Time `bun:"last_message_at"`
	Number           int        `bun:"number,notnull"`
	Open             bool       `bun:"open,notnull"`
	OpeningMessageID string     `bun:"opening_message_id,nullzero"`
	PinnedMessageIDs []string   `bun:"pinned_message_ids"`
	Topic            *string    `bun:"topic"`
	CreatedAt        time.Time  `bun:"created_at,notnull,default:current_timestamp"`
}

type ArchivedChannel struct {
	bun.BaseModel `bun:"table:archived_channels,alias:ac"`

	ID        int64     `bun:"id,pk,autoincrement"`
	TicketID  string    `bun:"ticket_id,notnull"`
	ChannelID string    `bun:"channel_id,notnull"`
	Name      string    `bun:"name,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type ArchivedRole struct {
	bun.BaseModel `bun:"table:archived_roles,alias:ar"`

	ID        int64     `bun:"id,pk,autoincrement"`
	TicketID  string    `bun:"ticket_id,notnull"`
	RoleID    string    `bun:"role_id,notnull"`
	Colour    int       `bun:"colour,notnull"`
	Name      string    `bun:"name,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// ArchivedUser is unique per (ticket_id, user_id); that composite key is both
// the idempotency key and how messages reference their author.
type ArchivedUser struct {
	bun.BaseModel `bun:"table:archived_users,alias:au"`

	ID            int64     `bun:"id,pk,autoincrement"`
	TicketID      string    `bun:"ticket_id,notnull,unique:archived_users_ticket_user"`
	UserID        string    `bun:"user_id,notnull,unique:archived_users_ticket_user"`
	Avatar        *string   `bun:"avatar"`
	Bot           bool      `bun:"bot,notnull"`
	Discriminator string    `bun:"discriminator,notnull"`
	DisplayName   string    `bun:"display_name,notnull"`
	Username      string    `bun:"username,notnull"`
	RoleID        *string   `bun:"role_id"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// ArchivedMessage references its author through the (ticket_id, author_id)
// pair of ArchivedUser, never a global user id. Content is opaque to the
// pipeline; at-rest encryption happens below the store API.
type ArchivedMessage struct {
	bun.BaseModel `bun:"table:archived_messages,alias:am"`

	ID        string    `bun:"id,pk"`
	TicketID  string    `bun:"ticket_id,notnull"`
	AuthorID  string    `bun:"author_id,notnull"`
	Content   string    `bun:"content"`
	Deleted   bool      `bun:"deleted,notnull"`
	Edited    bool      `bun:"edited,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
