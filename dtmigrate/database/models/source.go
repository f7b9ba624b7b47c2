package models

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// Source (v3) rows. Table names are not fixed here because every v3 table
// carries a deployment-specific prefix; queries supply the table expression
// at runtime. Sequelize managed the timestamps, so createdAt/updatedAt keep
// their camelCase column names while everything else is snake_case.

type SourceGuild struct {
	bun.BaseModel `bun:"table:guilds,alias:g"`

	ID            string          `bun:"id,pk"`
	Colour        string          `bun:"colour"`
	ErrorColour   string          `bun:"error_colour"`
	SuccessColour string          `bun:"success_colour"`
	Footer        string          `bun:"footer"`
	Locale        string          `bun:"locale"`
	LogMessages   bool            `bun:"log_messages"`
	CloseButton   bool            `bun:"close_button"`
	Blacklist     json.RawMessage `bun:"blacklist"`
	CreatedAt     time.Time       `bun:"createdAt,nullzero"`
}

type SourceCategory struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID             string          `bun:"id,pk"`
	Name           string          `bun:"name"`
	Guild          string          `bun:"guild"`
	NameFormat     string          `bun:"name_format"`
	Claiming       bool            `bun:"claiming"`
	Survey         string          `bun:"survey,nullzero"`
	Image          *string         `bun:"image"`
	MaxPerMember   int             `bun:"max_per_member"`
	OpeningMessage string          `bun:"opening_message"`
	Ping           json.RawMessage `bun:"ping"`
	RequireTopic   bool            `bun:"require_topic"`
	Roles          json.RawMessage `bun:"roles"`
	CreatedAt      time.Time       `bun:"createdAt,nullzero"`
}

type SourceTicket struct {
	bun.BaseModel `bun:"table:tickets,alias:t"`

	ID             string          `bun:"id,pk"`
	Number         int             `bun:"number"`
	Guild          string          `bun:"guild"`
	Category       string          `bun:"category"`
	Creator        string          `bun:"creator"`
	Open           bool            `bun:"open"`
	ClaimedBy      *string         `bun:"claimed_by"`
	ClosedBy       *string         `bun:"closed_by"`
	ClosedReason   *string         `bun:"closed_reason"`
	FirstResponse  *time.Time      `bun:"first_response"`
	LastMessage    *time.Time      `bun:"last_message"`
	OpeningMessage string          `bun:"opening_message,nullzero"`
	PinnedMessages json.RawMessage `bun:"pinned_messages"`
	Topic          *string         `bun:"topic"`
	CreatedAt      time.Time       `bun:"createdAt,nullzero"`
}

type SourceChannel struct {
	bun.BaseModel `bun:"table:channels,alias:ch"`

	Channel   string    `bun:"channel,pk"`
	Name      string    `bun:"name"`
	Ticket    string    `bun:"ticket"`
	CreatedAt time.Time `bun:"createdAt,nullzero"`
}

type SourceRole struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	Role      string    `bun:"role,pk"`
	Ticket    string    `bun:"ticket,pk"`
	Name      string    `bun:"name"`
	Colour    int       `bun:"colour"`
	CreatedAt time.Time `bun:"createdAt,nullzero"`
}

type SourceUser struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	User          string    `bun:"user,pk"`
	Ticket        string    `bun:"ticket,pk"`
	Name          string    `bun:"name"`
	Discriminator string    `bun:"discriminator"`
	DisplayName   string    `bun:"display_name"`
	Avatar        *string   `bun:"avatar"`
	Bot           bool      `bun:"bot"`
	Role          string    `bun:"role,nullzero"`
	CreatedAt     time.Time `bun:"createdAt,nullzero"`
}

type SourceMessage struct {
	bun.BaseModel `bun:"table:messages,alias:m"`

	ID        string    `bun:"id,pk"`
	Author    string    `bun:"author"`
	Data      string    `bun:"data"`
	Ticket    string    `bun:"ticket"`
	Edited    bool      `bun:"edited"`
	Deleted   bool      `bun:"deleted"`
	CreatedAt time.Time `bun:"createdAt,nullzero"`
}
