package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"

	_ "github.com/go-sql-driver/mysql"

	"github.com/dsctickets/dtmigrate/dtmigrate/database/models"
)

type SourceConfig struct {
	SQLitePath  string `toml:"sqlite"`
	URL         string `toml:"url"`
	TablePrefix string `toml:"table_prefix"`
}

// SourceDB is a read-only handle on the v3 store. Every v3 table name
// carries the deployment's prefix, so queries build their table expressions
// at runtime instead of relying on the model tags.
type SourceDB struct {
	db     *bun.DB
	prefix string
}

// OpenSource connects to the v3 store: a sqlite file when one is given,
// otherwise a network URL whose scheme selects the dialect (mysql vs.
// postgres), mirroring how the v3 bot itself picked its dialect.
func OpenSource(ctx context.Context, cfg SourceConfig) (*SourceDB, error) {
	var (
		sqldb *sql.DB
		db    *bun.DB
		err   error
	)

	switch {
	case cfg.SQLitePath != "":
		sqldb, err = sql.Open(sqliteshim.ShimName, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open v3 sqlite file: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case strings.HasPrefix(cfg.URL, "mysql"):
		dsn, derr := mysqlDSN(cfg.URL)
		if derr != nil {
			return nil, derr
		}
		sqldb, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open v3 mysql connection: %w", err)
		}
		db = bun.NewDB(sqldb, mysqldialect.New())
	default:
		sqldb = sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.URL)))
		db = bun.NewDB(sqldb, pgdialect.New())
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("v3 store unreachable: %w", err)
	}

	return NewSource(db, cfg.TablePrefix), nil
}

// NewSource wraps an existing handle. Used by OpenSource and by tests.
func NewSource(db *bun.DB, prefix string) *SourceDB {
	return &SourceDB{db: db, prefix: prefix}
}

// mysqlDSN converts a mysql:// URL into the DSN form the mysql driver wants.
func mysqlDSN(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid v3 mysql URL: %w", err)
	}
	auth := ""
	if u.User != nil {
		auth = u.User.Username()
		if pass, ok := u.User.Password(); ok {
			auth += ":" + pass
		}
		auth += "@"
	}
	host := u.Host
	if u.Port() == "" {
		host += ":3306"
	}
	return fmt.Sprintf("%stcp(%s)%s?parseTime=true", auth, host, u.Path), nil
}

func (s *SourceDB) DB() *bun.DB { return s.db }

func (s *SourceDB) Prefix() string { return s.prefix }

// Table prepends the configured v3 table prefix.
func (s *SourceDB) Table(name string) string { return s.prefix + name }

func (s *SourceDB) Close() error { return s.db.Close() }

func (s *SourceDB) Guilds(ctx context.Context) ([]models.SourceGuild, error) {
	var guilds []models.SourceGuild
	err := s.db.NewSelect().
		Model(&guilds).
		ModelTableExpr("? AS g", bun.Ident(s.Table("guilds"))).
		Scan(ctx)
	return guilds, err
}

func (s *SourceDB) Categories(ctx context.Context) ([]models.SourceCategory, error) {
	var categories []models.SourceCategory
	err := s.db.NewSelect().
		Model(&categories).
		ModelTableExpr("? AS c", bun.Ident(s.Table("categories"))).
		Scan(ctx)
	return categories, err
}

func (s *SourceDB) Tickets(ctx context.Context) ([]models.SourceTicket, error) {
	var tickets []models.SourceTicket
	err := s.db.NewSelect().
		Model(&tickets).
		ModelTableExpr("? AS t", bun.Ident(s.Table("tickets"))).
		Scan(ctx)
	return tickets, err
}

func (s *SourceDB) ChannelsForTicket(ctx context.Context, ticketID string) ([]models.SourceChannel, error) {
	var channels []models.SourceChannel
	err := s.db.NewSelect().
		Model(&channels).
		ModelTableExpr("? AS ch", bun.Ident(s.Table("channels"))).
		Where("ticket = ?", ticketID).
		Scan(ctx)
	return channels, err
}

func (s *SourceDB) RolesForTicket(ctx context.Context, ticketID string) ([]models.SourceRole, error) {
	var roles []models.SourceRole
	err := s.db.NewSelect().
		Model(&roles).
		ModelTableExpr("? AS r", bun.Ident(s.Table("roles"))).
		Where("ticket = ?", ticketID).
		Scan(ctx)
	return roles, err
}

func (s *SourceDB) UsersForTicket(ctx context.Context, ticketID string) ([]models.SourceUser, error) {
	var users []models.SourceUser
	err := s.db.NewSelect().
		Model(&users).
		ModelTableExpr("? AS u", bun.Ident(s.Table("users"))).
		Where("ticket = ?", ticketID).
		Scan(ctx)
	return users, err
}

func (s *SourceDB) MessagesForTicket(ctx context.Context, ticketID string) ([]models.SourceMessage, error) {
	var messages []models.SourceMessage
	err := s.messagesQuery(&messages, ticketID).Scan(ctx)
	return messages, err
}

func (s *SourceDB) messagesQuery(messages *[]models.SourceMessage, ticketID string) *bun.SelectQuery {
	return s.db.NewSelect().
		Model(messages).
		ModelTableExpr("? AS m", bun.Ident(s.Table("messages"))).
		Where("ticket = ?", ticketID).
		OrderExpr("m.? ASC", bun.Ident("createdAt"))
}
