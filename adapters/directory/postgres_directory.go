package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/layer-3/gatekeeper/core"
)

const uniqueViolation = "23505"

// PostgresDirectory reads users from a "users" table:
//
//	id text primary key, username text unique, display_name text, email text,
//	roles text[], password_hash text, created_by text, created_at timestamptz
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory connects to the database at dsn and verifies the connection
func NewPostgresDirectory(ctx context.Context, dsn string) (*PostgresDirectory, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return &PostgresDirectory{pool: pool}, nil
}

const selectUser = `SELECT id, username, display_name, email, roles, password_hash, created_by, created_at FROM users`

// FindByUsername returns the user with the given username or core.ErrUserNotFound
func (d *PostgresDirectory) FindByUsername(ctx context.Context, username string) (*core.UserRecord, error) {
	return d.findOne(ctx, selectUser+` WHERE username = $1`, username)
}

// FindByID returns the user with the given id or core.ErrUserNotFound
func (d *PostgresDirectory) FindByID(ctx context.Context, id string) (*core.UserRecord, error) {
	return d.findOne(ctx, selectUser+` WHERE id = $1`, id)
}

func (d *PostgresDirectory) findOne(ctx context.Context, query string, arg string) (*core.UserRecord, error) {
	rows, err := d.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	record, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to read user: %w", err)
	}
	return record, nil
}

// Create inserts a user. A taken username fails with core.ErrUsernameTaken.
func (d *PostgresDirectory) Create(ctx context.Context, record *core.UserRecord) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO users (id, username, display_name, email, roles, password_hash, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID, record.Username, record.DisplayName, record.Email, record.Roles,
		record.PasswordHash, record.CreatedBy, record.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return core.ErrUsernameTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// List returns one page of users ordered by username, plus the total match count
func (d *PostgresDirectory) List(ctx context.Context, query core.ListQuery) ([]core.Identity, int, error) {
	query = query.Normalize()
	pattern := containsPattern(query.Username)

	var total int
	if err := d.pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE username LIKE $1 ESCAPE '\'`, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	rows, err := d.pool.Query(ctx, selectUser+` WHERE username LIKE $1 ESCAPE '\' ORDER BY username LIMIT $2 OFFSET $3`,
		pattern, query.Limit, query.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	records, err := pgx.CollectRows(rows, scanUser)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read users: %w", err)
	}

	identities := make([]core.Identity, 0, len(records))
	for _, r := range records {
		identities = append(identities, r.Identity)
	}
	return identities, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s anywhere in the value, with the
// wildcards in s taken literally
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// Close releases the pool
func (d *PostgresDirectory) Close() {
	d.pool.Close()
}

func scanUser(row pgx.CollectableRow) (*core.UserRecord, error) {
	var r core.UserRecord
	err := row.Scan(&r.ID, &r.Username, &r.DisplayName, &r.Email, &r.Roles, &r.PasswordHash, &r.CreatedBy, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
