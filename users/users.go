// Package users stores the profile records that identity-scoped mutations
// act on. Credentials are not stored here.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jonwraymond/infergate/auth"
)

var (
	// ErrNotFound is returned when no user has the given username.
	ErrNotFound = errors.New("users: not found")

	// ErrExists is returned when creating a username that is taken.
	ErrExists = errors.New("users: already exists")

	// ErrInvalid is returned for records failing validation.
	ErrInvalid = errors.New("users: invalid record")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// User is a profile record.
type User struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks required fields.
func (u User) Validate() error {
	if !usernamePattern.MatchString(u.Username) {
		return fmt.Errorf("%w: username %q", ErrInvalid, u.Username)
	}
	// A user token for this subject would authenticate as the service.
	if strings.EqualFold(u.Username, auth.ServiceSubject) {
		return fmt.Errorf("%w: username %q is reserved", ErrInvalid, u.Username)
	}
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		return fmt.Errorf("%w: email %q", ErrInvalid, u.Email)
	}
	return nil
}

// Update is a partial profile change. Nil fields are left unchanged.
type Update struct {
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"full_name,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.Email == nil && u.FullName == nil
}

// Directory looks up and mutates user records.
type Directory interface {
	Get(ctx context.Context, username string) (User, error)
	Create(ctx context.Context, u User) (User, error)
	Update(ctx context.Context, username string, upd Update) (User, error)
	Delete(ctx context.Context, username string) error
	Ping(ctx context.Context) error
	Close() error
}

// SQLiteDirectory implements Directory with a SQLite database.
type SQLiteDirectory struct {
	db  *sql.DB
	now func() time.Time
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	email TEXT NOT NULL DEFAULT '',
	full_name TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Open opens (creating if needed) the directory at dbPath. Use ":memory:"
// for a private in-memory database.
func Open(dbPath string) (*SQLiteDirectory, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open users db: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(createUsersTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate users db: %w", err)
	}
	return &SQLiteDirectory{db: db, now: time.Now}, nil
}

// Get returns the user named username.
func (d *SQLiteDirectory) Get(ctx context.Context, username string) (User, error) {
	var u User
	var created, updated int64
	err := d.db.QueryRowContext(ctx,
		`SELECT username, email, full_name, created_at, updated_at FROM users WHERE username = ?`,
		username,
	).Scan(&u.Username, &u.Email, &u.FullName, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	u.UpdatedAt = time.Unix(updated, 0).UTC()
	return u, nil
}

// Create inserts u.
func (d *SQLiteDirectory) Create(ctx context.Context, u User) (User, error) {
	u.Username = strings.TrimSpace(u.Username)
	if err := u.Validate(); err != nil {
		return User{}, err
	}
	now := d.now().UTC().Truncate(time.Second)
	u.CreatedAt, u.UpdatedAt = now, now

	res, err := d.db.ExecContext(ctx,
		`INSERT INTO users (username, email, full_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?) ON CONFLICT(username) DO NOTHING`,
		u.Username, u.Email, u.FullName, now.Unix(), now.Unix(),
	)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return User{}, ErrExists
	}
	return u, nil
}

// Update applies upd to the user named username.
func (d *SQLiteDirectory) Update(ctx context.Context, username string, upd Update) (User, error) {
	u, err := d.Get(ctx, username)
	if err != nil {
		return User{}, err
	}
	if upd.Email != nil {
		u.Email = strings.TrimSpace(*upd.Email)
	}
	if upd.FullName != nil {
		u.FullName = strings.TrimSpace(*upd.FullName)
	}
	if err := u.Validate(); err != nil {
		return User{}, err
	}
	u.UpdatedAt = d.now().UTC().Truncate(time.Second)

	res, err := d.db.ExecContext(ctx,
		`UPDATE users SET email = ?, full_name = ?, updated_at = ? WHERE username = ?`,
		u.Email, u.FullName, u.UpdatedAt.Unix(), username,
	)
	if err != nil {
		return User{}, fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return User{}, ErrNotFound
	}
	return u, nil
}

// Delete removes the user named username.
func (d *SQLiteDirectory) Delete(ctx context.Context, username string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks the database connection.
func (d *SQLiteDirectory) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close releases the database.
func (d *SQLiteDirectory) Close() error {
	return d.db.Close()
}

var _ Directory = (*SQLiteDirectory)(nil)
