package models

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcjars/registry/cache"
)

// User is a registry account, always created from a GitHub login,
// matching user.rs's User.
type User struct {
	ID       int32
	GithubID int32
	Admin    bool
	Name     *string
	Email    string
	Login    string
	LastLogin time.Time
	Created  time.Time
}

// ApiUser is the public-facing projection of User: no admin-only fields,
// a derived avatar URL, and an optionally redacted email. Matches
// user.rs's ApiUser.
type ApiUser struct {
	ID       int32   `json:"id"`
	GithubID int32   `json:"githubId"`
	Admin    bool    `json:"admin"`
	Name     *string `json:"name"`
	Avatar   string  `json:"avatar"`
	Email    string  `json:"email"`
	Login    string  `json:"login"`
}

// UserSession is a signed-in browser session tied to a user, matching
// user.rs's UserSession. The session secret itself is never stored on
// this struct; it's returned once at creation.
type UserSession struct {
	ID        int32
	IP        net.IP
	UserAgent string
	LastUsed  time.Time
	Created   time.Time
}

const userColumns = `users.id, users.github_id, users.admin, users.name, users.email, users.login, users.last_login, users.created`

const userSessionColumns = `user_sessions.id, user_sessions.ip, user_sessions.user_agent, user_sessions.last_used, user_sessions.created`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.GithubID, &u.Admin, &u.Name, &u.Email, &u.Login, &u.LastLogin, &u.Created); err != nil {
		return nil, err
	}
	return &u, nil
}

// NewUser upserts a user by GitHub id: a first login inserts the row, a
// repeat login refreshes name/email/login/last_login. Matches
// User::new.
func NewUser(ctx context.Context, pool *pgxpool.Pool, githubID int32, name *string, email, login string) (*User, error) {
	row := pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO users (github_id, name, email, login, last_login, created)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (github_id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			login = EXCLUDED.login,
			last_login = NOW()
		RETURNING %s
	`, userColumns), githubID, name, email, login)

	return scanUser(row)
}

// UserByLogin resolves a user by GitHub login, case-insensitively.
// Cached an hour, matching User::by_login.
func UserByLogin(ctx context.Context, pool *pgxpool.Pool, c *cache.Client, login string) (*User, error) {
	cacheKey := fmt.Sprintf("user::%s", login)

	return cache.Cached(ctx, c, cacheKey, time.Hour, func(ctx context.Context) (*User, error) {
		escaped := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(login)

		row := pool.QueryRow(ctx, fmt.Sprintf(`
			SELECT %s
			FROM users
			WHERE users.login ILIKE $1
		`, userColumns), escaped)

		u, err := scanUser(row)
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return u, err
	})
}

// UserBySession joins a session token to its owning user and session
// row in one round trip. Deliberately not cached: a signed-out session
// must stop resolving immediately, matching User::by_session.
func UserBySession(ctx context.Context, pool *pgxpool.Pool, session string) (*User, *UserSession, error) {
	row := pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s, %s
		FROM users
		JOIN user_sessions ON user_sessions.user_id = users.id
		WHERE user_sessions.session = $1
	`, userColumns, userSessionColumns), session)

	var u User
	var s UserSession
	var rawIP string

	err := row.Scan(
		&u.ID, &u.GithubID, &u.Admin, &u.Name, &u.Email, &u.Login, &u.LastLogin, &u.Created,
		&s.ID, &rawIP, &s.UserAgent, &s.LastUsed, &s.Created,
	)
	if err == pgx.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	s.IP = net.ParseIP(rawIP)
	return &u, &s, nil
}

// ToAPI projects a User down to its public ApiUser shape. hideEmail
// swaps the real address for a placeholder, matching User::api_user.
func (u *User) ToAPI(hideEmail bool) ApiUser {
	email := u.Email
	if hideEmail {
		email = "hidden@email.com"
	}

	return ApiUser{
		ID:       u.ID,
		GithubID: u.GithubID,
		Admin:    u.Admin,
		Name:     u.Name,
		Avatar:   fmt.Sprintf("https://avatars.githubusercontent.com/u/%d", u.GithubID),
		Email:    email,
		Login:    u.Login,
	}
}

func scanUserSession(row pgx.Row) (*UserSession, error) {
	var s UserSession
	var rawIP string
	if err := row.Scan(&s.ID, &rawIP, &s.UserAgent, &s.LastUsed, &s.Created); err != nil {
		return nil, err
	}
	s.IP = net.ParseIP(rawIP)
	return &s, nil
}

// NewUserSession creates a session row for userID and returns it along
// with the plaintext session secret, derived the same way as
// deriveOrganizationKeySecret: sha256(now unix seconds || user id), hex
// encoded. Matches UserSession::new.
func NewUserSession(ctx context.Context, pool *pgxpool.Pool, userID int32, ip net.IP, userAgent string) (*UserSession, string, error) {
	session := deriveSessionSecret(userID, time.Now())

	row := pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO user_sessions (user_id, session, ip, user_agent, last_used, created)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING %s
	`, userSessionColumns), userID, session, ip.String(), userAgent)

	s, err := scanUserSession(row)
	if err != nil {
		return nil, "", err
	}
	return s, session, nil
}

// deriveSessionSecret computes the 64-hex-char session token as
// sha256(creation-timestamp || user-id), matching user.rs's
// UserSession::new hash derivation and deriveOrganizationKeySecret's
// scheme.
func deriveSessionSecret(userID int32, at time.Time) string {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(at.Unix()))

	var id [4]byte
	binary.BigEndian.PutUint32(id[:], uint32(userID))

	h := sha256.New()
	h.Write(ts[:])
	h.Write(id[:])
	return hex.EncodeToString(h.Sum(nil))
}

// SaveUserSession persists a touched session's ip/user_agent/last_used,
// matching UserSession::save.
func SaveUserSession(ctx context.Context, pool *pgxpool.Pool, s *UserSession) error {
	_, err := pool.Exec(ctx, `
		UPDATE user_sessions
		SET ip = $2, user_agent = $3, last_used = $4
		WHERE user_sessions.id = $1
	`, s.ID, s.IP.String(), s.UserAgent, s.LastUsed)
	return err
}

// DeleteUserSessionBySession removes a session row by its secret,
// matching UserSession::delete_by_session. Used for sign-out.
func DeleteUserSessionBySession(ctx context.Context, pool *pgxpool.Pool, session string) error {
	_, err := pool.Exec(ctx, `DELETE FROM user_sessions WHERE user_sessions.session = $1`, session)
	return err
}
