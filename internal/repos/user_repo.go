package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"blaze/internal/domain"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

func (r *UserRepo) getUser(ctx context.Context, q string, args ...any) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, r.DB.Rebind(q), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateAccount inserts the user and its profile in one transaction.
func (r *UserRepo) CreateAccount(ctx context.Context, u domain.User, p domain.Profile) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO users(id, email, password_hash, created_at) VALUES(?, ?, ?, ?)
	`), u.ID, u.Email, u.Hash, now()); err != nil {
		return err
	}
	theme := p.Theme
	if theme == "" {
		theme = string(domain.ThemeSystem)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO profiles(id, username, first_name, last_name, bio, avatar_url, theme, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`), u.ID, p.Username, p.FirstName, p.LastName, p.Bio, p.AvatarURL, theme, now()); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, `SELECT id, email, password_hash FROM users WHERE LOWER(email) = LOWER(?)`, email)
}

func (r *UserRepo) ByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getUser(ctx, `
		SELECT u.id, u.email, u.password_hash
		FROM users u JOIN profiles p ON p.id = u.id
		WHERE LOWER(p.username) = LOWER(?)`, username)
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getUser(ctx, `SELECT id, email, password_hash FROM users WHERE id = ?`, id)
}

func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, r.DB.Rebind(`SELECT COUNT(*) FROM users WHERE LOWER(email) = LOWER(?)`), email)
	return n > 0, err
}

func (r *UserRepo) BindSession(ctx context.Context, sid, userID string) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`INSERT INTO sessions(id, user_id, created_at, last_seen)
                          VALUES(?, ?, ?, ?)
                          ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, last_seen = excluded.last_seen`),
		sid, userID, now(), now())
	return err
}

func (r *UserRepo) SessionUser(ctx context.Context, sid string) (*domain.User, error) {
	return r.getUser(ctx, `
      SELECT u.id, u.email, u.password_hash
      FROM sessions s
      JOIN users u ON u.id = s.user_id
      WHERE s.id = ?`, sid)
}

func (r *UserRepo) UnbindSession(ctx context.Context, sid string) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`UPDATE sessions SET user_id = NULL, last_seen = ? WHERE id = ?`), now(), sid)
	return err
}
