package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"blaze/internal/domain"
)

type ProfileRepo struct{ db *sqlx.DB }

func NewProfileRepo(db *sqlx.DB) *ProfileRepo { return &ProfileRepo{db: db} }

func (r *ProfileRepo) Get(ctx context.Context, id string) (domain.Profile, error) {
	var p domain.Profile
	err := r.db.GetContext(ctx, &p, r.db.Rebind(`
		SELECT p.id, u.email, p.username, p.first_name, p.last_name, p.bio, p.avatar_url, p.theme
		FROM profiles p JOIN users u ON u.id = p.id
		WHERE p.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, ErrNotFound
	}
	return p, err
}

// UsernameTaken reports whether another profile (not exceptID) uses username.
func (r *ProfileRepo) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`
		SELECT COUNT(*) FROM profiles WHERE LOWER(username) = LOWER(?) AND id <> ?`), username, exceptID)
	return n > 0, err
}

func (r *ProfileRepo) Update(ctx context.Context, p domain.Profile) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE profiles
		SET username = ?, first_name = ?, last_name = ?, bio = ?, avatar_url = ?, theme = ?, updated_at = ?
		WHERE id = ?`), p.Username, p.FirstName, p.LastName, p.Bio, p.AvatarURL, p.Theme, now(), p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProfileRepo) SetTheme(ctx context.Context, id string, theme domain.Theme) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE profiles SET theme = ?, updated_at = ? WHERE id = ?`),
		string(theme), now(), id)
	return err
}
