package services_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blaze/internal/cart"
	"blaze/internal/repos"
	"blaze/internal/services"
	"blaze/internal/storage"
	"blaze/internal/validate"
)

func newCart(t *testing.T) *cart.Store {
	t.Helper()
	s, err := cart.Load(&cart.MemoryBackend{})
	require.NoError(t, err)
	return s
}

func newAuth(t *testing.T) (*services.AuthService, *services.ProfileService) {
	db := memdb(t)
	media, err := storage.NewMedia(t.TempDir(), "/media")
	require.NoError(t, err)
	users, profiles := repos.NewUserRepo(db), repos.NewProfileRepo(db)
	return &services.AuthService{Users: users, Profiles: profiles, Media: media},
		&services.ProfileService{Profiles: profiles, Media: media}
}

var signup = validate.SignupInput{
	FirstName: "Ann", LastName: "Lee", Username: "ann_lee",
	Email: "Ann@Example.com", Password: "correct-horse", Confirm: "correct-horse",
}

func TestSignupLoginLogout(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()

	u, err := auth.Signup(ctx, "sid-1", signup, pngImage)
	require.NoError(t, err)
	cur, err := auth.CurrentUser(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, cur.ID)

	require.NoError(t, auth.Logout(ctx, "sid-1"))
	_, err = auth.CurrentUser(ctx, "sid-1")
	assert.ErrorIs(t, err, repos.ErrNotFound)

	_, err = auth.Login(ctx, "sid-2", "ann@example.com", "correct-horse")
	require.NoError(t, err)
	_, err = auth.Login(ctx, "sid-3", "ANN_LEE", "correct-horse")
	require.NoError(t, err)

	_, err = auth.Login(ctx, "sid-4", "ann_lee", "wrong-password")
	assert.ErrorIs(t, err, services.ErrBadCreds)
	_, err = auth.Login(ctx, "sid-4", "nobody", "correct-horse")
	assert.ErrorIs(t, err, services.ErrBadCreds)
	_, err = auth.CurrentUser(ctx, "sid-4")
	assert.ErrorIs(t, err, repos.ErrNotFound)
}

func TestSignupDuplicates(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()
	_, err := auth.Signup(ctx, "sid-1", signup, nil)
	require.NoError(t, err)

	_, err = auth.Signup(ctx, "sid-2", signup, nil)
	var fe *services.FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.NotEmpty(t, fe.Fields.First("email"))
	assert.NotEmpty(t, fe.Fields.First("username"))

	bad := signup
	bad.Email, bad.Username = "other@example.com", "other"
	_, err = auth.Signup(ctx, "sid-3", bad, []byte("plain text"))
	require.True(t, errors.As(err, &fe))
	assert.NotEmpty(t, fe.Fields.First("avatar"))
}

func TestProfileUpdate(t *testing.T) {
	auth, profiles := newAuth(t)
	ctx := context.Background()
	ann, err := auth.Signup(ctx, "sid-1", signup, nil)
	require.NoError(t, err)
	other := signup
	other.Email, other.Username = "bo@example.com", "bo_b"
	_, err = auth.Signup(ctx, "sid-2", other, nil)
	require.NoError(t, err)

	_, err = profiles.Update(ctx, ann.ID, validate.ProfileInput{Username: "BO_B"}, services.AvatarChange{})
	var fe *services.FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.NotEmpty(t, fe.Fields.First("username"))

	p, err := profiles.Update(ctx, ann.ID, validate.ProfileInput{Username: "ann_lee", Bio: "hello", Theme: "dark"},
		services.AvatarChange{Upload: pngImage})
	require.NoError(t, err)
	assert.Equal(t, "dark", p.Theme)
	assert.NotEmpty(t, p.AvatarURL)

	p, err = profiles.Update(ctx, ann.ID, validate.ProfileInput{Username: "ann_lee"}, services.AvatarChange{Remove: true})
	require.NoError(t, err)
	assert.Empty(t, p.AvatarURL)
	assert.Equal(t, "dark", p.Theme, "a form without a theme keeps the saved one")

	require.NoError(t, profiles.SetTheme(ctx, ann.ID, "light"))
	got, err := profiles.Get(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "light", got.Theme)
	assert.Equal(t, "Ann@Example.com", got.Email)
	require.True(t, errors.As(profiles.SetTheme(ctx, ann.ID, "neon"), &fe))
}

func TestProfileUpdateFailureKeepsCurrentAvatar(t *testing.T) {
	db := memdb(t)
	dir := t.TempDir()
	media, err := storage.NewMedia(dir, "/media")
	require.NoError(t, err)
	users, repo := repos.NewUserRepo(db), repos.NewProfileRepo(db)
	auth := &services.AuthService{Users: users, Profiles: repo, Media: media}
	profiles := &services.ProfileService{Profiles: repo, Media: media}
	ctx := context.Background()

	ann, err := auth.Signup(ctx, "sid-1", signup, pngImage)
	require.NoError(t, err)
	cur, err := profiles.Get(ctx, ann.ID)
	require.NoError(t, err)
	require.NotEmpty(t, cur.AvatarURL)
	avatarFile := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(cur.AvatarURL, "/media/")))
	require.FileExists(t, avatarFile)

	_, err = db.Exec(`CREATE TRIGGER profiles_frozen BEFORE UPDATE ON profiles BEGIN SELECT RAISE(ABORT, 'frozen'); END`)
	require.NoError(t, err)

	_, err = profiles.Update(ctx, ann.ID, validate.ProfileInput{Username: "ann_lee"}, services.AvatarChange{Remove: true})
	require.Error(t, err)
	assert.FileExists(t, avatarFile)

	_, err = profiles.Update(ctx, ann.ID, validate.ProfileInput{Username: "ann_lee"}, services.AvatarChange{Upload: pngImage})
	require.Error(t, err)
	assert.FileExists(t, avatarFile)
	entries, err := os.ReadDir(filepath.Dir(avatarFile))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the rejected upload is cleaned up")

	got, err := profiles.Get(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, cur.AvatarURL, got.AvatarURL)
}
