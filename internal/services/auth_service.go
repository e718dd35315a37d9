package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"blaze/internal/domain"
	"blaze/internal/repos"
	"blaze/internal/storage"
	"blaze/internal/validate"
)

type AuthService struct {
	Users    *repos.UserRepo
	Profiles *repos.ProfileRepo
	Media    *storage.Media
}

// Signup creates the account and profile, stores the optional avatar and
// binds sid to the new user.
func (s *AuthService) Signup(ctx context.Context, sid string, in validate.SignupInput, avatar []byte) (*domain.User, error) {
	in, errs := validate.Signup(in)
	if _, ok := errs["email"]; !ok {
		exists, err := s.Users.EmailExists(ctx, in.Email)
		if err != nil {
			return nil, err
		}
		if exists {
			errs.Add("email", "An account with this email already exists.")
		}
	}
	if _, ok := errs["username"]; !ok {
		taken, err := s.Profiles.UsernameTaken(ctx, in.Username, "")
		if err != nil {
			return nil, err
		}
		if taken {
			errs.Add("username", "This username is taken.")
		}
	}
	ext := ""
	if len(avatar) > 0 {
		var msg string
		if ext, msg = validate.Image(avatar); msg != "" {
			errs.Add("avatar", msg)
		}
	}
	if err := fieldErrors(errs); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := domain.User{ID: uuid.NewString(), Email: in.Email, Hash: string(hash)}
	p := domain.Profile{Username: in.Username, FirstName: in.FirstName, LastName: in.LastName, Theme: string(domain.ThemeSystem)}
	if ext != "" {
		if p.AvatarURL, err = s.Media.Put(storage.BucketAvatars, u.ID, ext, avatar); err != nil {
			return nil, fmt.Errorf("store avatar: %w", err)
		}
	}
	if err := s.Users.CreateAccount(ctx, u, p); err != nil {
		_ = s.Media.Remove(p.AvatarURL)
		return nil, err
	}
	if err := s.Users.BindSession(ctx, sid, u.ID); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login accepts an email address or a username as identifier.
func (s *AuthService) Login(ctx context.Context, sid, identifier, password string) (*domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrBadCreds
	}
	var (
		u   *domain.User
		err error
	)
	if strings.Contains(identifier, "@") {
		u, err = s.Users.ByEmail(ctx, identifier)
	} else {
		u, err = s.Users.ByUsername(ctx, identifier)
	}
	if errors.Is(err, repos.ErrNotFound) {
		return nil, ErrBadCreds
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if err := s.Users.BindSession(ctx, sid, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Logout(ctx context.Context, sid string) error {
	return s.Users.UnbindSession(ctx, sid)
}

func (s *AuthService) CurrentUser(ctx context.Context, sid string) (*domain.User, error) {
	return s.Users.SessionUser(ctx, sid)
}
