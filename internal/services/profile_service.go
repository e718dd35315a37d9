package services

import (
	"context"
	"fmt"

	"blaze/internal/domain"
	applog "blaze/internal/log"
	"blaze/internal/repos"
	"blaze/internal/storage"
	"blaze/internal/validate"
)

type ProfileService struct {
	Profiles *repos.ProfileRepo
	Media    *storage.Media
}

func (s *ProfileService) Get(ctx context.Context, userID string) (domain.Profile, error) {
	return s.Profiles.Get(ctx, userID)
}

// AvatarChange says what to do with the avatar on update.
type AvatarChange struct {
	Upload []byte
	Remove bool
}

// Update applies the owner's edits. The old avatar is removed best-effort
// once the new row is committed.
func (s *ProfileService) Update(ctx context.Context, userID string, in validate.ProfileInput, avatar AvatarChange) (domain.Profile, error) {
	cur, err := s.Profiles.Get(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	in, errs := validate.Profile(in)
	if _, bad := errs["username"]; !bad {
		taken, err := s.Profiles.UsernameTaken(ctx, in.Username, userID)
		if err != nil {
			return cur, err
		}
		if taken {
			errs.Add("username", "This username is taken.")
		}
	}
	ext := ""
	if len(avatar.Upload) > 0 {
		var msg string
		if ext, msg = validate.Image(avatar.Upload); msg != "" {
			errs.Add("avatar", msg)
		}
	}
	if err := fieldErrors(errs); err != nil {
		return cur, err
	}

	next := cur
	next.Username, next.FirstName, next.LastName, next.Bio = in.Username, in.FirstName, in.LastName, in.Bio
	if in.Theme != "" {
		next.Theme = in.Theme
	}
	switch {
	case ext != "":
		if next.AvatarURL, err = s.Media.Put(storage.BucketAvatars, userID, ext, avatar.Upload); err != nil {
			return cur, fmt.Errorf("store avatar: %w", err)
		}
	case avatar.Remove:
		next.AvatarURL = ""
	}
	if err := s.Profiles.Update(ctx, next); err != nil {
		if next.AvatarURL != cur.AvatarURL && next.AvatarURL != "" {
			_ = s.Media.Remove(next.AvatarURL)
		}
		return cur, err
	}
	if next.AvatarURL != cur.AvatarURL && cur.AvatarURL != "" {
		if err := s.Media.Remove(cur.AvatarURL); err != nil {
			applog.Warn(nil, "media.remove", err, map[string]any{"url": cur.AvatarURL})
		}
	}
	return next, nil
}

func (s *ProfileService) SetTheme(ctx context.Context, userID, theme string) error {
	if !domain.IsTheme(theme) {
		errs := validate.Errors{}
		errs.Add("theme", "Theme must be light, dark or system.")
		return fieldErrors(errs)
	}
	return s.Profiles.SetTheme(ctx, userID, domain.Theme(theme))
}
