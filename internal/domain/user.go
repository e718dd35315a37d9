package domain

type User struct {
	ID    string `db:"id"`
	Email string `db:"email"`
	Hash  string `db:"password_hash"`
}

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

func IsTheme(s string) bool {
	switch Theme(s) {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

type Profile struct {
	ID        string `db:"id"`
	Email     string `db:"email"`
	Username  string `db:"username"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Bio       string `db:"bio"`
	AvatarURL string `db:"avatar_url"`
	Theme     string `db:"theme"`
}

// Initials is used by the avatar fallback.
func (p Profile) Initials() string {
	if len(p.Username) >= 2 {
		return p.Username[:2]
	}
	return p.Username
}
