package validate

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"blaze/internal/domain"
)

var (
	reEmail    = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reUsername = regexp.MustCompile(`^[a-zA-Z0-9_]{3,15}$`)
	reID       = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

const (
	MaxImageBytes = 4 << 20
	MaxSearchLen  = 100
	MaxBio        = 500
)

var maxPrice = decimal.NewFromInt(1_000_000)

// Errors maps a form field to its messages.
type Errors map[string][]string

func (e Errors) Add(field, msg string) { e[field] = append(e[field], msg) }
func (e Errors) OK() bool              { return len(e) == 0 }

// First returns the first message for field, for templates.
func (e Errors) First(field string) string {
	if m := e[field]; len(m) > 0 {
		return m[0]
	}
	return ""
}

func runes(s string) int { return utf8.RuneCountInString(s) }

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 254 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

func Username(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reUsername.MatchString(s)
}

// Password enforces the bcrypt-safe length window.
func Password(s string) bool {
	return len(s) >= 8 && len(s) <= 72
}

// ID validates a resource identifier taken from a path or form.
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

type ProductInput struct {
	Name        string
	Description string
	Price       string
	Category    string
}

// Product checks the authoring form and returns the cleaned fields.
func Product(in ProductInput) (domain.Product, Errors) {
	errs := Errors{}
	p := domain.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
	}
	switch n := runes(p.Name); {
	case n < 3:
		errs.Add("name", "Name must be at least 3 characters.")
	case n > 100:
		errs.Add("name", "Name must be at most 100 characters.")
	}
	switch n := runes(p.Description); {
	case n < 10:
		errs.Add("description", "Description must be at least 10 characters.")
	case n > 2000:
		errs.Add("description", "Description must be at most 2000 characters.")
	}
	if price, ok := Price(in.Price); ok {
		p.Price = price
	} else {
		errs.Add("price", "Price must be a positive amount up to 1,000,000 with at most two decimals.")
	}
	if !domain.IsCategory(p.Category) {
		errs.Add("category", "Please select a category.")
	}
	return p, errs
}

// Price parses a positive amount with at most two decimals.
func Price(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	if !d.IsPositive() || d.GreaterThan(maxPrice) || !d.Equal(d.Round(2)) {
		return decimal.Zero, false
	}
	return d.Round(2), true
}

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Image sniffs data and returns the file extension for an accepted upload,
// or a user-facing message.
func Image(data []byte) (string, string) {
	if len(data) == 0 {
		return "", "Please choose an image."
	}
	if len(data) >= MaxImageBytes {
		return "", "Image must be smaller than 4 MB."
	}
	ext, ok := imageExt[http.DetectContentType(data)]
	if !ok {
		return "", "Image must be a JPEG, PNG or WebP file."
	}
	return ext, ""
}

type SignupInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
	Confirm   string
}

func Signup(in SignupInput) (SignupInput, Errors) {
	errs := Errors{}
	out := SignupInput{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Password:  in.Password,
		Confirm:   in.Confirm,
	}
	if runes(out.FirstName) < 2 || runes(out.FirstName) > 50 {
		errs.Add("first_name", "First name must be 2 to 50 characters.")
	}
	if runes(out.LastName) < 2 || runes(out.LastName) > 50 {
		errs.Add("last_name", "Last name must be 2 to 50 characters.")
	}
	var ok bool
	if out.Username, ok = Username(in.Username); !ok {
		errs.Add("username", "Username must be 3-15 letters, digits or underscores.")
	}
	if out.Email, ok = Email(in.Email); !ok {
		errs.Add("email", "Please enter a valid email address.")
	}
	if !Password(in.Password) {
		errs.Add("password", "Password must be 8 to 72 characters.")
	}
	if in.Password != in.Confirm {
		errs.Add("confirm", "Passwords do not match.")
	}
	return out, errs
}

type ProfileInput struct {
	Username  string
	FirstName string
	LastName  string
	Bio       string
	Theme     string
}

func Profile(in ProfileInput) (ProfileInput, Errors) {
	errs := Errors{}
	out := ProfileInput{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Bio:       strings.TrimSpace(in.Bio),
		Theme:     strings.TrimSpace(in.Theme),
	}
	var ok bool
	if out.Username, ok = Username(in.Username); !ok {
		errs.Add("username", "Username must be 3-15 letters, digits or underscores.")
	}
	if n := runes(out.FirstName); n > 0 && (n < 2 || n > 50) {
		errs.Add("first_name", "First name must be 2 to 50 characters.")
	}
	if n := runes(out.LastName); n > 0 && (n < 2 || n > 50) {
		errs.Add("last_name", "Last name must be 2 to 50 characters.")
	}
	if runes(out.Bio) > MaxBio {
		errs.Add("bio", "Bio must be at most 500 characters.")
	}
	// an empty theme leaves the stored preference alone
	if out.Theme != "" && !domain.IsTheme(out.Theme) {
		errs.Add("theme", "Theme must be light, dark or system.")
	}
	return out, errs
}

// Page parses a 1-based page number; anything invalid is page 1.
func Page(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Category maps "all" and unknown values to no filter.
func Category(s string) string {
	s = strings.TrimSpace(s)
	if domain.IsCategory(s) {
		return s
	}
	return ""
}

// Search trims and caps free-text search input.
func Search(s string) string {
	s = strings.TrimSpace(s)
	if runes(s) > MaxSearchLen {
		s = string([]rune(s)[:MaxSearchLen])
	}
	return s
}

// Listing builds a normalized filter from raw query parameters.
func Listing(page, category, sort, search string) domain.ListingFilter {
	return domain.ListingFilter{
		Page:     Page(page),
		Category: Category(category),
		Sort:     domain.ParseSort(sort),
		Search:   Search(search),
	}
}
