// Package authz decides what a viewer may do with a listing.
package authz

import "errors"

var (
	ErrUnauthenticated = errors.New("authz: login required")
	ErrForbidden       = errors.New("authz: not the owner")
	ErrSold            = errors.New("authz: product already sold")
	ErrOwnListing      = errors.New("authz: cannot buy your own listing")
)

// Subject is the viewer. An empty UserID is an anonymous visitor.
type Subject struct {
	UserID string
}

func (s Subject) Anonymous() bool { return s.UserID == "" }

// Resource is a product as seen by one subject.
type Resource struct {
	OwnerID string
	Sold    bool
	// Purchased is whether the subject already bought it.
	Purchased bool
}

type Action string

const (
	ActionManage    Action = "manage"
	ActionPurchased Action = "purchased"
	ActionSold      Action = "sold"
	ActionPurchase  Action = "purchase"
)

type Decision struct {
	IsOwner      bool
	HasPurchased bool
	IsSold       bool
	Action       Action
}

// Decide is the single place ownership and state turn into an action.
// Precedence: an unsold listing is managed by its owner; a buyer who already
// purchased sees that; anything else sold is sold; the rest may be bought.
func Decide(s Subject, r Resource) Decision {
	d := Decision{
		IsOwner:      !s.Anonymous() && s.UserID == r.OwnerID,
		HasPurchased: !s.Anonymous() && r.Purchased,
		IsSold:       r.Sold,
	}
	switch {
	case d.IsOwner && !d.IsSold:
		d.Action = ActionManage
	case !d.IsOwner && d.HasPurchased:
		d.Action = ActionPurchased
	case d.IsSold:
		d.Action = ActionSold
	default:
		d.Action = ActionPurchase
	}
	return d
}

// CanManage returns nil when s may edit or delete r.
func CanManage(s Subject, r Resource) error {
	if s.Anonymous() {
		return ErrUnauthenticated
	}
	d := Decide(s, r)
	if !d.IsOwner {
		return ErrForbidden
	}
	if d.IsSold {
		return ErrSold
	}
	return nil
}

// CanBuy returns nil when s may start a checkout for r.
func CanBuy(s Subject, r Resource) error {
	if s.Anonymous() {
		return ErrUnauthenticated
	}
	d := Decide(s, r)
	switch {
	case d.IsSold:
		return ErrSold
	case d.IsOwner:
		return ErrOwnListing
	}
	return nil
}
