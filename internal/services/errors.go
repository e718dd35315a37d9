package services

import (
	"errors"

	"blaze/internal/repos"
	"blaze/internal/validate"
)

var (
	ErrNotFound        = repos.ErrNotFound
	ErrBadCreds        = errors.New("invalid credentials")
	ErrHasOrders       = errors.New("product has orders")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrCartTooLarge    = errors.New("too many products for one checkout")
	ErrMissingMetadata = errors.New("checkout session is missing metadata")
	ErrPriceLookup     = errors.New("could not load product prices")
)

// FieldErrors carries per-field validation messages back to the form.
type FieldErrors struct {
	Fields validate.Errors
}

func (e *FieldErrors) Error() string { return "validation failed" }

func fieldErrors(errs validate.Errors) error {
	if errs.OK() {
		return nil
	}
	return &FieldErrors{Fields: errs}
}
