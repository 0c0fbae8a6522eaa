package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput wraps caller-side validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyCart is returned when checking out a cart without lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrMissingProducts blocks checkout while the cart references products
	// that are no longer in the catalog.
	ErrMissingProducts = errors.New("cart contains products that are no longer available")
	// ErrPaymentUnavailable indicates no usable payee is configured; checkout
	// falls back to asking the customer to get in touch to pay.
	ErrPaymentUnavailable = errors.New("online payment is not configured")
	// ErrDuplicateProduct indicates two records share a product name.
	ErrDuplicateProduct = errors.New("duplicate product name")
)
