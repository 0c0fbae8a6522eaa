// Package payment describes where customers send money and builds the
// payment intents shown at checkout. No money moves through this package.
package payment

import (
	"fmt"
	"regexp"
	"strings"
)

// PayeeKind distinguishes phone-linked and address-linked collection endpoints.
type PayeeKind string

const (
	PhoneLinked   PayeeKind = "phone"
	AddressLinked PayeeKind = "upi"
)

// PayeeEndpoint is a single payment-collection endpoint.
type PayeeEndpoint struct {
	ID           string    `yaml:"id" json:"id"`
	Kind         PayeeKind `yaml:"kind" json:"kind"`
	DisplayLabel string    `yaml:"label" json:"label"`
	Value        string    `yaml:"value" json:"value"`
}

// FieldError reports which input failed validation and why.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

var (
	phonePattern   = regexp.MustCompile(`^\d{10,15}$`)
	addressPattern = regexp.MustCompile(`^[a-zA-Z0-9.\-]{2,256}@[a-zA-Z][a-zA-Z0-9]{2,64}$`)
)

// Validate checks the endpoint value against the rules for its kind.
func Validate(p PayeeEndpoint) error {
	if strings.TrimSpace(p.Value) == "" {
		return &FieldError{Field: "value", Reason: "payee value is empty"}
	}
	switch p.Kind {
	case AddressLinked:
		if strings.Count(p.Value, "@") != 1 {
			return &FieldError{Field: "value", Reason: "UPI ID must contain exactly one @ symbol"}
		}
		if !addressPattern.MatchString(p.Value) {
			return &FieldError{Field: "value", Reason: "invalid UPI ID format"}
		}
	case PhoneLinked:
		if !phonePattern.MatchString(p.Value) {
			return &FieldError{Field: "value", Reason: "phone number must be 10-15 digits"}
		}
	default:
		return &FieldError{Field: "kind", Reason: fmt.Sprintf("unsupported payee kind %q", p.Kind)}
	}
	return nil
}

// Address returns the collection address the payment URI points at.
// Phone-linked payees are rewritten with the provider suffix.
func (p PayeeEndpoint) Address() (string, error) {
	if err := Validate(p); err != nil {
		return "", err
	}
	if p.Kind == PhoneLinked {
		return p.Value + PhoneProviderSuffix, nil
	}
	return p.Value, nil
}
