package payment

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Directory is the static payee configuration for the storefront.
type Directory struct {
	MerchantName   string          `yaml:"merchant_name" json:"merchantName"`
	DefaultPayeeID string          `yaml:"default_payee" json:"defaultPayeeId,omitempty"`
	Payees         []PayeeEndpoint `yaml:"payees" json:"payees"`
}

// DefaultDirectory is used when no payee file is configured.
func DefaultDirectory(merchantName string) Directory {
	return Directory{
		MerchantName:   merchantName,
		DefaultPayeeID: "gpay-phone",
		Payees: []PayeeEndpoint{
			{ID: "gpay-phone", Kind: PhoneLinked, DisplayLabel: "Google Pay", Value: "9494237076"},
		},
	}
}

// LoadDirectory reads a YAML payee directory from path. An empty merchant
// name in the file falls back to merchantName.
func LoadDirectory(path, merchantName string) (Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Directory{}, fmt.Errorf("read payee file: %w", err)
	}
	return ParseDirectory(raw, merchantName)
}

// ParseDirectory decodes and checks a YAML payee directory.
func ParseDirectory(raw []byte, merchantName string) (Directory, error) {
	var d Directory
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Directory{}, fmt.Errorf("parse payee file: %w", err)
	}
	if strings.TrimSpace(d.MerchantName) == "" {
		d.MerchantName = merchantName
	}
	seen := make(map[string]struct{}, len(d.Payees))
	for i, p := range d.Payees {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return Directory{}, fmt.Errorf("payee[%d]: id is required", i)
		}
		if _, dup := seen[id]; dup {
			return Directory{}, fmt.Errorf("payee[%d]: duplicate id %q", i, id)
		}
		seen[id] = struct{}{}
		d.Payees[i].ID = id
	}
	if d.DefaultPayeeID != "" {
		if _, ok := seen[d.DefaultPayeeID]; !ok {
			return Directory{}, fmt.Errorf("default payee %q is not listed", d.DefaultPayeeID)
		}
	}
	return d, nil
}

// Configured reports whether online payment can be offered at all.
func (d Directory) Configured() bool {
	return len(d.Payees) > 0 && strings.TrimSpace(d.MerchantName) != ""
}

// Lookup finds a payee by id.
func (d Directory) Lookup(id string) (PayeeEndpoint, bool) {
	for _, p := range d.Payees {
		if p.ID == id {
			return p, true
		}
	}
	return PayeeEndpoint{}, false
}

// Default returns the configured default payee, else the first one.
func (d Directory) Default() (PayeeEndpoint, bool) {
	if len(d.Payees) == 0 {
		return PayeeEndpoint{}, false
	}
	if d.DefaultPayeeID != "" {
		if p, ok := d.Lookup(d.DefaultPayeeID); ok {
			return p, true
		}
	}
	return d.Payees[0], true
}

// Resolve looks up id, or the default payee when id is empty.
func (d Directory) Resolve(id string) (PayeeEndpoint, bool) {
	if strings.TrimSpace(id) == "" {
		return d.Default()
	}
	return d.Lookup(strings.TrimSpace(id))
}
