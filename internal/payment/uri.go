package payment

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	URIScheme           = "upi"
	CurrencyCode        = "INR"
	PhoneProviderSuffix = "@paytm"
)

// Intent is everything checkout shows for one payment: the URI encoded into
// the QR code and a manual fallback instruction.
type Intent struct {
	Payee       PayeeEndpoint `json:"payee"`
	Amount      int64         `json:"amount"`
	URI         string        `json:"uri"`
	Instruction string        `json:"instruction"`
}

// BuildURI returns the payment-intent URI for payee. Failures come back as
// *FieldError naming the offending input.
func BuildURI(payee PayeeEndpoint, amount int64, payeeName string) (string, error) {
	if amount <= 0 {
		return "", &FieldError{Field: "amount", Reason: "amount must be positive"}
	}
	payeeName = strings.TrimSpace(payeeName)
	if payeeName == "" {
		return "", &FieldError{Field: "payeeName", Reason: "payee name is required"}
	}
	addr, err := payee.Address()
	if err != nil {
		return "", err
	}

	// Parameter order is fixed; url.Values would sort the keys.
	params := [][2]string{
		{"pa", addr},
		{"pn", payeeName},
		{"am", strconv.FormatInt(amount, 10)},
		{"cu", CurrencyCode},
		{"tn", payeeName + " Order"},
	}
	var b strings.Builder
	b.WriteString(URIScheme)
	b.WriteString("://pay?")
	for i, kv := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(kv[0])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv[1]))
	}
	return b.String(), nil
}

// Instruction is the copy-paste text for customers who cannot scan a QR code.
func Instruction(payee PayeeEndpoint, amount int64, payeeName string) string {
	return fmt.Sprintf("Open any UPI app and send ₹%d to %s (%s).", amount, payee.Value, strings.TrimSpace(payeeName))
}

// NewIntent builds the URI and instruction together.
func NewIntent(payee PayeeEndpoint, amount int64, payeeName string) (Intent, error) {
	uri, err := BuildURI(payee, amount, payeeName)
	if err != nil {
		return Intent{}, err
	}
	return Intent{
		Payee:       payee,
		Amount:      amount,
		URI:         uri,
		Instruction: Instruction(payee, amount, payeeName),
	}, nil
}
