// Package ordernote embeds payment metadata in the free-text notes of an
// order and reads it back. The block format is stored in existing orders
// and must not change:
//
//	[PAYMENT_INFO]
//	Method: Google Pay
//	PaymentFlow: qr
//	PayeeType: phone
//	PayeeLabel: Google Pay
//	PayeeValue: 9494237076
//	TransactionRef: 123456
//	[/PAYMENT_INFO]
package ordernote

import (
	"regexp"
	"strings"

	"storefront/internal/payment"
)

const (
	OpenMarker  = "[PAYMENT_INFO]"
	CloseMarker = "[/PAYMENT_INFO]"

	DefaultMethod = "Google Pay"
)

// Flow is how the customer reached the payment app.
type Flow string

const (
	FlowQR       Flow = "qr"
	FlowDeepLink Flow = "deeplink"
)

// Annotation is the payment metadata recorded with an order. Empty optional
// fields are omitted from the encoded block.
type Annotation struct {
	Method         string            `json:"method"`
	PayeeKind      payment.PayeeKind `json:"payeeType,omitempty"`
	PayeeLabel     string            `json:"payeeLabel,omitempty"`
	PayeeValue     string            `json:"payeeValue,omitempty"`
	TransactionRef string            `json:"transactionRef,omitempty"`
	Flow           Flow              `json:"paymentFlow,omitempty"`
}

const (
	keyMethod         = "Method"
	keyFlow           = "PaymentFlow"
	keyPayeeType      = "PayeeType"
	keyPayeeLabel     = "PayeeLabel"
	keyPayeeValue     = "PayeeValue"
	keyTransactionRef = "TransactionRef"
)

var blockPattern = regexp.MustCompile(`(?s)\[PAYMENT_INFO\](.*?)\[/PAYMENT_INFO\]`)

// FromPayee builds the annotation recorded at checkout. A nil payee leaves
// the payee fields empty.
func FromPayee(method string, payee *payment.PayeeEndpoint, transactionRef string, flow Flow) Annotation {
	if strings.TrimSpace(method) == "" {
		method = DefaultMethod
	}
	if flow == "" {
		flow = FlowQR
	}
	a := Annotation{
		Method:         method,
		Flow:           flow,
		TransactionRef: strings.TrimSpace(transactionRef),
	}
	if payee != nil {
		a.PayeeKind = payee.Kind
		a.PayeeLabel = payee.DisplayLabel
		a.PayeeValue = payee.Value
	}
	return a
}

// Block renders the delimited annotation block alone.
func (a Annotation) Block() string {
	var b strings.Builder
	b.WriteString(OpenMarker)
	writeField(&b, keyMethod, a.Method)
	writeField(&b, keyFlow, string(a.Flow))
	writeField(&b, keyPayeeType, string(a.PayeeKind))
	writeField(&b, keyPayeeLabel, a.PayeeLabel)
	writeField(&b, keyPayeeValue, a.PayeeValue)
	writeField(&b, keyTransactionRef, a.TransactionRef)
	b.WriteByte('\n')
	b.WriteString(CloseMarker)
	return b.String()
}

func writeField(b *strings.Builder, key, value string) {
	value = clean(value)
	if value == "" {
		return
	}
	b.WriteByte('\n')
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
}

// clean keeps a value on a single line and free of block markers.
func clean(v string) string {
	v = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(v)
	return strings.TrimSpace(StripMarkers(v))
}

// StripMarkers removes block markers from customer-written text so it can
// never open or close an annotation block of its own.
func StripMarkers(v string) string {
	for {
		next := strings.ReplaceAll(strings.ReplaceAll(v, OpenMarker, ""), CloseMarker, "")
		if next == v {
			return v
		}
		v = next
	}
}

// Encode returns the notes string stored with an order: the user's own
// notes first, a blank line, then the annotation block. Markers inside the
// user's notes are dropped.
func Encode(a Annotation, userNotes string) string {
	block := a.Block()
	userNotes = strings.TrimSpace(StripMarkers(userNotes))
	if userNotes == "" {
		return block
	}
	return userNotes + "\n\n" + block
}

// Decode extracts the first annotation block from notes. The second return
// is false when there is no complete block or the block has no Method.
func Decode(notes string) (Annotation, bool) {
	m := blockPattern.FindStringSubmatch(notes)
	if m == nil {
		return Annotation{}, false
	}

	var a Annotation
	for _, line := range strings.Split(m[1], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, _ := strings.Cut(line, ":")
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case keyMethod:
			a.Method = value
		case keyFlow:
			a.Flow = Flow(value)
		case keyPayeeType:
			a.PayeeKind = payment.PayeeKind(value)
		case keyPayeeLabel:
			a.PayeeLabel = value
		case keyPayeeValue:
			a.PayeeValue = value
		case keyTransactionRef:
			a.TransactionRef = value
		}
	}
	if a.Method == "" {
		return Annotation{}, false
	}
	return a, true
}

// ExtractUserNotes strips every annotation block and returns what the
// customer wrote.
func ExtractUserNotes(notes string) string {
	return strings.TrimSpace(blockPattern.ReplaceAllString(notes, ""))
}
