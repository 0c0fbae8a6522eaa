package domain

import "time"

// OrderItem is a line of a submitted order.
type OrderItem struct {
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

// Order is an order as held by the order store. Timestamp is in
// nanoseconds since the Unix epoch. Notes carries user-authored text and
// any embedded payment annotation verbatim.
type Order struct {
	ID           int64       `json:"id"`
	CustomerName string      `json:"customerName"`
	PhoneNumber  string      `json:"phoneNumber"`
	Address      string      `json:"address"`
	Notes        *string     `json:"notes,omitempty"`
	TotalAmount  int64       `json:"totalAmount"`
	Timestamp    int64       `json:"timestamp"`
	Items        []OrderItem `json:"items"`
}

// CreatedAt returns the order timestamp as a time value.
func (o Order) CreatedAt() time.Time {
	return time.Unix(0, o.Timestamp).UTC()
}

// NotesText returns the notes string, or "" when absent.
func (o Order) NotesText() string {
	if o.Notes == nil {
		return ""
	}
	return *o.Notes
}
