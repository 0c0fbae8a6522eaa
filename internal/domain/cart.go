package domain

// MaxLineQuantity caps how many units of one product a cart line may hold.
const MaxLineQuantity = 999

// CartLine is one product in a client cart session. ProductName is unique
// within a cart; CapturedPrice is the price seen when the item was added.
type CartLine struct {
	ProductName   string `json:"productName"`
	CapturedPrice int64  `json:"price"`
	Quantity      int    `json:"quantity"`
}

// ReconciledLine is a cart line priced against the live catalog.
type ReconciledLine struct {
	ProductName  string `json:"productName"`
	Quantity     int    `json:"quantity"`
	CurrentPrice *int64 `json:"currentPrice"`
	IsMissing    bool   `json:"isMissing"`
	LineTotal    int64  `json:"lineTotal"`
	Suggestion   string `json:"suggestion,omitempty"`
}

// Reconciliation is the checkout-ready view of a cart.
type Reconciliation struct {
	Lines           []ReconciledLine `json:"lines"`
	Total           int64            `json:"total"`
	HasMissingLines bool             `json:"hasMissingLines"`
}
