package request

// CreateTransactionRequest is the body for recording a transaction.
type CreateTransactionRequest struct {
	HoldingID    string  `json:"holdingId"`
	Date         string  `json:"date"`
	Type         string  `json:"type"`
	Shares       float64 `json:"shares"`
	CostPerShare float64 `json:"costPerShare"`
}

// UpdateTransactionRequest carries partial transaction updates. The holding a
// transaction belongs to cannot be changed.
type UpdateTransactionRequest struct {
	Date         *string  `json:"date,omitempty"`
	Type         *string  `json:"type,omitempty"`
	Shares       *float64 `json:"shares,omitempty"`
	CostPerShare *float64 `json:"costPerShare,omitempty"`
}
