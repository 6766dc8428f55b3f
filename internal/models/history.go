package models

// TransferRecord is one row of the account-history API response.
// Timestamp is unix seconds.
type TransferRecord struct {
	ID        string `json:"_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Quantity  string `json:"quantity"`
	Symbol    string `json:"symbol"`
	Memo      string `json:"memo,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
