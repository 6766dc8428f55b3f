package models

// Portfolio is the aggregated view of one account, assembled from the
// balance, staking and history sources in parallel. Sections that failed
// to load are nil and named in Warnings; the read path degrades rather
// than failing the whole view.
type Portfolio struct {
	Account         string           `json:"account"`
	Balance         *TokenBalance    `json:"balance,omitempty"`
	Stake           *StakeInfo       `json:"stake,omitempty"`
	RecentTransfers []TransferRecord `json:"recent_transfers,omitempty"`
	Warnings        []string         `json:"warnings,omitempty"`
}
