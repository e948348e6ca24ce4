package ledger

import "time"

// Transaction kinds. Amounts are signed: debits are stored negative.
const (
	KindDeposit    = "DEPOSIT"
	KindOrder      = "ORDER"
	KindRefund     = "REFUND"
	KindWithdrawal = "WITHDRAWAL"
)

// Wallet holds one user's balance in minor units (cents).
type Wallet struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Balance     int64     `json:"balance"`
	LastUpdated time.Time `json:"last_updated"`
}

// Transaction is an immutable ledger entry. BalanceAfter snapshots the wallet
// balance as read under the same row lock that applied the mutation.
type Transaction struct {
	ID           string    `json:"id"`
	WalletID     string    `json:"wallet_id"`
	Type         string    `json:"type"`
	Amount       int64     `json:"amount"`
	Description  string    `json:"description"`
	Timestamp    time.Time `json:"timestamp"`
	BalanceAfter int64     `json:"balance_after"`
}
