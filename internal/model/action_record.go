package model

// ActionRecord is the journal entry written when an orchestrated action
// reaches a terminal state. It is informational only; balances and reserves
// are always re-read from the ledger.
type ActionRecord struct {
	ChainID     uint64          `json:"chain_id"`
	Account     string          `json:"account"`
	Action      string          `json:"action"`
	State       string          `json:"state"`
	BaseAmount  string          `json:"base_amount,omitempty"`
	TokenAmount string          `json:"token_amount,omitempty"`
	Shares      string          `json:"shares,omitempty"`
	MinOutput   string          `json:"min_output,omitempty"`
	ApprovalTx  string          `json:"approval_tx,omitempty"`
	ActionTx    string          `json:"action_tx,omitempty"`
	BlockNumber uint64          `json:"block_number,omitempty"`
	Transfers   []TransferEvent `json:"transfers,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   string          `json:"started_at"`
	FinishedAt  string          `json:"finished_at"`
}
