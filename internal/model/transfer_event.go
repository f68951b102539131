package model

// TransferEvent is a decoded ERC-20 Transfer log of the token or the share token.
type TransferEvent struct {
	Token       string `json:"token"`
	From        string `json:"from"`
	To          string `json:"to"`
	Amount      string `json:"amount"`
	LogIndex    uint64 `json:"log_index"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	TxHash      string `json:"tx_hash,omitempty"`
}
