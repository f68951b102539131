package model

// TokenMeta captures ERC20 metadata used to parse and display amounts.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	// Fallback is set when decimals could not be read and the configured default was used.
	Fallback bool `json:"fallback,omitempty"`
}
