package model

// WalletViewResponse represents response for GET /wallet/{userId}
type WalletViewResponse struct {
	Address  string `json:"address"`
	Balance  string `json:"balance"`
	Name     string `json:"name"`
	QR       string `json:"qr,omitempty"`
	USDValue string `json:"usd_value,omitempty"`
}

// CreateWalletRequest represents request for POST /wallet/{userId}
type CreateWalletRequest struct {
	Name string `json:"name,omitempty"`
}

// CreateWalletResponse represents response for POST /wallet/{userId}
type CreateWalletResponse struct {
	Success bool   `json:"success"`
	Address string `json:"address"`
	Name    string `json:"name"`
	// Seed is returned exactly once, at creation time, so the user can back
	// it up. It is never retrievable again in plaintext.
	Seed string `json:"seed,omitempty"`
}

// RecoverWalletRequest represents request for POST /wallet/{userId}/recover
type RecoverWalletRequest struct {
	Seed string `json:"seed"`
	Name string `json:"name,omitempty"`
}

// SwitchActiveRequest represents request for POST /wallet/{userId}/active
type SwitchActiveRequest struct {
	Index int `json:"index"`
}

// DeleteWalletResponse represents response for DELETE /wallet/{userId}
type DeleteWalletResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TokenPayload is the caller-supplied token-creation intent carried in the
// transaction memo. Fields mirror what the launch UI collects.
type TokenPayload struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Supply      string `json:"supply,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// CreateTokenResponse represents response for POST /wallet/{userId}/create-token
type CreateTokenResponse struct {
	Success bool   `json:"success"`
	TxHash  string `json:"txHash"`
}

// TestConnectionResponse represents response for GET /wallet/{userId}/test-connection
type TestConnectionResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Wallet  *WalletViewResponse `json:"wallet,omitempty"`
}
