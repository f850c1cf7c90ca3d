package model

// ErrorResponse is the consistent JSON structure for all API error responses.
// Code carries the stable error kind (e.g. "not_found", "already_exists",
// "transaction_failed") so the bot layer can branch without parsing messages.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
