package model

// ErrorResponse is the consistent JSON structure for all API error responses.
// Code carries the stable reason code for policy blocks and declines.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
