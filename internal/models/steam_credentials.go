package models

// SteamCredentials holds the Steam account parameters used for both the web
// session and the mobile session.
type SteamCredentials struct {
	AccountName    string `json:"account_name"`
	Password       string `json:"-"`
	SharedSecret   string `json:"-"` // base64, for TOTP login codes
	IdentitySecret string `json:"-"` // base64, for mobile confirmations
	AppID          int    `json:"app_id"`
	ContextID      int    `json:"context_id"`
}
