package domain

import "time"

// Character is the authenticated principal's identity as resolved from the
// identity provider. It is not a local user account: the provider is the
// source of truth for name and affiliation.
type Character struct {
	CharacterID   int64  `json:"character_id"`
	Name          string `json:"name"`
	CorporationID int64  `json:"corporation_id"`
	AllianceID    int64  `json:"alliance_id,omitempty"` // zero when the corporation holds no alliance membership
	RefreshToken  string `json:"refresh_token,omitempty"`
}

// TokenSet is the result of one authorization-code exchange.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
}

// RedirectState carries the caller's intent across the out-of-process round
// trip to the identity provider. It is written before control leaves the
// portal and consumed exactly once on return.
type RedirectState struct {
	ReturnPath  string      `json:"return_path"`
	Domain      LoginDomain `json:"domain"`
	AdminIntent bool        `json:"admin_intent"`
	AppID       AppID       `json:"app_id"`
}
