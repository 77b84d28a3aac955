// Package session defines the single-tenant session identity.
package session

// Identity is the connected user's identity. The three fields are set
// together on connect and cleared together on disconnect.
type Identity struct {
	Connected bool   `json:"connected"`
	UserID    int64  `json:"user_id,omitempty"`
	Username  string `json:"username,omitempty"`
}
