// Package domain contains entity without logic, just meta-data
package domain

type (
	UserID  string
	GroupID string
)

// Profile is the display info resolved from the surrounding system when a
// message is enriched for delivery. The coordinator never stores it.
type Profile struct {
	Name      string `json:"name"`
	AvatarRef string `json:"avatar_ref,omitempty"`
}

// Identity is what a verified credential resolves to at admission time.
// Group is empty for users without a cooperative-group membership.
type Identity struct {
	User  UserID
	Group GroupID
}
