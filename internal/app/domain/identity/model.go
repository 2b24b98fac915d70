// Package identity holds the user identity record supplied by the hosting
// environment. The service never authenticates users itself; the Telegram host
// hands over these fields and the reward service caches them in its snapshot.
package identity

import "strings"

// User is the identity record supplied at session start.
type User struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	Locale      string `json:"locale"`
	Premium     bool   `json:"isPremium"`
}

// Display returns the name to show for the user, falling back to a generic
// label when the host supplied no name.
func (u *User) Display() string {
	if u == nil {
		return "Guest"
	}
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	return "User"
}
