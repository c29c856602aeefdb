package domain

import (
	"strings"
	"time"
)

const (
	// DefaultUsername is used on signup when the email has no local part.
	DefaultUsername = "Member"
	// AnonymousAuthor is the last resort author name on a mirror.
	AnonymousAuthor = "Anonymous"
)

// Identity is what the identity provider vouches for. It is never persisted
// with secrets.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
}

// Profile is the user document holding the display name.
type Profile struct {
	UID       string    `json:"uid"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is a credential record for the local identity provider.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EmailLocalPart returns the part of an email before '@'.
func EmailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return strings.TrimSpace(local)
}

// DefaultUsernameFor is the username a new profile starts with.
func DefaultUsernameFor(email string) string {
	if local := EmailLocalPart(email); local != "" {
		return local
	}
	return DefaultUsername
}

// AuthorName resolves the display name stamped on a mirror:
// profile username, then email local part, then "Anonymous".
func AuthorName(p *Profile, email string) string {
	if p != nil && strings.TrimSpace(p.Username) != "" {
		return p.Username
	}
	if p != nil && email == "" {
		email = p.Email
	}
	if local := EmailLocalPart(email); local != "" {
		return local
	}
	return AnonymousAuthor
}
