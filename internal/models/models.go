package models

import (
	"fmt"
	"time"
)

type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderGithub Provider = "github"
)

// ParseProvider maps a path segment onto a known provider. Known does not
// mean supported: only google can currently log in.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case ProviderGoogle, ProviderGithub:
		return p, nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Identity is a verified third-party identity assertion. It is never persisted.
type Identity struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL string
	Audience  string
}

type Account struct {
	ID        string   `json:"accountId"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Provider  Provider `json:"provider"`
	AvatarURL *string  `json:"avatarUrl,omitempty"`
	Plan      Plan     `json:"plan"`
}

type Workspace struct {
	ID        string     `json:"workspaceId"`
	AccountID string     `json:"accountId"`
	Name      string     `json:"name"`
	Colour    string     `json:"colour"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	Priority  *int32     `json:"priority,omitempty"`
}

const (
	DefaultWorkspaceName   = "Unset"
	DefaultWorkspaceColour = "grey"
)

// Session is what a successful login or refresh hands back to the caller.
type Session struct {
	Account      Account
	AccessToken  string
	RefreshToken string
}

// RefreshToken is the stored form of an issued refresh token. The raw token
// is never kept, only its hash.
type RefreshToken struct {
	ID        string
	AccountID string
	TokenHash []byte
	ExpiresAt time.Time
}

// Message is published to the account events queue.
type Message struct {
	Email   string `json:"to"`
	Name    string `json:"name"`
	Purpose string `json:"purpose"`
}

const PurposeWelcome = "welcome"
