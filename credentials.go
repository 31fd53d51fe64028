package integration

import (
	"fmt"
	"strings"
)

// CredentialKind tags the authentication variant chosen for an integration.
type CredentialKind string

const (
	CredentialKindNone             CredentialKind = ""
	CredentialKindAPIKey           CredentialKind = "api_key"
	CredentialKindUsernamePassword CredentialKind = "username_password"
	CredentialKindOAuth2           CredentialKind = "oauth2"
)

// CredentialKinds lists the supported variants in display order.
func CredentialKinds() []CredentialKind {
	return []CredentialKind{
		CredentialKindAPIKey,
		CredentialKindUsernamePassword,
		CredentialKindOAuth2,
	}
}

// ParseCredentialKind accepts the canonical tag plus a few common spellings.
func ParseCredentialKind(raw string) (CredentialKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "api_key", "apikey", "api-key":
		return CredentialKindAPIKey, nil
	case "username_password", "basic", "username-password", "userpass":
		return CredentialKindUsernamePassword, nil
	case "oauth2", "oauth":
		return CredentialKindOAuth2, nil
	}
	return CredentialKindNone, CloneError(ErrValidation, fmt.Sprintf("unknown credential kind %q", raw), nil, nil)
}

// Credentials is a closed sum type: APIKeyCredentials, UsernamePasswordCredentials
// or OAuth2Credentials. Each variant only carries its own fields.
type Credentials interface {
	Kind() CredentialKind
	// Server returns the optional server URL.
	Server() string
	// Missing lists the required fields that are empty.
	Missing() []string
	// Redacted returns a copy with secrets masked.
	Redacted() Credentials
	isCredentials()
}

// NewCredentials returns the empty value of the requested variant. Switching
// variants always starts from an empty value.
func NewCredentials(kind CredentialKind) Credentials {
	switch kind {
	case CredentialKindAPIKey:
		return APIKeyCredentials{}
	case CredentialKindUsernamePassword:
		return UsernamePasswordCredentials{}
	case CredentialKindOAuth2:
		return OAuth2Credentials{}
	}
	return nil
}

// CredentialsComplete reports whether creds is set and has every required field.
func CredentialsComplete(creds Credentials) bool {
	return creds != nil && len(creds.Missing()) == 0
}

type APIKeyCredentials struct {
	APIKey    string `json:"api_key" yaml:"api_key"`
	ServerURL string `json:"server_url,omitempty" yaml:"server_url,omitempty"`
}

func (APIKeyCredentials) Kind() CredentialKind { return CredentialKindAPIKey }
func (c APIKeyCredentials) Server() string     { return c.ServerURL }
func (APIKeyCredentials) isCredentials()       {}

func (c APIKeyCredentials) Missing() []string {
	return missing(field{"api_key", c.APIKey})
}

func (c APIKeyCredentials) Redacted() Credentials {
	c.APIKey = mask(c.APIKey)
	return c
}

type UsernamePasswordCredentials struct {
	Username  string `json:"username" yaml:"username"`
	Password  string `json:"password" yaml:"password"`
	ServerURL string `json:"server_url,omitempty" yaml:"server_url,omitempty"`
}

func (UsernamePasswordCredentials) Kind() CredentialKind { return CredentialKindUsernamePassword }
func (c UsernamePasswordCredentials) Server() string     { return c.ServerURL }
func (UsernamePasswordCredentials) isCredentials()       {}

func (c UsernamePasswordCredentials) Missing() []string {
	return missing(field{"username", c.Username}, field{"password", c.Password})
}

func (c UsernamePasswordCredentials) Redacted() Credentials {
	c.Password = mask(c.Password)
	return c
}

type OAuth2Credentials struct {
	ClientID     string `json:"client_id" yaml:"client_id"`
	ClientSecret string `json:"client_secret" yaml:"client_secret"`
	ServerURL    string `json:"server_url,omitempty" yaml:"server_url,omitempty"`
}

func (OAuth2Credentials) Kind() CredentialKind { return CredentialKindOAuth2 }
func (c OAuth2Credentials) Server() string     { return c.ServerURL }
func (OAuth2Credentials) isCredentials()       {}

func (c OAuth2Credentials) Missing() []string {
	return missing(field{"client_id", c.ClientID}, field{"client_secret", c.ClientSecret})
}

func (c OAuth2Credentials) Redacted() Credentials {
	c.ClientSecret = mask(c.ClientSecret)
	return c
}

type field struct {
	name  string
	value string
}

func missing(fields ...field) []string {
	var out []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			out = append(out, f.name)
		}
	}
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
