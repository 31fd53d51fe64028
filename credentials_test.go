package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsMissingPerVariant(t *testing.T) {
	cases := []struct {
		name    string
		creds   Credentials
		missing []string
	}{
		{"api key empty", APIKeyCredentials{}, []string{"api_key"}},
		{"api key whitespace", APIKeyCredentials{APIKey: "  "}, []string{"api_key"}},
		{"api key set without server", APIKeyCredentials{APIKey: "x"}, nil},
		{"basic missing password", UsernamePasswordCredentials{Username: "ops", ServerURL: "https://emr"}, []string{"password"}},
		{"basic complete", UsernamePasswordCredentials{Username: "ops", Password: "pw"}, nil},
		{"oauth missing both", OAuth2Credentials{ServerURL: "https://crm"}, []string{"client_id", "client_secret"}},
		{"oauth complete", OAuth2Credentials{ClientID: "id", ClientSecret: "s"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.missing, tc.creds.Missing())
			assert.Equal(t, len(tc.missing) == 0, CredentialsComplete(tc.creds))
		})
	}
	assert.False(t, CredentialsComplete(nil))
}

func TestNewCredentialsStartsEmpty(t *testing.T) {
	for _, kind := range CredentialKinds() {
		creds := NewCredentials(kind)
		require.NotNil(t, creds, kind)
		assert.Equal(t, kind, creds.Kind())
		assert.NotEmpty(t, creds.Missing())
	}
	assert.Nil(t, NewCredentials(CredentialKindNone))
}

func TestParseCredentialKind(t *testing.T) {
	kind, err := ParseCredentialKind(" ApiKey ")
	require.NoError(t, err)
	assert.Equal(t, CredentialKindAPIKey, kind)

	kind, err = ParseCredentialKind("basic")
	require.NoError(t, err)
	assert.Equal(t, CredentialKindUsernamePassword, kind)

	_, err = ParseCredentialKind("kerberos")
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeValidation))
}

func TestCredentialsRedacted(t *testing.T) {
	creds := UsernamePasswordCredentials{Username: "ops", Password: "hunter22", ServerURL: "https://emr"}
	red, ok := creds.Redacted().(UsernamePasswordCredentials)
	require.True(t, ok)
	assert.Equal(t, "ops", red.Username)
	assert.Equal(t, "****er22", red.Password)
	assert.Equal(t, "https://emr", red.ServerURL)
	assert.Equal(t, "hunter22", creds.Password)

	oauth := OAuth2Credentials{ClientID: "client", ClientSecret: "abc"}.Redacted().(OAuth2Credentials)
	assert.Equal(t, "****", oauth.ClientSecret)

	key := APIKeyCredentials{}.Redacted().(APIKeyCredentials)
	assert.Empty(t, key.APIKey)
}
