package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	integration "github.com/goliatone/go-integration"
	"github.com/goliatone/go-integration/wizard"
)

// DraftFile is the answers a wizard session needs, in YAML or JSON. String
// values may reference environment variables as ${NAME}.
type DraftFile struct {
	SystemType  string            `yaml:"system_type"`
	SystemName  string            `yaml:"system_name"`
	Credentials CredentialsFile   `yaml:"credentials"`
	Template    string            `yaml:"template"`
	Mappings    map[string]string `yaml:"mappings"`
	// SourceFields feed mapping suggestions for fields still unmapped.
	SourceFields     []string `yaml:"source_fields"`
	SuggestThreshold float64  `yaml:"suggest_threshold"`
}

type CredentialsFile struct {
	Kind         string `yaml:"kind"`
	APIKey       string `yaml:"api_key"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	ServerURL    string `yaml:"server_url"`
}

const defaultSuggestThreshold = 0.8

func ParseDraftFile(data []byte) (DraftFile, error) {
	var f DraftFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, integration.CloneError(integration.ErrValidation, "invalid draft file", err, nil)
	}
	return f, nil
}

func LoadDraftFile(path string) (DraftFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DraftFile{}, fmt.Errorf("read draft file %s: %w", path, err)
	}
	return ParseDraftFile(data)
}

// Credentials builds the tagged variant named by Kind. Fields that belong to
// other variants are ignored.
func (f CredentialsFile) Credentials() (integration.Credentials, error) {
	kind, err := integration.ParseCredentialKind(f.Kind)
	if err != nil {
		return nil, err
	}
	server := os.ExpandEnv(f.ServerURL)
	switch kind {
	case integration.CredentialKindAPIKey:
		return integration.APIKeyCredentials{APIKey: os.ExpandEnv(f.APIKey), ServerURL: server}, nil
	case integration.CredentialKindUsernamePassword:
		return integration.UsernamePasswordCredentials{
			Username:  os.ExpandEnv(f.Username),
			Password:  os.ExpandEnv(f.Password),
			ServerURL: server,
		}, nil
	default:
		return integration.OAuth2Credentials{
			ClientID:     os.ExpandEnv(f.ClientID),
			ClientSecret: os.ExpandEnv(f.ClientSecret),
			ServerURL:    server,
		}, nil
	}
}

// Drive answers steps 1 to 3 and advances the controller to the sync test
// step. It reports which step refused to advance.
func (f DraftFile) Drive(ctx context.Context, c *wizard.Controller) error {
	st, err := integration.ParseSystemType(f.SystemType)
	if err != nil {
		return err
	}
	if err := c.SetSystemType(st); err != nil {
		return err
	}
	if err := c.SetSystemName(os.ExpandEnv(f.SystemName)); err != nil {
		return err
	}
	if err := advance(ctx, c, func() string { return "system type and name are required" }); err != nil {
		return err
	}

	creds, err := f.Credentials.Credentials()
	if err != nil {
		return err
	}
	if err := c.SetCredentials(creds); err != nil {
		return err
	}
	if err := advance(ctx, c, func() string { return "missing credentials: " + strings.Join(creds.Missing(), ", ") }); err != nil {
		return err
	}

	if f.Template != "" {
		if err := c.ApplyTemplate(f.Template); err != nil {
			return err
		}
	}
	for field, source := range f.Mappings {
		if err := c.SetMapping(field, source); err != nil {
			return err
		}
	}
	if len(f.SourceFields) > 0 {
		threshold := f.SuggestThreshold
		if threshold <= 0 {
			threshold = defaultSuggestThreshold
		}
		if _, err := c.ApplySuggestions(f.SourceFields, threshold); err != nil {
			return err
		}
	}
	return advance(ctx, c, func() string {
		return "unmapped required fields: " + strings.Join(c.MissingRequired(), ", ")
	})
}

func advance(ctx context.Context, c *wizard.Controller, reason func() string) error {
	from := c.Step()
	ok, err := c.Advance(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return integration.CloneError(integration.ErrValidation, fmt.Sprintf("%s step incomplete: %s", from.Title(), reason()), nil, map[string]any{
		"step": from.String(),
	})
}
