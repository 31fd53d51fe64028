package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	integration "github.com/goliatone/go-integration"
	"github.com/goliatone/go-integration/wizard"
)

func TestCredentialsFileVariants(t *testing.T) {
	t.Setenv("TEST_CLIENT_SECRET", "from-env")
	file := CredentialsFile{
		APIKey:       "k",
		Username:     "u",
		Password:     "p",
		ClientID:     "id",
		ClientSecret: "${TEST_CLIENT_SECRET}",
		ServerURL:    "https://api.example.com",
	}

	tests := []struct {
		kind string
		want integration.Credentials
	}{
		{"api_key", integration.APIKeyCredentials{APIKey: "k", ServerURL: "https://api.example.com"}},
		{"basic", integration.UsernamePasswordCredentials{Username: "u", Password: "p", ServerURL: "https://api.example.com"}},
		{"oauth2", integration.OAuth2Credentials{ClientID: "id", ClientSecret: "from-env", ServerURL: "https://api.example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			file.Kind = tt.kind
			got, err := file.Credentials()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	file.Kind = "kerberos"
	_, err := file.Credentials()
	assert.True(t, integration.HasCode(err, integration.ErrCodeValidation))
}

func TestParseDraftFileRejectsMalformedYAML(t *testing.T) {
	_, err := ParseDraftFile([]byte("system_type: [emr"))
	assert.True(t, integration.HasCode(err, integration.ErrCodeValidation))
}

func TestLoadDraftFileMissing(t *testing.T) {
	_, err := LoadDraftFile("does-not-exist.yaml")
	assert.Error(t, err)
}

func newDriveController(t *testing.T) *wizard.Controller {
	t.Helper()
	app, _ := newTestApp(t, 1)
	p, err := app.Pipeline()
	require.NoError(t, err)
	c, err := app.Controller(p)
	require.NoError(t, err)
	return c
}

func TestDriveReachesSyncTest(t *testing.T) {
	file, err := ParseDraftFile([]byte(`
system_type: crm
system_name: Sales CRM
credentials:
  kind: username_password
  username: ops
  password: pw
mappings:
  resident_id: Id
  first_name: FirstName
  last_name: LastName
  date_of_birth: Birthdate
  move_in_date: MoveIn
  unit_number: Unit
  care_level: Care
`))
	require.NoError(t, err)

	c := newDriveController(t)
	require.NoError(t, file.Drive(context.Background(), c))
	assert.Equal(t, wizard.StepSyncTest, c.Step())
	assert.Equal(t, integration.SystemTypeCRM, c.Draft().SystemType)
	assert.Equal(t, integration.CredentialKindUsernamePassword, c.Draft().CredentialKind())
	assert.Equal(t, "Id", c.Draft().FieldMappings["resident_id"])
}

func TestDriveStopsAtIncompleteStep(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
		wantText string
		wantStep wizard.Step
	}{
		{
			name:     "blank name",
			body:     "system_type: emr\nsystem_name: \"  \"\n",
			wantCode: integration.ErrCodeValidation,
			wantText: "System Type step incomplete",
			wantStep: wizard.StepSystemType,
		},
		{
			name:     "unknown system type",
			body:     "system_type: erp\nsystem_name: X\n",
			wantCode: integration.ErrCodeValidation,
			wantStep: wizard.StepSystemType,
		},
		{
			name:     "missing password",
			body:     "system_type: emr\nsystem_name: X\ncredentials:\n  kind: basic\n  username: ops\n",
			wantCode: integration.ErrCodeValidation,
			wantText: "password",
			wantStep: wizard.StepAuthentication,
		},
		{
			name:     "unknown template",
			body:     "system_type: emr\nsystem_name: X\ncredentials:\n  kind: api_key\n  api_key: k\ntemplate: nope\n",
			wantCode: integration.ErrCodeInvalidTemplate,
			wantStep: wizard.StepFieldMapping,
		},
		{
			name:     "unknown field",
			body:     "system_type: emr\nsystem_name: X\ncredentials:\n  kind: api_key\n  api_key: k\nmappings:\n  shoe_size: s\n",
			wantCode: integration.ErrCodeUnknownField,
			wantStep: wizard.StepFieldMapping,
		},
		{
			name:     "required fields unmapped",
			body:     "system_type: emr\nsystem_name: X\ncredentials:\n  kind: api_key\n  api_key: k\nmappings:\n  resident_id: id\n",
			wantCode: integration.ErrCodeValidation,
			wantText: "unmapped required fields",
			wantStep: wizard.StepFieldMapping,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := ParseDraftFile([]byte(tt.body))
			require.NoError(t, err)

			c := newDriveController(t)
			err = file.Drive(context.Background(), c)
			require.Error(t, err)
			assert.True(t, integration.HasCode(err, tt.wantCode), "got %v", err)
			if tt.wantText != "" {
				assert.Contains(t, err.Error(), tt.wantText)
			}
			assert.Equal(t, tt.wantStep, c.Step())
		})
	}
}

func TestDriveAppliesSuggestionsToUnmappedFields(t *testing.T) {
	file, err := ParseDraftFile([]byte(`
system_type: emr
system_name: X
credentials:
  kind: api_key
  api_key: k
template: pointclickcare
source_fields: [monthly_rate]
suggest_threshold: 0.9
`))
	require.NoError(t, err)

	c := newDriveController(t)
	require.NoError(t, file.Drive(context.Background(), c))
	assert.Equal(t, "monthly_rate", c.Draft().FieldMappings["monthly_rate"])
	assert.Equal(t, "patientId", c.Draft().FieldMappings["resident_id"])
}
