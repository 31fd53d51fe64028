package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	integration "github.com/goliatone/go-integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleYAML = `
version: 1
fields:
  - id: resident_id
    display_name: Resident ID
    required: true
    data_type: text
  - id: move_in_date
    display_name: Move-In Date
    required: true
    data_type: date
  - id: monthly_rate
    display_name: Monthly Rate
    data_type: number
templates:
  - id: acme
    display_name: Acme PMS
    connector: acme
    mappings:
      resident_id: ResidentKey
      move_in_date: MoveIn
connectors:
  - id: acme
    display_name: Acme
    category: billing
source_fields: [ResidentKey, MoveIn, Rate]
`

func TestParseYAML(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Len(t, c.Fields(), 3)
	assert.Len(t, c.RequiredFields(), 2)

	tpl, ok := c.Template("acme")
	require.True(t, ok)
	assert.Equal(t, "MoveIn", tpl.Mappings["move_in_date"])

	conn, ok := c.Connector("acme")
	require.True(t, ok)
	assert.Equal(t, integration.SystemTypeBilling, conn.Category)
}

func TestParseJSON(t *testing.T) {
	doc := `{"fields":[{"id":"a","display_name":"A","required":true}],"templates":[{"id":"t","mappings":{"a":"src"}}]}`

	c, err := Parse([]byte(doc))
	require.NoError(t, err)

	tpl, ok := c.Template("t")
	require.True(t, ok)
	assert.Equal(t, "t", tpl.DisplayName)
}

func TestParseRejectsEmptyAndMalformed(t *testing.T) {
	_, err := Parse([]byte("version: 1\n"))
	assert.True(t, integration.HasCode(err, integration.ErrCodeValidation))

	_, err = Parse([]byte("fields: ["))
	assert.True(t, integration.HasCode(err, integration.ErrCodeValidation))
}

func TestExportRoundTripsDefault(t *testing.T) {
	data, err := yaml.Marshal(Export(Default()))
	require.NoError(t, err)

	c, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, Default().Fields(), c.Fields())
}

func TestReloaderKeepsPreviousCatalogOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	r, err := NewReloader(path, WithReloaderLogger(integration.NopLogger{}))
	require.NoError(t, err)
	first := r.Catalog()
	require.NotNil(t, first)
	assert.EqualValues(t, 1, r.Loads())

	require.NoError(t, os.WriteFile(path, []byte("fields: ["), 0o600))
	assert.Error(t, r.Reload(context.Background()))
	assert.Same(t, first, r.Catalog())

	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))
	require.NoError(t, r.Reload(context.Background()))
	assert.NotSame(t, first, r.Catalog())
	assert.EqualValues(t, 2, r.Loads())
}

func TestNewReloaderFailsOnMissingFile(t *testing.T) {
	_, err := NewReloader(filepath.Join(t.TempDir(), "missing.yaml"), WithReloaderLogger(integration.NopLogger{}))
	assert.Error(t, err)
}
