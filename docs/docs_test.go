package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestSwaggerRegistered(t *testing.T) {
	doc, err := swag.ReadDoc()
	require.NoError(t, err)

	var parsed struct {
		Swagger string                     `json:"swagger"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))
	assert.Equal(t, "2.0", parsed.Swagger)
	for _, p := range []string{"/identity/register", "/identity/activate", "/identity/login", "/licenses/{token}/verify", "/outlets/{id}/license.pdf", "/outlets/{id}/renew", "/chains/{id}/renew"} {
		assert.Contains(t, parsed.Paths, p)
	}
}
