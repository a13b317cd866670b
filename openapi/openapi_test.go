package openapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_IncludesCoreRoutes(t *testing.T) {
	doc := New("https://mcjars.app", "1.0.0")

	require.Equal(t, "3.0.3", doc.OpenAPI)
	require.Contains(t, doc.Paths, "/api/types")
	require.Contains(t, doc.Paths, "/api/build/{identifier}")
	require.Contains(t, doc.Paths["/api/{type}/versions"].Get, "get")
}

func TestDocument_MarshalsToValidJSON(t *testing.T) {
	doc := New("", "1.0.0")

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "3.0.3", decoded["openapi"])

	paths, ok := decoded["paths"].(map[string]any)
	require.True(t, ok)
	typesPath, ok := paths["/api/types"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, typesPath, "get")
}
