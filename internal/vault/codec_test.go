package vault

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navlock/navlock/internal/models"
)

func sampleRule() models.Rule {
	return models.Rule{
		ID:         "r1",
		URLPattern: "*.example.com",
		Action:     models.ActionLock,
		Enabled:    true,
		ProfileIDs: []string{"p1", "p2"},
		Lock: &models.LockOptions{
			Mode:                 models.LockModeTimed,
			TimedDurationMinutes: 10,
		},
		CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestJSONCodec_RoundTrip(t *testing.T) {
	codec := JSONCodec{}
	in := sampleRule()

	data, err := codec.Marshal(in)
	require.NoError(t, err)

	var out models.Rule
	require.NoError(t, codec.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestCompactCodec_RoundTrip(t *testing.T) {
	codec := CompactCodec{}
	in := sampleRule()

	data, err := codec.Marshal(in)
	require.NoError(t, err)

	var out models.Rule
	require.NoError(t, codec.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestCompactCodec_ObfuscatesFieldNames(t *testing.T) {
	codec := CompactCodec{}

	data, err := codec.Marshal(sampleRule())
	require.NoError(t, err)

	var tree map[string]any
	require.NoError(t, json.Unmarshal(data, &tree))

	assert.NotContains(t, tree, "urlPattern")
	assert.NotContains(t, tree, "lockOptions")
	assert.Contains(t, tree, "f")
	assert.Contains(t, tree, "k")

	nested, ok := tree["k"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, nested, "m", "nested objects must be rewritten too")
}
