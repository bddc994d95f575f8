package humastar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"attribute": "pop", "order": ["b", 3, "a"], "open": true}`))
	require.NoError(t, err)

	assert.Equal(t, "pop", s.String("attribute"))
	assert.Equal(t, []string{"b", "a"}, s.Strings("order"))
	assert.True(t, s.Has("open"))
	assert.False(t, s.Has("missing"))
	assert.Equal(t, "", s.String("order"))
	assert.Nil(t, s.Strings("attribute"))
}

func TestParseSignalsEmptyBody(t *testing.T) {
	s, err := ParseSignals(nil)
	require.NoError(t, err)
	assert.Empty(t, s)

	_, err = ParseSignals([]byte(`{`))
	assert.Error(t, err)
}

func TestSignalsInputMustParse(t *testing.T) {
	in := &SignalsInput{RawBody: []byte(`nope`)}
	_, err := in.MustParse()
	assert.ErrorContains(t, err, "Invalid request data")
}

func TestActionsFor(t *testing.T) {
	actions := ActionsFor("roads-1", []ActionDef{
		{Rel: "delete", Pattern: "/api/v1/layers/%s", Method: "DELETE", Title: "Remove layer"},
		{Rel: "self", Pattern: "/api/v1/layers/%s"},
	})

	require.Len(t, actions, 2)
	assert.Equal(t, `</api/v1/layers/roads-1>; rel="delete"; method="DELETE"; title="Remove layer"`, actions[0].LinkHeader())
	assert.Equal(t, `</api/v1/layers/roads-1>; rel="self"`, actions[1].LinkHeader())
}
