package registry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryJSONRoundTrip(t *testing.T) {
	original, err := FromNetwork(nestedNetwork())
	require.NoError(t, err)

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	decoded := NewRegistry()
	require.NoError(t, json.Unmarshal(raw, decoded))
	require.Equal(t, original, decoded)
}

func TestRegistryJSONCanonical(t *testing.T) {
	reg, err := FromNetwork(simpleNetwork())
	require.NoError(t, err)

	first, err := json.Marshal(reg)
	require.NoError(t, err)
	second, err := json.Marshal(reg)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestRegistryJSONRejectsUnknownInputKind(t *testing.T) {
	var env registryInputEnvelope
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"telepathy"}`), &env))
	_, err := env.decode()
	require.ErrorContains(t, err, "telepathy")
}

func TestRegistryJSONRejectsBadMapKey(t *testing.T) {
	decoded := NewRegistry()
	err := json.Unmarshal([]byte(`{"nodeInstances":{"not-a-number":{"implementation":{"kind":"proto","declaration":1},"attributes":{},"network":0}},"networks":{},"nodeDeclarations":{},"exportedNodes":[]}`), decoded)
	require.Error(t, err)
}

func TestMarshalInputRoundTrip(t *testing.T) {
	inputs := []NodeInput{
		NodeInputRef{NodeID: 7, OutputIndex: 2},
		ValueInput{Raw: []byte(`{"kind":"u32","value":5}`), Exposed: true},
		ScopeInput{Key: "editor-api"},
		ImportInput{ImportIndex: 3},
		ReflectionInput{},
	}
	for _, in := range inputs {
		raw, err := MarshalInput(in)
		require.NoError(t, err)
		decoded, err := UnmarshalInput(raw)
		require.NoError(t, err)
		require.Equal(t, in, decoded)
	}
}
