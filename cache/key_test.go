package cache

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalSortsKeysAndKeepsNumbers(t *testing.T) {
	got, err := Canonical(map[string]any{"b": 1, "a": "x<y>", "c": []int{3, 1}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x<y>","b":1,"c":[3,1]}`, got)
}

func TestCanonicalEmptyValues(t *testing.T) {
	for _, v := range []any{nil, "", map[string]any{}, Fields{}} {
		got, err := Canonical(v)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestCanonicalRejectsUnencodable(t *testing.T) {
	_, err := Canonical(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestDecodeFieldsRoundTrip(t *testing.T) {
	raw, err := Canonical(Fields{"topic": "solar", "length": 300})
	require.NoError(t, err)

	got := decodeFields(raw)
	want := Fields{"topic": "solar", "length": "300"}
	normalized := Fields{}
	for k, v := range got {
		normalized[k] = v
		if n, ok := v.(interface{ String() string }); ok {
			normalized[k] = n.String()
		}
	}
	if diff := cmp.Diff(want, normalized); diff != "" {
		t.Errorf("decoded fields mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, decodeFields("not json"))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 1.0, Similarity("same", "same"))
	assert.Equal(t, 0.0, Similarity("abc", "xyz"))
	assert.InDelta(t, 22.0/23.0, Similarity("Tesla Motors", "Tesla Motor"), 1e-9)
	assert.Less(t, Similarity("Tesla Motors", "Banana Farming"), DefaultThreshold)
	assert.InDelta(t, 0.8, Similarity("abcde", "abcdx"), 1e-9)
}

func TestSimilarityIsRuneBased(t *testing.T) {
	// Each accented character counts once, not once per byte.
	assert.InDelta(t, 0.8, Similarity("héllo", "héllx"), 1e-9)
}
