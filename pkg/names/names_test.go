package names

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_KnownValues(t *testing.T) {
	tests := []struct {
		id   string
		hash int32
		want string
	}{
		{id: "alice@campus.edu", hash: 1471995879, want: "Swift Tiger"},
		{id: "bob@campus.edu", hash: -521808494, want: "Wise Swan"},
		{id: "", hash: 0, want: "Amber Otter"},
		{id: "a", hash: 97, want: "Silent Otter"},
		{id: "zoë@campus.edu", hash: 734149713, want: "Kind Seal"},
		{id: "🦊@campus.edu", hash: -538175013, want: "Snowy Coyote"},
		{id: "MIN", hash: 76338, want: "Cheerful Pelican"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.hash, Hash(tt.id))
			assert.Equal(t, tt.want, Generate(tt.id))
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("user%d@campus.edu", i)
		assert.Equal(t, Generate(id), Generate(id))
	}
}

func TestGenerate_SpreadOverSampleCorpus(t *testing.T) {
	seen := make(map[string]string, 100)
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("student%03d@campus.edu", i)
		name := Generate(id)
		if prev, dup := seen[name]; dup {
			t.Fatalf("%q and %q both map to %q", prev, id, name)
		}
		seen[name] = id
	}
	assert.Len(t, seen, 100)
}

func TestAbs_MinInt32(t *testing.T) {
	assert.Equal(t, int64(2147483648), abs(math.MinInt32))
	assert.Equal(t, int64(5), abs(-5))
}

func TestWordLists(t *testing.T) {
	require.Len(t, adjectives, 64)
	require.Len(t, animals, 67)
	assert.Equal(t, "Amber", adjectives[0])
	assert.Equal(t, "Stork", animals[len(animals)-1])
}
