package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringArray_Scan(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  StringArray
	}{
		{name: "nil", input: nil, want: nil},
		{name: "json bytes", input: []byte(`["user","admin"]`), want: StringArray{"user", "admin"}},
		{name: "json string", input: `["user"]`, want: StringArray{"user"}},
		{name: "empty", input: "", want: StringArray{}},
		{name: "legacy comma list", input: "user,moderator", want: StringArray{"user", "moderator"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a StringArray
			require.NoError(t, a.Scan(tt.input))
			assert.Equal(t, tt.want, a)
		})
	}

	var a StringArray
	assert.Error(t, a.Scan(42))
}

func TestStringArray_ValueAndContains(t *testing.T) {
	v, err := StringArray{"user"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["user"]`, v)

	v, err = StringArray(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.True(t, StringArray{"user", "admin"}.Contains("admin"))
	assert.False(t, StringArray{"user"}.Contains("admin"))
}
