package brand_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/seomerge/internal/brand"
)

func TestClassifier(t *testing.T) {
	c := brand.New([]string{" nike ", "", "Air Max", "c++", "a.b"})
	require.NotNil(t, c)
	assert.Equal(t, []string{"nike", "Air Max", "c++", "a.b"}, c.Terms())

	tests := []struct {
		keyword string
		want    bool
	}{
		{keyword: "Nike Shoes", want: true},
		{keyword: "nikeshoes", want: false},
		{keyword: "buy nike", want: true},
		{keyword: "NIKE", want: true},
		{keyword: "nike-air", want: true},
		{keyword: "new air max 90", want: true},
		{keyword: "airmax", want: false},
		{keyword: "adidas shoes", want: false},
		{keyword: "axb store", want: false},
		{keyword: "a.b store", want: true},
		{keyword: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Branded(tt.keyword))
		})
	}
}

func TestClassifierSpecialCharactersDoNotBreakPattern(t *testing.T) {
	c := brand.New([]string{"(acme", "acme["})
	require.NotNil(t, c)
	assert.False(t, c.Branded("acme shoes"))
}

func TestNewWithoutTerms(t *testing.T) {
	assert.Nil(t, brand.New(nil))
	assert.Nil(t, brand.New([]string{" ", ""}))
}

func TestParseTerms(t *testing.T) {
	assert.Equal(t, []string{"nike", "air max"}, brand.ParseTerms("nike, air max, ,"))
	assert.Empty(t, brand.ParseTerms(""))
}
