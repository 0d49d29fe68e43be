package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		text string
		want []string
	}{
		{"Hello, World!", []string{"hello", "world"}},
		{"Go go GO", []string{"go"}},
		{"a b c de", []string{"de"}}, // single characters dropped
		{"redis-backed inverted index", []string{"redis", "backed", "inverted", "index"}},
		{"", []string{}},
		{"!!! ???", []string{}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tokenize(tc.text), "text=%q", tc.text)
	}
}

func TestNewFallsBackToSQL(t *testing.T) {
	// The redis backend needs a live client; without one the constructor
	// degrades to the SQL engine instead of returning a broken index.
	e := New("redis", nil, nil)
	_, ok := e.(*sqlEngine)
	assert.True(t, ok)

	e = New("sql", nil, nil)
	_, ok = e.(*sqlEngine)
	assert.True(t, ok)
}
