package odata

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCollectionAddr(t *testing.T) {
	tests := []struct {
		input    string
		expected *CollectionAddr
	}{
		{input: "coll", expected: &CollectionAddr{Name: "coll"}},
		{input: "Coll123", expected: &CollectionAddr{Name: "Coll123"}},
		{input: "Coll.x_12-3", expected: &CollectionAddr{Name: "Coll.x_12-3"}},
		{input: "Coll(123)", expected: &CollectionAddr{Name: "Coll", Key: "123"}},
		// A quoted key keeps its quotes.
		{input: "Coll('key')", expected: &CollectionAddr{Name: "Coll", Key: "'key'"}},
		{input: "tickers.spy(42)", expected: &CollectionAddr{Name: "tickers.spy", Key: "42"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			addr, ok := DecodeCollectionAddr(tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.expected, addr)
		})
	}
}

func TestDecodeCollectionAddrRejects(t *testing.T) {
	inputs := []string{
		"",
		"coll(",
		"coll()",
		"coll(1",
		"coll(1))",
		"(123)",
		"coll extra",
		"coll/sub",
		"coll✓",
	}

	for _, input := range inputs {
		t.Run(fmt.Sprintf("%q", input), func(t *testing.T) {
			_, ok := DecodeCollectionAddr(input)
			assert.False(t, ok)
		})
	}
}

func TestCollectionAddrRoundTrip(t *testing.T) {
	pairs := []CollectionAddr{
		{Name: "tickers.spy"},
		{Name: "tickers.spy", Key: "17"},
		{Name: "a-b_c.d", Key: "'x y'"},
	}

	for _, want := range pairs {
		got, ok := DecodeCollectionAddr(want.String())
		require.True(t, ok, want.String())
		assert.Equal(t, &want, got)
	}
}
