package cards

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlaceholderNumber(t *testing.T) {
	t.Parallel()

	for range 200 {
		n := PlaceholderNumber()
		require.Len(t, n, NumberLength)
		require.True(t, strings.HasPrefix(n, TestBIN), n)
		require.True(t, LuhnValid(n), n)
		require.True(t, IsPlaceholder(n), n)
	}
}

func TestLuhnValid(t *testing.T) {
	t.Parallel()

	require.True(t, LuhnValid("79927398713"))
	require.True(t, LuhnValid("4242424242424242"))
	require.False(t, LuhnValid("79927398710"))
	require.False(t, LuhnValid("4242-4242"))
	require.False(t, LuhnValid("0"))
}

func TestIsPlaceholder(t *testing.T) {
	t.Parallel()

	require.False(t, IsPlaceholder("4242424242424242"))
	require.True(t, IsPlaceholder(Group(PlaceholderNumber())))
}

func TestGroupAndMask(t *testing.T) {
	t.Parallel()

	require.Equal(t, "9990 0012 3456 7890", Group("9990001234567890"))
	require.Equal(t, "**** **** **** 7890", Mask("9990 0012 3456 7890"))
	require.Equal(t, "123", Mask("123"))
}
