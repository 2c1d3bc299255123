package roomkey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirectIsSymmetric(t *testing.T) {
	require.Equal(t, "dm:a1:b2", Direct("a1", "b2"))
	require.Equal(t, "dm:a1:b2", Direct("b2", "a1"))
	require.Equal(t, "dm:x:x", Direct("x", "x"))
}

func TestDirectOrdersRawIds(t *testing.T) {
	// 原始顺序 "a0" < "a:b"，转义后的顺序恰好相反
	require.Equal(t, "dm:a0:a%3Ab", Direct("a0", "a:b"))
	require.Equal(t, "dm:a0:a%3Ab", Direct("a:b", "a0"))

	a, b, ok := Members(Direct("a:b", "a0"))
	require.True(t, ok)
	require.Equal(t, "a0", a)
	require.Equal(t, "a:b", b)
}

func TestForFallsBackToGlobal(t *testing.T) {
	require.Equal(t, Global, For("a1", ""))
	require.Equal(t, "dm:a1:b2", For("b2", "a1"))
	require.Equal(t, "user:a1", User("a1"))
}

func TestDirectIsInjective(t *testing.T) {
	// 不转义时 ("a:b","c") 与 ("a","b:c") 都会得到 dm:a:b:c
	require.NotEqual(t, Direct("a:b", "c"), Direct("a", "b:c"))
	require.NotEqual(t, Direct("a%3Ab", "c"), Direct("a:b", "c"))

	ids := []string{"", "a", "b", "a:b", "b:c", "c", "%", "%3A", ":", "a%b"}
	seen := map[string][2]string{}
	for _, x := range ids {
		for _, y := range ids {
			lo, hi := x, y
			if hi < lo {
				lo, hi = hi, lo
			}
			key := Direct(x, y)
			if prev, ok := seen[key]; ok {
				require.Equal(t, prev, [2]string{lo, hi}, "collision on %s", key)
			}
			seen[key] = [2]string{lo, hi}
		}
	}
}

func TestMembersRoundTrip(t *testing.T) {
	a, b, ok := Members(Direct("b:2", "a%1"))
	require.True(t, ok)
	require.ElementsMatch(t, []string{"a%1", "b:2"}, []string{a, b})

	_, _, ok = Members(Global)
	require.False(t, ok)
	_, _, ok = Members("dm:a:b:c")
	require.False(t, ok)
}
