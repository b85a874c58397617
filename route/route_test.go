package route

import (
	"math/rand"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go4.org/netipx"
)

func mustAddr(t *testing.T, s string) Addr {
	t.Helper()

	a, ok := ParseAddr(s)
	require.True(t, ok, "ParseAddr(%q)", s)

	return a
}

func blockStrings(s Set) []string {
	out := make([]string, len(s))
	for i, b := range s {
		out[i] = b.String()
	}
	return out
}

func TestParseAddr(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "0.0.0.0", want: "0.0.0.0", ok: true},
		{in: "203.0.113.7", want: "203.0.113.7", ok: true},
		{in: "255.255.255.255", want: "255.255.255.255", ok: true},
		{in: "::ffff:192.0.2.1", want: "192.0.2.1", ok: true},
		{in: "not-an-ip"},
		{in: ""},
		{in: "256.1.1.1"},
		{in: "1.2.3"},
		{in: "01.2.3.4"},
		{in: "2001:db8::1"},
		{in: "fe80::1%eth0"},
		{in: "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			a, ok := ParseAddr(tt.in)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, a.String())
			}
		})
	}
}

func TestBlockFromPrefix(t *testing.T) {
	b, ok := BlockFromPrefix(netip.MustParsePrefix("10.1.2.3/8"))
	require.True(t, ok)
	assert.Equal(t, Block{Base: 0x0a000000, Bits: 8}, b)

	_, ok = BlockFromPrefix(netip.MustParsePrefix("2001:db8::/32"))
	assert.False(t, ok)

	_, ok = BlockFromPrefix(netip.Prefix{})
	assert.False(t, ok)
}

func TestBlockBounds(t *testing.T) {
	all := Block{Base: 0, Bits: 0}
	assert.Equal(t, uint64(1)<<32, all.Size())
	assert.Equal(t, maxAddr, all.Last())
	assert.True(t, all.Contains(maxAddr))

	b := Block{Base: mustAddr(t, "192.168.0.0"), Bits: 16}
	assert.Equal(t, "192.168.255.255", b.Last().String())
	assert.True(t, b.Aligned())
	assert.Equal(t, netipx.IPRangeFrom(netip.MustParseAddr("192.168.0.0"), netip.MustParseAddr("192.168.255.255")), b.Range())

	assert.False(t, Block{Base: mustAddr(t, "192.168.1.0"), Bits: 16}.Aligned())
}

func TestSplit(t *testing.T) {
	var leaves []interval
	split(0, 7, 5, func(lo, hi Addr) {
		leaves = append(leaves, interval{lo, hi})
	})

	assert.Equal(t, []interval{{0, 3}, {4, 4}, {6, 7}}, leaves)
}

func TestSplitOutsideRange(t *testing.T) {
	var leaves []interval
	split(10, 20, 3, func(lo, hi Addr) {
		leaves = append(leaves, interval{lo, hi})
	})

	assert.Equal(t, []interval{{10, 20}}, leaves)
}

func TestSplitSingleExcluded(t *testing.T) {
	called := false
	split(9, 9, 9, func(lo, hi Addr) {
		called = true
	})

	assert.False(t, called)
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi string
		want   []string
	}{
		{
			name: "everything",
			lo:   "0.0.0.0",
			hi:   "255.255.255.255",
			want: []string{"0.0.0.0/0"},
		},
		{
			name: "single /24",
			lo:   "10.0.0.0",
			hi:   "10.0.0.255",
			want: []string{"10.0.0.0/24"},
		},
		{
			name: "unaligned",
			lo:   "0.0.0.1",
			hi:   "0.0.0.6",
			want: []string{"0.0.0.1/32", "0.0.0.2/31", "0.0.0.4/31", "0.0.0.6/32"},
		},
		{
			name: "top address",
			lo:   "255.255.255.255",
			hi:   "255.255.255.255",
			want: []string{"255.255.255.255/32"},
		},
		{
			name: "upper half",
			lo:   "128.0.0.0",
			hi:   "255.255.255.255",
			want: []string{"128.0.0.0/1"},
		},
		{
			name: "ends at top",
			lo:   "255.255.255.253",
			hi:   "255.255.255.255",
			want: []string{"255.255.255.253/32", "255.255.255.254/31"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(mustAddr(t, tt.lo), mustAddr(t, tt.hi))
			assert.Equal(t, tt.want, blockStrings(got))
		})
	}
}

func TestAggregateEmpty(t *testing.T) {
	assert.Nil(t, Aggregate(10, 9))
}

func TestAggregateMatchesNetipx(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		lo, hi := Addr(r.Uint32()), Addr(r.Uint32())
		if lo > hi {
			lo, hi = hi, lo
		}

		want := netipx.IPRangeFrom(lo.Netip(), hi.Netip()).Prefixes()
		got := Aggregate(lo, hi).Prefixes()

		require.Equal(t, want, got, "range %s-%s", lo, hi)
	}
}

func TestExcludeZero(t *testing.T) {
	set := Exclude("0.0.0.0")
	require.Len(t, set, 32)

	for k := 0; k < 32; k++ {
		assert.Equal(t, Block{Base: Addr(1) << k, Bits: 32 - k}, set[k])
	}

	assert.Equal(t, "0.0.0.1/32", set[0].String())
	assert.Equal(t, "0.128.0.0/9", set[23].String())
	assert.Equal(t, "128.0.0.0/1", set[31].String())
	assert.False(t, set.Contains(0))
}

func TestExcludeTop(t *testing.T) {
	set := Exclude("255.255.255.255")
	require.Len(t, set, 32)

	assert.Equal(t, "0.0.0.0/1", set[0].String())
	assert.Equal(t, "255.255.255.254/32", set[31].String())
	assert.False(t, set.Contains(maxAddr))
}

func TestExcludeMalformed(t *testing.T) {
	for _, s := range []string{"not-an-ip", "", "2001:db8::1", "1.2.3.4.5"} {
		set := Exclude(s)
		assert.Equal(t, []string{"0.0.0.0/1", "128.0.0.0/1"}, blockStrings(set), "input %q", s)
	}
}

func TestExcludeMulticast(t *testing.T) {
	e, ok := ParseAddr("224.0.0.251")
	require.True(t, ok)

	set := Exclude("224.0.0.251")
	require.Len(t, set, 32)
	assert.NotEqual(t, Fallback(), set)
	checkExcluded(t, e, set)
}

func TestExcludeDeterministic(t *testing.T) {
	assert.Equal(t, Exclude("203.0.113.7"), Exclude("203.0.113.7"))
}

// checkExcluded verifies every property the tunnel relies on: blocks are
// aligned, ascending and disjoint, none contains e, no two neighbours could
// be merged, and together they cover everything but e.
func checkExcluded(t *testing.T, e Addr, set Set) {
	t.Helper()

	var total uint64
	for i, b := range set {
		require.True(t, b.Aligned(), "%s not aligned", b)
		require.False(t, b.Contains(e), "%s contains %s", b, e)
		total += b.Size()

		if i == 0 {
			continue
		}

		prev := set[i-1]
		require.True(t, prev.Last() < b.Base, "%s overlaps %s", prev, b)

		if prev.Bits == b.Bits && uint64(prev.Last())+1 == uint64(b.Base) {
			merged := Block{Base: prev.Base, Bits: prev.Bits - 1}
			require.False(t, merged.Aligned(), "%s and %s could be merged", prev, b)
		}
	}

	require.Equal(t, uint64(1)<<32-1, total)

	var builder netipx.IPSetBuilder
	builder.AddPrefix(netip.MustParsePrefix("0.0.0.0/0"))
	builder.Remove(e.Netip())
	want, err := builder.IPSet()
	require.NoError(t, err)

	got, err := set.IPSet()
	require.NoError(t, err)

	require.True(t, want.Equal(got), "coverage mismatch excluding %s", e)
	require.Equal(t, want.Prefixes(), set.Prefixes())
}

func TestExcludeRandom(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	addrs := []Addr{0, maxAddr, 1, maxAddr - 1, 0x80000000, 0x7fffffff}
	for len(addrs) < 1000 {
		addrs = append(addrs, Addr(r.Uint32()))
	}

	for _, e := range addrs {
		checkExcluded(t, e, ExcludeAddr(e))
	}
}
