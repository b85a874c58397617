// Package route computes the routes a tunnel installs so that everything
// except its own upstream endpoint goes through it.
package route

// Fallback is used when the address to exclude can't be parsed. It routes
// the whole IPv4 space through the tunnel as two /1 halves.
func Fallback() Set {
	return Set{
		{Base: 0x00000000, Bits: 1},
		{Base: 0x80000000, Bits: 1},
	}
}

// Exclude returns the blocks covering all of IPv4 except addr. If addr is
// not a valid IPv4 address it returns Fallback(). It never fails.
//
// Only syntax is checked. 0.0.0.0, 255.255.255.255 and multicast addresses
// (224.0.0.0/4) are excluded like any other address, not treated as
// invalid.
func Exclude(addr string) Set {
	a, ok := ParseAddr(addr)
	if !ok {
		return Fallback()
	}

	return ExcludeAddr(a)
}

// ExcludeAddr returns the blocks, in ascending order, covering all of IPv4
// except e. The result always has 32 blocks, one per prefix length.
func ExcludeAddr(e Addr) Set {
	set := make(Set, 0, 32)

	split(0, maxAddr, e, func(lo, hi Addr) {
		set = appendAggregate(set, lo, hi)
	})

	return set
}
