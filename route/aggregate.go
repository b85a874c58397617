package route

import "math/bits"

// Aggregate returns the smallest ordered list of aligned blocks whose union
// is exactly [lo, hi]. It returns nil if lo > hi.
func Aggregate(lo, hi Addr) Set {
	return appendAggregate(nil, lo, hi)
}

func appendAggregate(dst Set, lo, hi Addr) Set {
	end := uint64(hi)

	// s is 64 bits wide so that stepping past 255.255.255.255 ends the loop
	// instead of wrapping back to zero.
	for s := uint64(lo); s <= end; {
		k := 32
		if s != 0 {
			k = bits.TrailingZeros64(s)
		}

		for s+(1<<k)-1 > end {
			k--
		}

		dst = append(dst, Block{Base: Addr(s), Bits: 32 - k})
		s += 1 << k
	}

	return dst
}
