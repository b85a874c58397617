package route

type interval struct {
	lo, hi Addr
}

// split calls leaf, in ascending address order, for each interval left over
// after halving [lo, hi] around e until no interval contains e. Every level
// produces at most one interval that still contains e, so the work stack
// never holds more than 33 entries.
func split(lo, hi, e Addr, leaf func(lo, hi Addr)) {
	stack := make([]interval, 0, 34)
	stack = append(stack, interval{lo, hi})

	for len(stack) > 0 {
		iv := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if e < iv.lo || e > iv.hi {
			leaf(iv.lo, iv.hi)
			continue
		}

		if iv.lo == iv.hi {
			continue
		}

		mid := iv.lo + (iv.hi-iv.lo)/2

		// Upper half goes on first so the lower half is popped next.
		stack = append(stack, interval{mid + 1, iv.hi}, interval{iv.lo, mid})
	}
}
