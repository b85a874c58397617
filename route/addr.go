package route

import (
	"encoding/binary"
	"fmt"
	"math"
	"net/netip"

	"go4.org/netipx"
)

// Addr is an IPv4 address in host order.
type Addr uint32

const maxAddr Addr = math.MaxUint32

// ParseAddr accepts a dotted-quad IPv4 address, or an IPv4-mapped IPv6
// address. Anything else, including hostnames, IPv6 and zoned addresses,
// is rejected.
func ParseAddr(s string) (Addr, bool) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return 0, false
	}

	addr = addr.Unmap()
	if !addr.Is4() {
		return 0, false
	}

	return AddrFrom(addr), true
}

func AddrFrom(addr netip.Addr) Addr {
	b := addr.As4()
	return Addr(binary.BigEndian.Uint32(b[:]))
}

func (a Addr) Netip() netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(a))
	return netip.AddrFrom4(b)
}

func (a Addr) String() string {
	return a.Netip().String()
}

// Block is a CIDR block. Base is always aligned to the block size.
type Block struct {
	Base Addr
	Bits int
}

// BlockFromPrefix converts an IPv4 prefix. The prefix is masked, so
// 10.1.2.3/8 becomes 10.0.0.0/8.
func BlockFromPrefix(p netip.Prefix) (Block, bool) {
	if !p.IsValid() || !p.Addr().Is4() {
		return Block{}, false
	}

	p = p.Masked()

	return Block{Base: AddrFrom(p.Addr()), Bits: p.Bits()}, true
}

// Size is the number of addresses in the block, 2^(32-Bits).
func (b Block) Size() uint64 {
	return uint64(1) << (32 - b.Bits)
}

func (b Block) Last() Addr {
	return b.Base + Addr(b.Size()-1)
}

func (b Block) Contains(a Addr) bool {
	return a >= b.Base && a <= b.Last()
}

func (b Block) Aligned() bool {
	return uint64(b.Base)%b.Size() == 0
}

func (b Block) Prefix() netip.Prefix {
	return netip.PrefixFrom(b.Base.Netip(), b.Bits)
}

func (b Block) Range() netipx.IPRange {
	return netipx.RangeOfPrefix(b.Prefix())
}

func (b Block) String() string {
	return fmt.Sprintf("%s/%d", b.Base, b.Bits)
}

// Set is an ordered list of blocks, as handed to the VPN interface.
type Set []Block

func (s Set) Contains(a Addr) bool {
	for _, b := range s {
		if b.Contains(a) {
			return true
		}
	}

	return false
}

func (s Set) Prefixes() []netip.Prefix {
	prefixes := make([]netip.Prefix, len(s))
	for i, b := range s {
		prefixes[i] = b.Prefix()
	}

	return prefixes
}

// IPSet returns the union of the blocks as a netipx.IPSet.
func (s Set) IPSet() (*netipx.IPSet, error) {
	var builder netipx.IPSetBuilder
	for _, b := range s {
		builder.AddPrefix(b.Prefix())
	}

	return builder.IPSet()
}
