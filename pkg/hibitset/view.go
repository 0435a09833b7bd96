package hibitset

// View is the hierarchical view every set operand exposes: the level-0
// summary mask, a level-1 mask per level-0 position, a data block per
// (level-0, level-1) position, and the trusted-hierarchy flag.
//
// [Set] implements View, as do the virtual sets produced by the algebra.
// External types may implement it too, which makes them usable as operands
// of any operation and iterable through the caching iterators.
//
// Implementations must satisfy:
//
//   - Level1(i0) is zero whenever Level0 bit i0 is clear, and Data(i0, i1)
//     is zero whenever Level1(i0) bit i1 is clear.
//   - If Trusted reports true, the converse holds as well: a set mask bit
//     guarantees a non-zero sub-tree. Untrusted views may expose mask bits
//     over sub-trees that are ultimately empty (intersections do this), and
//     consumers of untrusted views must be prepared to observe empty data
//     blocks.
//
// Positions passed in are always in range for the configured widths.
type View[L0 Block[L0], L1 Block[L1], D Block[D]] interface {
	// Level0 returns the level-0 summary mask.
	Level0() L0
	// Level1 returns the level-1 mask at level-0 position i0.
	Level1(i0 uint) L1
	// Data returns the data block at position (i0, i1).
	Data(i0, i1 uint) D
	// Trusted reports whether the hierarchy masks are exact.
	Trusted() bool
	// Operands is the number of concrete sets backing this view.
	// Iterator caches are sized from it.
	Operands() int
}

// Uniform-width view aliases, matching [Set64], [Set128] and [Set256].
type (
	// View64 is the view of a 64-bit-per-level configuration.
	View64 = View[Block64, Block64, Block64]
	// View128 is the view of a 128-bit-per-level configuration.
	View128 = View[Block128, Block128, Block128]
	// View256 is the view of a 256-bit-per-level configuration.
	View256 = View[Block256, Block256, Block256]
)

// level1Resolver is the optional fast path used by caching iterators: it
// resolves the level-0 indirection for position i0 once and returns a
// fetch over the data blocks below it. Views that do not implement it are
// served through View.Data on every step.
type level1Resolver[D Block[D]] interface {
	resolveLevel1(i0 uint) func(i1 uint) D
}

// DataBlock is a leaf bitblock tagged with the global index of its bit 0.
type DataBlock[D Block[D]] struct {
	Start uint
	Bits  D
}

// Indices calls yield for each set bit's global index, ascending.
// Returns false if yield broke the loop.
func (b DataBlock[D]) Indices(yield func(uint) bool) bool {
	d := b.Bits
	w := d.Bits()

	for {
		t := d.TrailingZeros()
		if t == w {
			return true
		}

		d = d.WithoutBit(t)

		if !yield(b.Start + t) {
			return false
		}
	}
}

// Equal reports whether two views contain the same indices.
//
// When both views advertise a trusted hierarchy the comparison walks the
// masks and data blocks structurally. Otherwise it falls back to comparing
// the index sequences, because an untrusted mask bit does not guarantee a
// non-empty data block. The result is symmetric and agrees with iteration
// equality for every operand kind.
func Equal[L0 Block[L0], L1 Block[L1], D Block[D]](a, b View[L0, L1, D]) bool {
	if a.Trusted() && b.Trusted() {
		return structuralEqual(a, b)
	}

	return iterEqual(a, b)
}

func structuralEqual[L0 Block[L0], L1 Block[L1], D Block[D]](a, b View[L0, L1, D]) bool {
	m0 := a.Level0()
	if m0 != b.Level0() {
		return false
	}

	w0 := m0.Bits()

	for {
		t := m0.TrailingZeros()
		if t == w0 {
			return true
		}

		m0 = m0.WithoutBit(t)

		m1 := a.Level1(t)
		if m1 != b.Level1(t) {
			return false
		}

		w1 := m1.Bits()

		for {
			u := m1.TrailingZeros()
			if u == w1 {
				break
			}

			m1 = m1.WithoutBit(u)

			if a.Data(t, u) != b.Data(t, u) {
				return false
			}
		}
	}
}

func iterEqual[L0 Block[L0], L1 Block[L1], D Block[D]](a, b View[L0, L1, D]) bool {
	ia := NewIndexIter(a, NoCache)
	ib := NewIndexIter(b, NoCache)

	for {
		xa, oka := ia.Next()
		xb, okb := ib.Next()

		if oka != okb {
			return false
		}

		if !oka {
			return true
		}

		if xa != xb {
			return false
		}
	}
}

// Count returns the number of indices a view contains. It visits every
// populated data block, so it is O(#data-blocks), not O(1).
func Count[L0 Block[L0], L1 Block[L1], D Block[D]](v View[L0, L1, D]) uint {
	it := NewBlockIter(v, NoCache)

	var n uint

	for {
		blk, ok := it.Next()
		if !ok {
			return n
		}

		n += blk.Bits.OnesCount()
	}
}

// IsEmptyView reports whether a view contains no indices. For trusted
// views this inspects only the level-0 mask; untrusted views require a
// walk to the first non-empty data block.
func IsEmptyView[L0 Block[L0], L1 Block[L1], D Block[D]](v View[L0, L1, D]) bool {
	if v.Trusted() {
		return v.Level0().IsZero()
	}

	it := NewBlockIter(v, NoCache)
	_, ok := it.Next()

	return !ok
}
