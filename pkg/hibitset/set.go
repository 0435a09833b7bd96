package hibitset

import "math/bits"

// Set is the concrete tri-level container.
//
// A Set owns one level-0 block and two storage pools, one for level-1
// blocks and one for data blocks. The level-0 mask has bit i0 set iff the
// level-1 block at i0 is allocated and non-empty; each level-1 mask
// summarizes its data blocks the same way. The hierarchy is exact after
// every public mutation returns, so Set always advertises a trusted
// hierarchy.
//
// The three block widths are type parameters; see [Set64], [Set128] and
// [Set256] for the uniform-width configurations. The maximum representable
// index is [Set.MaxIndex]; passing a larger index to any operation is a
// caller error and panics.
//
// A Set is not safe for concurrent mutation. See the package documentation
// for the ownership discipline.
type Set[L0 Block[L0], L1 Block[L1], D Block[D]] struct {
	level0 indexBlock[L0]
	l1     pool[indexBlock[L1]]
	data   pool[D]

	w1log    uint
	wdlog    uint
	capacity uint
}

// indexBlock is an upper-level block: a summary mask plus one pool slot
// index per mask position. Entries under clear mask bits hold emptySlot.
type indexBlock[M Block[M]] struct {
	mask M
	slot []uint32
}

// Uniform-width configurations.
type (
	// Set64 is a Set with 64-bit blocks at every level (max index 262_143).
	Set64 = Set[Block64, Block64, Block64]
	// Set128 is a Set with 128-bit blocks at every level (max index 2_097_151).
	Set128 = Set[Block128, Block128, Block128]
	// Set256 is a Set with 256-bit blocks at every level (max index 16_777_215).
	Set256 = Set[Block256, Block256, Block256]
)

// New returns an empty set for an arbitrary width configuration.
func New[L0 Block[L0], L1 Block[L1], D Block[D]]() *Set[L0, L1, D] {
	var z0 L0

	var z1 L1

	var zd D

	w0, w1, wd := z0.Bits(), z1.Bits(), zd.Bits()

	s := &Set[L0, L1, D]{
		w1log:    uint(bits.TrailingZeros(w1)),
		wdlog:    uint(bits.TrailingZeros(wd)),
		capacity: w0 * w1 * wd,
	}
	s.level0.slot = make([]uint32, w0)
	s.l1 = newPool(
		func(b *indexBlock[L1]) { b.slot = make([]uint32, w1) },
		func(b *indexBlock[L1]) {
			var z L1

			b.mask = z
			clear(b.slot)
		},
	)
	s.data = newPool(
		func(*D) {},
		func(d *D) {
			var z D

			*d = z
		},
	)

	return s
}

// New64 returns an empty [Set64].
func New64() *Set64 { return New[Block64, Block64, Block64]() }

// New128 returns an empty [Set128].
func New128() *Set128 { return New[Block128, Block128, Block128]() }

// New256 returns an empty [Set256].
func New256() *Set256 { return New[Block256, Block256, Block256]() }

// Of64 returns a [Set64] holding the given indices.
func Of64(xs ...uint) *Set64 {
	s := New64()
	for _, x := range xs {
		s.Insert(x)
	}

	return s
}

// Of128 returns a [Set128] holding the given indices.
func Of128(xs ...uint) *Set128 {
	s := New128()
	for _, x := range xs {
		s.Insert(x)
	}

	return s
}

// Of256 returns a [Set256] holding the given indices.
func Of256(xs ...uint) *Set256 {
	s := New256()
	for _, x := range xs {
		s.Insert(x)
	}

	return s
}

// MaxIndex returns the largest index this configuration can represent.
func (s *Set[L0, L1, D]) MaxIndex() uint { return s.capacity - 1 }

// split decomposes a global index into its three level positions.
func (s *Set[L0, L1, D]) split(x uint) (i0, i1, id uint) {
	if x >= s.capacity {
		panic("hibitset: index out of range")
	}

	return x >> (s.w1log + s.wdlog),
		(x >> s.wdlog) & (1<<s.w1log - 1),
		x & (1<<s.wdlog - 1)
}

// Insert sets bit x. Reports whether the bit was previously clear.
//
// First touch of a level-0 position allocates a level-1 slot; first touch
// of a (level-0, level-1) position allocates a data slot. Parent masks are
// updated after the data bit, keeping the hierarchy exact at every step
// an outside reader could observe between calls.
func (s *Set[L0, L1, D]) Insert(x uint) bool {
	i0, i1, id := s.split(x)

	l1Idx := s.level0.slot[i0]
	if !s.level0.mask.Test(i0) {
		l1Idx = s.l1.alloc()
		s.level0.slot[i0] = l1Idx
	}

	b1 := s.l1.get(l1Idx)

	dIdx := b1.slot[i1]
	if !b1.mask.Test(i1) {
		dIdx = s.data.alloc()
		b1.slot[i1] = dIdx
	}

	d := s.data.get(dIdx)
	if (*d).Test(id) {
		return false
	}

	*d = (*d).WithBit(id)
	b1.mask = b1.mask.WithBit(i1)
	s.level0.mask = s.level0.mask.WithBit(i0)

	return true
}

// Remove clears bit x. Reports whether the bit was previously set.
//
// A data block that becomes zero is released to its pool and unlinked
// from its parent; an emptied level-1 block bubbles up the same way.
func (s *Set[L0, L1, D]) Remove(x uint) bool {
	i0, i1, id := s.split(x)

	if !s.level0.mask.Test(i0) {
		return false
	}

	l1Idx := s.level0.slot[i0]
	b1 := s.l1.get(l1Idx)

	if !b1.mask.Test(i1) {
		return false
	}

	dIdx := b1.slot[i1]
	d := s.data.get(dIdx)

	if !(*d).Test(id) {
		return false
	}

	*d = (*d).WithoutBit(id)

	if (*d).IsZero() {
		b1.mask = b1.mask.WithoutBit(i1)
		b1.slot[i1] = emptySlot
		s.data.release(dIdx)

		if b1.mask.IsZero() {
			s.level0.mask = s.level0.mask.WithoutBit(i0)
			s.level0.slot[i0] = emptySlot
			s.l1.release(l1Idx)
		}
	}

	return true
}

// Contains reports whether bit x is set.
func (s *Set[L0, L1, D]) Contains(x uint) bool {
	i0, i1, id := s.split(x)

	if !s.level0.mask.Test(i0) {
		return false
	}

	b1 := s.l1.get(s.level0.slot[i0])
	if !b1.mask.Test(i1) {
		return false
	}

	return (*s.data.get(b1.slot[i1])).Test(id)
}

// IsEmpty reports whether the set holds no indices. O(1).
func (s *Set[L0, L1, D]) IsEmpty() bool { return s.level0.mask.IsZero() }

// Len returns the number of indices in the set by summing the populations
// of the referenced data blocks. O(#data-blocks), not O(1).
func (s *Set[L0, L1, D]) Len() uint {
	var n uint

	m0 := s.level0.mask
	w0 := m0.Bits()

	for {
		t := m0.TrailingZeros()
		if t == w0 {
			return n
		}

		m0 = m0.WithoutBit(t)

		b1 := s.l1.get(s.level0.slot[t])
		m1 := b1.mask
		w1 := m1.Bits()

		for {
			u := m1.TrailingZeros()
			if u == w1 {
				break
			}

			m1 = m1.WithoutBit(u)
			n += (*s.data.get(b1.slot[u])).OnesCount()
		}
	}
}

// Clear removes all indices, returning every allocated level-1 and data
// slot to its pool. Pool storage is retained for reuse.
func (s *Set[L0, L1, D]) Clear() {
	m0 := s.level0.mask
	w0 := m0.Bits()

	for {
		t := m0.TrailingZeros()
		if t == w0 {
			break
		}

		m0 = m0.WithoutBit(t)

		l1Idx := s.level0.slot[t]
		b1 := s.l1.get(l1Idx)
		m1 := b1.mask
		w1 := m1.Bits()

		for {
			u := m1.TrailingZeros()
			if u == w1 {
				break
			}

			m1 = m1.WithoutBit(u)
			s.data.release(b1.slot[u])
		}

		s.l1.release(l1Idx)
		s.level0.slot[t] = emptySlot
	}

	var z L0

	s.level0.mask = z
}

// InsertSeq inserts every index the sequence yields.
func (s *Set[L0, L1, D]) InsertSeq(seq IndexSeq) {
	seq(func(x uint) bool {
		s.Insert(x)

		return true
	})
}

// From builds a set of the given configuration from an index sequence.
func From[L0 Block[L0], L1 Block[L1], D Block[D]](seq IndexSeq) *Set[L0, L1, D] {
	s := New[L0, L1, D]()
	s.InsertSeq(seq)

	return s
}

// Clone returns an independent set with the same contents.
func (s *Set[L0, L1, D]) Clone() *Set[L0, L1, D] {
	c := New[L0, L1, D]()
	c.InsertSeq(s.All())

	return c
}

// Equal reports whether o holds the same indices as s.
func (s *Set[L0, L1, D]) Equal(o View[L0, L1, D]) bool {
	return Equal[L0, L1, D](s, o)
}

// PoolStats describes one storage pool. The sentinel slot is excluded.
type PoolStats struct {
	Slots  int    // arena size
	Free   int    // slots currently on the free list
	Grown  uint64 // allocations that grew the arena
	Reused uint64 // allocations served from the free list
}

// Stats reports pool occupancy and allocation counters. Mainly useful for
// tests and capacity planning; Grown+Reused only ever increases.
func (s *Set[L0, L1, D]) Stats() Stats {
	return Stats{
		Level1: PoolStats{
			Slots:  len(s.l1.slots) - 1,
			Free:   s.l1.freeLen(),
			Grown:  s.l1.grown,
			Reused: s.l1.reused,
		},
		Data: PoolStats{
			Slots:  len(s.data.slots) - 1,
			Free:   s.data.freeLen(),
			Grown:  s.data.grown,
			Reused: s.data.reused,
		},
	}
}

// Stats aggregates the per-pool statistics of a Set.
type Stats struct {
	Level1 PoolStats
	Data   PoolStats
}

// Level0 implements [View].
func (s *Set[L0, L1, D]) Level0() L0 { return s.level0.mask }

// Level1 implements [View].
func (s *Set[L0, L1, D]) Level1(i0 uint) L1 {
	return s.l1.get(s.level0.slot[i0]).mask
}

// Data implements [View].
func (s *Set[L0, L1, D]) Data(i0, i1 uint) D {
	b1 := s.l1.get(s.level0.slot[i0])

	return *s.data.get(b1.slot[i1])
}

// Trusted implements [View]. Concrete containers keep exact hierarchies.
func (s *Set[L0, L1, D]) Trusted() bool { return true }

// Operands implements [View].
func (s *Set[L0, L1, D]) Operands() int { return 1 }

// resolveLevel1 resolves the level-0 indirection once so data fetches for
// this i0 skip it. Fast path for caching iterators.
func (s *Set[L0, L1, D]) resolveLevel1(i0 uint) func(i1 uint) D {
	b1 := s.l1.get(s.level0.slot[i0])

	return func(i1 uint) D { return *s.data.get(b1.slot[i1]) }
}
