package hibitset

import "math/bits"

// IndexSeq is a restartable sequence of indices in the shape of
// iter.Seq[uint], so callers can range over it or collect it:
//
//	for x := range s.All() { ... }
type IndexSeq func(yield func(uint) bool)

// CachePolicy selects how a caching iterator resolves level-1 blocks.
//
//   - [NoCache] refetches through the view on every data step. Smallest
//     footprint, valid for any number of operands.
//   - [FixedCache] resolves level-1 once per level-0 advance and bounds the
//     operand count; iterator construction panics when a view exceeds it.
//   - [DynamicCache] resolves like FixedCache but sizes itself from the
//     view's operand count at construction.
type CachePolicy struct {
	kind cacheKind
	size int
}

type cacheKind uint8

const (
	cacheNone cacheKind = iota
	cacheFixed
	cacheDynamic
)

// NoCache refetches level-1 state on every data step.
var NoCache = CachePolicy{kind: cacheNone}

// DynamicCache caches resolved level-1 state, sized at construction.
var DynamicCache = CachePolicy{kind: cacheDynamic}

// FixedCache caches resolved level-1 state for up to n operands.
func FixedCache(n int) CachePolicy { return CachePolicy{kind: cacheFixed, size: n} }

// Cursor is a compact resume token for an iterator: the packed next
// position at block or index grain. The zero Cursor means "start of the
// iteration". Cursors encode positions only, never borrows, so they stay
// meaningful across mutation of the underlying sets and across iterator
// lifetimes; see [IndexIter.MoveTo] for the resume contract.
//
// A cursor is only meaningful for views of the same width configuration
// it was captured from.
type Cursor uint64

const cursorStarted Cursor = 1 << 63

func makeCursor(i0, j1, id uint) Cursor {
	return cursorStarted | Cursor(i0)<<32 | Cursor(j1)<<16 | Cursor(id)
}

func (c Cursor) parts() (i0, j1, id uint) {
	return uint(c>>32) & 0xFFFF, uint(c>>16) & 0xFFFF, uint(c) & 0xFFFF
}

// BlockIter yields a view's non-empty data blocks in ascending start
// order.
//
// The iterator is hierarchy-driven: it scans the level-0 mask for
// populated positions, materializes the combined level-1 mask once per
// position, and only then touches data blocks. Sub-trees whose hierarchy
// bits are clear cost nothing at all.
type BlockIter[L0 Block[L0], L1 Block[L1], D Block[D]] struct {
	v     View[L0, L1, D]
	res   level1Resolver[D]
	fetch func(i1 uint) D

	l0rem   L0
	l1rem   L1
	i0      uint
	inBlock bool

	w0, w1, wd   uint
	w1log, wdlog uint
}

// NewBlockIter returns a block iterator over v under the given cache
// policy. Panics if a [FixedCache] policy is exceeded by the view's
// operand count.
func NewBlockIter[L0 Block[L0], L1 Block[L1], D Block[D]](
	v View[L0, L1, D], pol CachePolicy,
) BlockIter[L0, L1, D] {
	var z0 L0

	var z1 L1

	var zd D

	it := BlockIter[L0, L1, D]{
		v:     v,
		w0:    z0.Bits(),
		w1:    z1.Bits(),
		wd:    zd.Bits(),
		w1log: uint(bits.TrailingZeros(z1.Bits())),
		wdlog: uint(bits.TrailingZeros(zd.Bits())),
	}

	if pol.kind == cacheFixed && v.Operands() > pol.size {
		panic("hibitset: fixed iterator cache exceeded by operand count")
	}

	if pol.kind != cacheNone {
		if r, ok := v.(level1Resolver[D]); ok {
			it.res = r
		}
	}

	it.l0rem = v.Level0()

	return it
}

func (it *BlockIter[L0, L1, D]) blockStart(i0, i1 uint) uint {
	return (i0<<it.w1log | i1) << it.wdlog
}

// Next returns the next non-empty data block, ascending by start index.
func (it *BlockIter[L0, L1, D]) Next() (DataBlock[D], bool) {
	for {
		if !it.inBlock {
			t := it.l0rem.TrailingZeros()
			if t == it.w0 {
				var z DataBlock[D]

				return z, false
			}

			it.i0 = t
			it.l0rem = it.l0rem.WithoutBit(t)
			it.l1rem = it.v.Level1(t)
			it.inBlock = true
			it.fetch = nil

			if it.res != nil {
				it.fetch = it.res.resolveLevel1(t)
			}
		}

		u := it.l1rem.TrailingZeros()
		if u == it.w1 {
			it.inBlock = false

			continue
		}

		it.l1rem = it.l1rem.WithoutBit(u)

		var d D
		if it.fetch != nil {
			d = it.fetch(u)
		} else {
			d = it.v.Data(it.i0, u)
		}

		// Untrusted hierarchies may advertise blocks that combined to zero.
		if d.IsZero() {
			continue
		}

		return DataBlock[D]{Start: it.blockStart(it.i0, u), Bits: d}, true
	}
}

// Cursor snapshots the position of the next unvisited block.
func (it *BlockIter[L0, L1, D]) Cursor() Cursor {
	if it.inBlock {
		u := it.l1rem.TrailingZeros()
		if u < it.w1 {
			return makeCursor(it.i0, u, 0)
		}
	}

	t := it.l0rem.TrailingZeros()

	return makeCursor(t, 0, 0)
}

// MoveTo re-seats the iterator at or after the cursor position, re-reading
// the view's current state.
func (it *BlockIter[L0, L1, D]) MoveTo(c Cursor) {
	it.inBlock = false
	it.fetch = nil

	m0 := it.v.Level0()

	if c == 0 {
		it.l0rem = m0

		return
	}

	i0, j1, _ := c.parts()

	if j1 >= it.w1 {
		i0++
		j1 = 0
	}

	if i0 >= it.w0 {
		var z L0

		it.l0rem = z

		return
	}

	m0 = m0.WithoutBitsBelow(i0)

	if j1 > 0 && m0.Test(i0) {
		it.i0 = i0
		it.l0rem = m0.WithoutBit(i0)
		it.l1rem = it.v.Level1(i0).WithoutBitsBelow(j1)
		it.inBlock = true

		if it.res != nil {
			it.fetch = it.res.resolveLevel1(i0)
		}

		return
	}

	it.l0rem = m0
}

// Clone returns an independent iterator at the same position.
func (it *BlockIter[L0, L1, D]) Clone() BlockIter[L0, L1, D] { return *it }

// IndexIter yields a view's indices in strictly increasing order. It is a
// [BlockIter] plus a per-block bit scan.
type IndexIter[L0 Block[L0], L1 Block[L1], D Block[D]] struct {
	blocks BlockIter[L0, L1, D]

	d    D    // unvisited bits of the current block
	base uint // global start index of the current block
}

// NewIndexIter returns an index iterator over v under the given cache
// policy. Panics if a [FixedCache] policy is exceeded by the view's
// operand count.
func NewIndexIter[L0 Block[L0], L1 Block[L1], D Block[D]](
	v View[L0, L1, D], pol CachePolicy,
) IndexIter[L0, L1, D] {
	return IndexIter[L0, L1, D]{blocks: NewBlockIter(v, pol)}
}

// Next returns the next index, ascending.
func (it *IndexIter[L0, L1, D]) Next() (uint, bool) {
	for {
		t := it.d.TrailingZeros()
		if t < it.blocks.wd {
			it.d = it.d.WithoutBit(t)

			return it.base + t, true
		}

		blk, ok := it.blocks.Next()
		if !ok {
			return 0, false
		}

		it.d = blk.Bits
		it.base = blk.Start
	}
}

// Traverse calls yield for each remaining index in ascending order until
// the sequence ends or yield returns false. Reports whether the sequence
// ran to completion. This is the high-throughput path: it scans data bits
// in a tight loop without re-entering the block state machine per index,
// and the iterator position stays consistent when yield breaks, so
// [IndexIter.Cursor] remains usable afterwards.
func (it *IndexIter[L0, L1, D]) Traverse(yield func(uint) bool) bool {
	wd := it.blocks.wd

	for {
		for {
			t := it.d.TrailingZeros()
			if t == wd {
				break
			}

			it.d = it.d.WithoutBit(t)

			if !yield(it.base + t) {
				return false
			}
		}

		blk, ok := it.blocks.Next()
		if !ok {
			return true
		}

		it.d = blk.Bits
		it.base = blk.Start
	}
}

// ForEach calls f for each remaining index in ascending order.
func (it *IndexIter[L0, L1, D]) ForEach(f func(uint)) {
	it.Traverse(func(x uint) bool {
		f(x)

		return true
	})
}

// Cursor snapshots the position of the next unvisited index.
func (it *IndexIter[L0, L1, D]) Cursor() Cursor {
	t := it.d.TrailingZeros()
	if t < it.blocks.wd {
		shift := it.blocks.w1log + it.blocks.wdlog
		i0 := it.base >> shift
		j1 := (it.base >> it.blocks.wdlog) & (1<<it.blocks.w1log - 1)

		return makeCursor(i0, j1, t)
	}

	return it.blocks.Cursor()
}

// MoveTo re-seats the iterator at the first index at or after the cursor
// position, re-reading the views' current state.
//
// Resume contract, for a cursor captured from an earlier session over the
// same sets:
//
//   - If the sets are unchanged, iteration continues exactly where the
//     cursor was taken.
//   - If only removals happened in between, every remaining index at or
//     after the cursor is still yielded, in order.
//   - Under arbitrary mutation, iteration makes forward progress and never
//     repeats an index within one session; indices inserted before the
//     cursor are not revisited, and indices inserted after it may or may
//     not appear.
func (it *IndexIter[L0, L1, D]) MoveTo(c Cursor) {
	var z D

	it.d = z
	it.base = 0

	if c == 0 {
		it.blocks.MoveTo(0)

		return
	}

	i0, j1, id := c.parts()
	it.blocks.MoveTo(makeCursor(i0, j1, 0))

	if id == 0 {
		return
	}

	// The cursor points into the middle of a data block. Materialize that
	// block now and drop the bits already consumed.
	blk, ok := it.blocks.Next()
	if !ok {
		return
	}

	it.d = blk.Bits
	it.base = blk.Start

	if blk.Start == it.blocks.blockStart(i0, j1) {
		it.d = it.d.WithoutBitsBelow(id)
	}
}

// Clone returns an independent iterator at the same position.
func (it *IndexIter[L0, L1, D]) Clone() IndexIter[L0, L1, D] { return *it }

// Iter returns an index iterator over the set.
func (s *Set[L0, L1, D]) Iter() IndexIter[L0, L1, D] {
	return NewIndexIter[L0, L1, D](s, NoCache)
}

// Blocks returns a block iterator over the set.
func (s *Set[L0, L1, D]) Blocks() BlockIter[L0, L1, D] {
	return NewBlockIter[L0, L1, D](s, NoCache)
}

// All returns a restartable sequence of the set's indices, ascending.
func (s *Set[L0, L1, D]) All() IndexSeq { return viewAll[L0, L1, D](s) }

// ForEach calls f for every index in the set, ascending.
func (s *Set[L0, L1, D]) ForEach(f func(uint)) {
	it := s.Iter()
	it.ForEach(f)
}

func viewAll[L0 Block[L0], L1 Block[L1], D Block[D]](v View[L0, L1, D]) IndexSeq {
	return func(yield func(uint) bool) {
		it := NewIndexIter(v, NoCache)
		it.Traverse(yield)
	}
}
