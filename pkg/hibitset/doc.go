// Package hibitset provides a hierarchical sparse bitset: an ordered set of
// non-negative integers stored as a fixed-depth tree of bitblocks.
//
// The tree has three levels. A single level-0 block summarizes which level-1
// blocks are populated, each level-1 block summarizes its data blocks, and
// the data blocks carry the actual membership bits. Memory is proportional
// to the number of populated data blocks, not to the largest index, and the
// upper levels let set operations and iteration skip empty sub-trees
// wholesale.
//
// # Basic Usage
//
//	s := hibitset.New64()
//	s.Insert(3)
//	s.Insert(200_000)
//	s.Contains(3) // true
//
//	for x := range s.All() {
//	    // ascending order
//	}
//
// # Set Algebra
//
// Binary operations build virtual sets over borrowed operands. Nothing is
// copied and nothing is allocated on the mask or data path; the result
// composes blocks on demand and is itself usable as an operand:
//
//	a, b := hibitset.Of64(1, 2, 3), hibitset.Of64(2, 3, 4)
//	inter := a.And(b)             // virtual, lazy
//	union := inter.Or(c)          // virtual sets compose
//	union.ForEach(func(x uint) { ... })
//
// N-ary reductions over a restartable operand stream are available through
// [Reduce].
//
// # Iteration and Cursors
//
// [IndexIter] yields indices in ascending order; [BlockIter] yields whole
// data blocks. An iterator's position can be captured as a compact [Cursor]
// and re-seated later with MoveTo, including across mutation of the
// underlying sets (see [IndexIter.MoveTo] for the exact resume contract).
// Cursors encode positions, not borrows: callers may drop every iterator,
// release an external lock, and rebuild from the cursor.
//
// # Concurrency
//
// A set is owned by a single writer at a time. Multiple goroutines may read
// an unchanging set concurrently; any mutation excludes all other access.
// There is no internal locking.
//
// # Custom Bitsets
//
// Any type implementing [View] participates in the algebra and iteration
// machinery exactly like a concrete [Set]. This is an advanced hook; see the
// View documentation for the obligations, in particular the meaning of the
// trusted-hierarchy flag.
package hibitset
