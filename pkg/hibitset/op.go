package hibitset

// BitSetOp is the contract a set operation fulfills: how hierarchy masks
// and data blocks combine, plus the markers consumers rely on.
//
// The four standard operations are [AndOp], [OrOp], [XorOp] and
// [AndNotOp]. User-defined operations are possible as long as the marker
// fields are honest; the iterators prune sub-trees based on them.
type BitSetOp[L0 Block[L0], L1 Block[L1], D Block[D]] struct {
	// Name identifies the operation in diagnostics.
	Name string

	// Level0 and Level1 combine hierarchy masks. The combined mask must
	// cover the result: any position that could hold result bits must be
	// set in it.
	Level0 func(a, b L0) L0
	Level1 func(a, b L1) L1

	// Data combines two data blocks.
	Data func(a, b D) D

	// OperandsContainResult marks operations whose populated keys are a
	// subset of each operand's (intersection). Iteration may then skip a
	// sub-tree as soon as any one operand's hierarchy bit is clear.
	OperandsContainResult bool

	// EmptyHierarchyImpliesEmptyResult marks operations for which a clear
	// combined hierarchy bit guarantees an empty sub-tree. All standard
	// operations have this property; the hierarchy-driven iterators
	// require it.
	EmptyHierarchyImpliesEmptyResult bool

	// Trusted derives the result's trusted-hierarchy flag from the
	// operands' flags. Intersection-like operations must return false:
	// a set combined-mask bit does not guarantee a non-empty data block.
	Trusted func(a, b bool) bool
}

// AndOp is set intersection.
//
// The result is not trusted: both operands may populate a position whose
// intersection is still empty.
func AndOp[L0 Block[L0], L1 Block[L1], D Block[D]]() BitSetOp[L0, L1, D] {
	return BitSetOp[L0, L1, D]{
		Name:                             "and",
		Level0:                           func(a, b L0) L0 { return a.And(b) },
		Level1:                           func(a, b L1) L1 { return a.And(b) },
		Data:                             func(a, b D) D { return a.And(b) },
		OperandsContainResult:            true,
		EmptyHierarchyImpliesEmptyResult: true,
		Trusted:                          func(bool, bool) bool { return false },
	}
}

// OrOp is set union. Trust survives union: a non-empty operand block stays
// non-empty in the result, so the combined masks remain exact when both
// operands' are.
func OrOp[L0 Block[L0], L1 Block[L1], D Block[D]]() BitSetOp[L0, L1, D] {
	return BitSetOp[L0, L1, D]{
		Name:                             "or",
		Level0:                           func(a, b L0) L0 { return a.Or(b) },
		Level1:                           func(a, b L1) L1 { return a.Or(b) },
		Data:                             func(a, b D) D { return a.Or(b) },
		EmptyHierarchyImpliesEmptyResult: true,
		Trusted:                          func(a, b bool) bool { return a && b },
	}
}

// XorOp is symmetric difference. Hierarchy masks combine as union (a block
// may exist on either side), and the result is not trusted: equal blocks
// cancel to zero under a set mask bit.
func XorOp[L0 Block[L0], L1 Block[L1], D Block[D]]() BitSetOp[L0, L1, D] {
	return BitSetOp[L0, L1, D]{
		Name:                             "xor",
		Level0:                           func(a, b L0) L0 { return a.Or(b) },
		Level1:                           func(a, b L1) L1 { return a.Or(b) },
		Data:                             func(a, b D) D { return a.Xor(b) },
		EmptyHierarchyImpliesEmptyResult: true,
		Trusted:                          func(bool, bool) bool { return false },
	}
}

// AndNotOp is set difference (a \ b). The left operand's hierarchy covers
// the result; the result is not trusted because subtraction can empty a
// block the mask still advertises.
func AndNotOp[L0 Block[L0], L1 Block[L1], D Block[D]]() BitSetOp[L0, L1, D] {
	return BitSetOp[L0, L1, D]{
		Name:                             "andnot",
		Level0:                           func(a, _ L0) L0 { return a },
		Level1:                           func(a, _ L1) L1 { return a },
		Data:                             func(a, b D) D { return a.AndNot(b) },
		EmptyHierarchyImpliesEmptyResult: true,
		Trusted:                          func(bool, bool) bool { return false },
	}
}

// Operation is a lazy binary virtual set. It exposes the same hierarchical
// view as a concrete container but computes masks and data blocks on
// demand by combining its two operands, which are borrowed, never copied.
// Operations are themselves operands, so expressions compose:
//
//	a.And(b).Or(c).Iter()
//
// Constructing or iterating an Operation performs no per-element
// allocation.
type Operation[L0 Block[L0], L1 Block[L1], D Block[D]] struct {
	op      BitSetOp[L0, L1, D]
	a, b    View[L0, L1, D]
	trusted bool
}

// Apply builds the virtual set op(a, b).
func Apply[L0 Block[L0], L1 Block[L1], D Block[D]](
	op BitSetOp[L0, L1, D], a, b View[L0, L1, D],
) Operation[L0, L1, D] {
	return Operation[L0, L1, D]{
		op:      op,
		a:       a,
		b:       b,
		trusted: op.Trusted(a.Trusted(), b.Trusted()),
	}
}

// Level0 implements [View].
func (o Operation[L0, L1, D]) Level0() L0 {
	return o.op.Level0(o.a.Level0(), o.b.Level0())
}

// Level1 implements [View].
func (o Operation[L0, L1, D]) Level1(i0 uint) L1 {
	return o.op.Level1(o.a.Level1(i0), o.b.Level1(i0))
}

// Data implements [View].
func (o Operation[L0, L1, D]) Data(i0, i1 uint) D {
	return o.op.Data(o.a.Data(i0, i1), o.b.Data(i0, i1))
}

// Trusted implements [View].
func (o Operation[L0, L1, D]) Trusted() bool { return o.trusted }

// Operands implements [View].
func (o Operation[L0, L1, D]) Operands() int {
	return o.a.Operands() + o.b.Operands()
}

func (o Operation[L0, L1, D]) resolveLevel1(i0 uint) func(i1 uint) D {
	fa := resolveOrFetch[L0, L1, D](o.a, i0)
	fb := resolveOrFetch[L0, L1, D](o.b, i0)
	data := o.op.Data

	return func(i1 uint) D { return data(fa(i1), fb(i1)) }
}

// resolveOrFetch uses the operand's resolver fast path when it has one and
// falls back to fetching through the view otherwise.
func resolveOrFetch[L0 Block[L0], L1 Block[L1], D Block[D]](
	v View[L0, L1, D], i0 uint,
) func(i1 uint) D {
	if r, ok := v.(level1Resolver[D]); ok {
		return r.resolveLevel1(i0)
	}

	return func(i1 uint) D { return v.Data(i0, i1) }
}

// And returns the lazy intersection of o and v.
func (o Operation[L0, L1, D]) And(v View[L0, L1, D]) Operation[L0, L1, D] {
	return Apply(AndOp[L0, L1, D](), o, v)
}

// Or returns the lazy union of o and v.
func (o Operation[L0, L1, D]) Or(v View[L0, L1, D]) Operation[L0, L1, D] {
	return Apply(OrOp[L0, L1, D](), o, v)
}

// Xor returns the lazy symmetric difference of o and v.
func (o Operation[L0, L1, D]) Xor(v View[L0, L1, D]) Operation[L0, L1, D] {
	return Apply(XorOp[L0, L1, D](), o, v)
}

// AndNot returns the lazy difference o \ v.
func (o Operation[L0, L1, D]) AndNot(v View[L0, L1, D]) Operation[L0, L1, D] {
	return Apply(AndNotOp[L0, L1, D](), o, v)
}

// Iter returns an index iterator over the operation's result.
func (o Operation[L0, L1, D]) Iter() IndexIter[L0, L1, D] {
	return NewIndexIter[L0, L1, D](o, NoCache)
}

// Blocks returns a block iterator over the operation's result.
func (o Operation[L0, L1, D]) Blocks() BlockIter[L0, L1, D] {
	return NewBlockIter[L0, L1, D](o, NoCache)
}

// All returns a restartable sequence of the result's indices, ascending.
func (o Operation[L0, L1, D]) All() IndexSeq { return viewAll[L0, L1, D](o) }

// ForEach calls f for every index in the result, ascending.
func (o Operation[L0, L1, D]) ForEach(f func(uint)) {
	it := o.Iter()
	it.ForEach(f)
}

// Len returns the number of indices in the result. O(#data-blocks).
func (o Operation[L0, L1, D]) Len() uint { return Count[L0, L1, D](o) }

// IsEmpty reports whether the result holds no indices.
func (o Operation[L0, L1, D]) IsEmpty() bool { return IsEmptyView[L0, L1, D](o) }

// Equal reports whether v holds the same indices as the result.
func (o Operation[L0, L1, D]) Equal(v View[L0, L1, D]) bool {
	return Equal[L0, L1, D](o, v)
}

// Views is a restartable stream of operands. Calling it runs the stream
// from the start, so a [Reduced] set can re-scan its operands on every
// iteration session.
type Views[L0 Block[L0], L1 Block[L1], D Block[D]] func(yield func(View[L0, L1, D]) bool)

// ViewsOf adapts a fixed operand list into a [Views] stream.
func ViewsOf[L0 Block[L0], L1 Block[L1], D Block[D]](vs ...View[L0, L1, D]) Views[L0, L1, D] {
	return func(yield func(View[L0, L1, D]) bool) {
		for _, v := range vs {
			if !yield(v) {
				return
			}
		}
	}
}

// Reduced is a lazy n-ary virtual set: op folded over an operand stream.
// Semantics match [Operation] extended to n operands.
type Reduced[L0 Block[L0], L1 Block[L1], D Block[D]] struct {
	op       BitSetOp[L0, L1, D]
	operands Views[L0, L1, D]
	n        int
	trusted  bool
}

// Reduce builds the virtual set op(v1, v2, ... vn) over the operand
// stream. Reports ok=false when the stream is empty, in which case the
// view is nil. Operands are borrowed; the stream is re-scanned on every
// iteration session and must yield the same operands each time.
func Reduce[L0 Block[L0], L1 Block[L1], D Block[D]](
	op BitSetOp[L0, L1, D], operands Views[L0, L1, D],
) (*Reduced[L0, L1, D], bool) {
	r := &Reduced[L0, L1, D]{op: op, operands: operands}

	first := true
	operands(func(v View[L0, L1, D]) bool {
		if first {
			r.trusted = v.Trusted()
			first = false
		} else {
			r.trusted = op.Trusted(r.trusted, v.Trusted())
		}

		r.n += v.Operands()

		return true
	})

	if first {
		return nil, false
	}

	return r, true
}

// Level0 implements [View] by folding the operation over the operands.
func (r *Reduced[L0, L1, D]) Level0() L0 {
	var acc L0

	first := true
	r.operands(func(v View[L0, L1, D]) bool {
		if first {
			acc = v.Level0()
			first = false
		} else {
			acc = r.op.Level0(acc, v.Level0())
		}

		return true
	})

	return acc
}

// Level1 implements [View].
func (r *Reduced[L0, L1, D]) Level1(i0 uint) L1 {
	var acc L1

	first := true
	r.operands(func(v View[L0, L1, D]) bool {
		if first {
			acc = v.Level1(i0)
			first = false
		} else {
			acc = r.op.Level1(acc, v.Level1(i0))
		}

		return true
	})

	return acc
}

// Data implements [View].
func (r *Reduced[L0, L1, D]) Data(i0, i1 uint) D {
	var acc D

	first := true
	r.operands(func(v View[L0, L1, D]) bool {
		if first {
			acc = v.Data(i0, i1)
			first = false
		} else {
			acc = r.op.Data(acc, v.Data(i0, i1))
		}

		return true
	})

	return acc
}

// Trusted implements [View].
func (r *Reduced[L0, L1, D]) Trusted() bool { return r.trusted }

// Operands implements [View].
func (r *Reduced[L0, L1, D]) Operands() int { return r.n }

func (r *Reduced[L0, L1, D]) resolveLevel1(i0 uint) func(i1 uint) D {
	fns := make([]func(uint) D, 0, r.n)
	r.operands(func(v View[L0, L1, D]) bool {
		fns = append(fns, resolveOrFetch[L0, L1, D](v, i0))

		return true
	})

	data := r.op.Data

	return func(i1 uint) D {
		acc := fns[0](i1)
		for _, f := range fns[1:] {
			acc = data(acc, f(i1))
		}

		return acc
	}
}

// And returns the lazy intersection of r and v.
func (r *Reduced[L0, L1, D]) And(v View[L0, L1, D]) Operation[L0, L1, D] {
	return Apply(AndOp[L0, L1, D](), r, v)
}

// Or returns the lazy union of r and v.
func (r *Reduced[L0, L1, D]) Or(v View[L0, L1, D]) Operation[L0, L1, D] {
	return Apply(OrOp[L0, L1, D](), r, v)
}

// Xor returns the lazy symmetric difference of r and v.
func (r *Reduced[L0, L1, D]) Xor(v View[L0, L1, D]) Operation[L0, L1, D] {
	return Apply(XorOp[L0, L1, D](), r, v)
}

// AndNot returns the lazy difference r \ v.
func (r *Reduced[L0, L1, D]) AndNot(v View[L0, L1, D]) Operation[L0, L1, D] {
	return Apply(AndNotOp[L0, L1, D](), r, v)
}

// Iter returns an index iterator over the reduction's result.
func (r *Reduced[L0, L1, D]) Iter() IndexIter[L0, L1, D] {
	return NewIndexIter[L0, L1, D](r, NoCache)
}

// Blocks returns a block iterator over the reduction's result.
func (r *Reduced[L0, L1, D]) Blocks() BlockIter[L0, L1, D] {
	return NewBlockIter[L0, L1, D](r, NoCache)
}

// All returns a restartable sequence of the result's indices, ascending.
func (r *Reduced[L0, L1, D]) All() IndexSeq { return viewAll[L0, L1, D](r) }

// ForEach calls f for every index in the result, ascending.
func (r *Reduced[L0, L1, D]) ForEach(f func(uint)) {
	it := r.Iter()
	it.ForEach(f)
}

// Len returns the number of indices in the result. O(#data-blocks).
func (r *Reduced[L0, L1, D]) Len() uint { return Count[L0, L1, D](r) }

// IsEmpty reports whether the result holds no indices.
func (r *Reduced[L0, L1, D]) IsEmpty() bool { return IsEmptyView[L0, L1, D](r) }

// Equal reports whether v holds the same indices as the result.
func (r *Reduced[L0, L1, D]) Equal(v View[L0, L1, D]) bool {
	return Equal[L0, L1, D](r, v)
}

// And returns the lazy intersection of s and v.
func (s *Set[L0, L1, D]) And(v View[L0, L1, D]) Operation[L0, L1, D] {
	return Apply(AndOp[L0, L1, D](), s, v)
}

// Or returns the lazy union of s and v.
func (s *Set[L0, L1, D]) Or(v View[L0, L1, D]) Operation[L0, L1, D] {
	return Apply(OrOp[L0, L1, D](), s, v)
}

// Xor returns the lazy symmetric difference of s and v.
func (s *Set[L0, L1, D]) Xor(v View[L0, L1, D]) Operation[L0, L1, D] {
	return Apply(XorOp[L0, L1, D](), s, v)
}

// AndNot returns the lazy difference s \ v.
func (s *Set[L0, L1, D]) AndNot(v View[L0, L1, D]) Operation[L0, L1, D] {
	return Apply(AndNotOp[L0, L1, D](), s, v)
}
