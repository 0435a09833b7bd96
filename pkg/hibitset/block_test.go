package hibitset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/hibitset/pkg/hibitset"
)

// The block capability is exercised once per width through the same
// generic body; nothing below may branch on a concrete width.

func Test_Block64_Capability(t *testing.T) {
	t.Parallel()
	testBlockCapability[hibitset.Block64](t)
}

func Test_Block128_Capability(t *testing.T) {
	t.Parallel()
	testBlockCapability[hibitset.Block128](t)
}

func Test_Block256_Capability(t *testing.T) {
	t.Parallel()
	testBlockCapability[hibitset.Block256](t)
}

func testBlockCapability[B hibitset.Block[B]](t *testing.T) {
	t.Helper()

	var zero B

	w := zero.Bits()
	require.Equal(t, w, zero.WordCount()*64)

	t.Run("zero value is the empty block", func(t *testing.T) {
		t.Parallel()

		assert.True(t, zero.IsZero())
		assert.Equal(t, uint(0), zero.OnesCount())
		assert.Equal(t, w, zero.TrailingZeros())
	})

	t.Run("set test clear per position", func(t *testing.T) {
		t.Parallel()

		for _, i := range samplePositions(w) {
			b := zero.WithBit(i)

			assert.True(t, b.Test(i))
			assert.False(t, b.IsZero())
			assert.Equal(t, uint(1), b.OnesCount())
			assert.Equal(t, i, b.TrailingZeros())

			b = b.WithoutBit(i)
			assert.Equal(t, zero, b)
		}
	})

	t.Run("word view matches bit positions", func(t *testing.T) {
		t.Parallel()

		for _, i := range samplePositions(w) {
			b := zero.WithBit(i)

			assert.Equal(t, uint64(1)<<(i%64), b.Word(i/64))
		}
	})

	t.Run("bitwise algebra", func(t *testing.T) {
		t.Parallel()

		lo := samplePositions(w)[0]
		hi := samplePositions(w)[len(samplePositions(w))-1]

		a := zero.WithBit(lo).WithBit(hi)
		b := zero.WithBit(hi)

		assert.Equal(t, b, a.And(b))
		assert.Equal(t, a, a.Or(b))
		assert.Equal(t, zero.WithBit(lo), a.Xor(b))
		assert.Equal(t, zero.WithBit(lo), a.AndNot(b))
		assert.Equal(t, zero, b.AndNot(a))

		full := zero.Not()
		assert.Equal(t, w, full.OnesCount())
		assert.Equal(t, zero, full.Not())
		assert.Equal(t, a, full.And(a))
	})

	t.Run("without bits below", func(t *testing.T) {
		t.Parallel()

		var all B
		for _, i := range samplePositions(w) {
			all = all.WithBit(i)
		}

		for _, cut := range samplePositions(w) {
			got := all.WithoutBitsBelow(cut)

			for _, i := range samplePositions(w) {
				if i < cut {
					assert.False(t, got.Test(i), "bit %d should be cleared by cut %d", i, cut)
				} else {
					assert.True(t, got.Test(i), "bit %d should survive cut %d", i, cut)
				}
			}
		}

		assert.Equal(t, all, all.WithoutBitsBelow(0))
	})

	t.Run("trailing zeros scans words", func(t *testing.T) {
		t.Parallel()

		for _, i := range samplePositions(w) {
			b := zero.WithBit(i).WithBit(w - 1)

			assert.Equal(t, i, b.TrailingZeros())
		}
	})
}

// samplePositions picks positions spread over every backing word of a
// width, including both edges.
func samplePositions(w uint) []uint {
	ps := []uint{0, 1, 7}
	for base := uint(0); base < w; base += 64 {
		ps = append(ps, base+13, base+63)
	}

	ps = append(ps, w-1)

	out := ps[:0]
	seen := map[uint]bool{}

	for _, p := range ps {
		if p < w && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	return out
}
