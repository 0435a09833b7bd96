package hibitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool() pool[Block64] {
	return newPool(
		func(*Block64) {},
		func(b *Block64) { *b = 0 },
	)
}

func Test_Pool_Starts_With_Only_The_Sentinel(t *testing.T) {
	t.Parallel()

	p := newTestPool()

	require.Len(t, p.slots, 1)
	assert.Equal(t, emptySlot, p.free)
	assert.True(t, p.get(emptySlot).IsZero())
}

func Test_Pool_Alloc_Grows_When_Free_List_Empty(t *testing.T) {
	t.Parallel()

	p := newTestPool()

	a := p.alloc()
	b := p.alloc()

	require.NotEqual(t, emptySlot, a)
	require.NotEqual(t, emptySlot, b)
	assert.NotEqual(t, a, b)
	assert.Equal(t, uint64(2), p.grown)
	assert.Equal(t, uint64(0), p.reused)

	// Live slots carry their own index in the meta word.
	assert.Equal(t, a, p.slots[a].meta)
	assert.Equal(t, b, p.slots[b].meta)
}

func Test_Pool_Release_Zeroes_Body_And_Links_Slot(t *testing.T) {
	t.Parallel()

	p := newTestPool()

	a := p.alloc()
	*p.get(a) = Block64(0xFF)

	p.release(a)

	assert.True(t, p.slots[a].body.IsZero())
	assert.Equal(t, a, p.free)
	assert.Equal(t, emptySlot, p.slots[a].meta)
	assert.Equal(t, 1, p.freeLen())
}

func Test_Pool_Alloc_Reuses_Free_List_Head_LIFO(t *testing.T) {
	t.Parallel()

	p := newTestPool()

	a := p.alloc()
	b := p.alloc()

	p.release(a)
	p.release(b)
	require.Equal(t, 2, p.freeLen())

	got1 := p.alloc()
	got2 := p.alloc()

	assert.Equal(t, b, got1)
	assert.Equal(t, a, got2)
	assert.Equal(t, 0, p.freeLen())
	assert.Equal(t, uint64(2), p.reused)
	assert.Equal(t, uint64(2), p.grown)
	require.Len(t, p.slots, 3)
}

func Test_Pool_Free_List_Survives_Interleaved_Churn(t *testing.T) {
	t.Parallel()

	p := newTestPool()

	var live []uint32
	for i := 0; i < 64; i++ {
		live = append(live, p.alloc())
	}

	// Release every other slot, then reallocate; the arena must not grow.
	for i := 0; i < len(live); i += 2 {
		p.release(live[i])
	}

	require.Equal(t, 32, p.freeLen())

	grownBefore := p.grown
	for i := 0; i < 32; i++ {
		got := p.alloc()
		assert.True(t, p.get(got).IsZero())
	}

	assert.Equal(t, grownBefore, p.grown)
	assert.Equal(t, 0, p.freeLen())
}
