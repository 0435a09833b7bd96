package hibitset

import "fmt"

// Test-only access to internal state, following the pattern of keeping
// invariant checks next to the representation they inspect.

// CheckInvariants verifies the structural invariants of a set:
//
//  1. Hierarchy exactness: a parent mask bit is set iff the referenced
//     child block is non-zero.
//  2. No dangling: clear parent positions reference the empty sentinel;
//     set positions reference allocated non-sentinel slots, injectively.
//  3. Free-list well-formedness: acyclic chains of released slots with
//     zeroed bodies, disjoint from the live slots, and together with them
//     accounting for every slot in the pool.
//
// Returns nil when all invariants hold.
func CheckInvariants[L0 Block[L0], L1 Block[L1], D Block[D]](s *Set[L0, L1, D]) error {
	liveL1 := map[uint32]uint{}
	liveData := map[uint32]string{}

	w0 := s.level0.mask.Bits()

	for i0 := uint(0); i0 < w0; i0++ {
		l1Idx := s.level0.slot[i0]

		if !s.level0.mask.Test(i0) {
			if l1Idx != emptySlot {
				return fmt.Errorf("level0 position %d: mask clear but slot %d referenced", i0, l1Idx)
			}

			continue
		}

		if l1Idx == emptySlot {
			return fmt.Errorf("level0 position %d: mask set but sentinel referenced", i0)
		}

		if prev, dup := liveL1[l1Idx]; dup {
			return fmt.Errorf("level1 slot %d referenced by positions %d and %d", l1Idx, prev, i0)
		}

		liveL1[l1Idx] = i0

		b1 := s.l1.get(l1Idx)
		if b1.mask.IsZero() {
			return fmt.Errorf("level0 position %d: mask set but level1 block empty", i0)
		}

		w1 := b1.mask.Bits()

		for i1 := uint(0); i1 < w1; i1++ {
			dIdx := b1.slot[i1]

			if !b1.mask.Test(i1) {
				if dIdx != emptySlot {
					return fmt.Errorf("level1 slot %d position %d: mask clear but slot %d referenced", l1Idx, i1, dIdx)
				}

				continue
			}

			if dIdx == emptySlot {
				return fmt.Errorf("level1 slot %d position %d: mask set but sentinel referenced", l1Idx, i1)
			}

			if prev, dup := liveData[dIdx]; dup {
				return fmt.Errorf("data slot %d referenced twice (%s and %d/%d)", dIdx, prev, i0, i1)
			}

			liveData[dIdx] = fmt.Sprintf("%d/%d", i0, i1)

			if s.data.get(dIdx).IsZero() {
				return fmt.Errorf("level1 slot %d position %d: mask set but data block zero", l1Idx, i1)
			}
		}
	}

	if err := checkFreeList(&s.l1, "level1", func(b *indexBlock[L1]) bool {
		if !b.mask.IsZero() {
			return false
		}

		for _, idx := range b.slot {
			if idx != emptySlot {
				return false
			}
		}

		return true
	}, liveL1Keys(liveL1)); err != nil {
		return err
	}

	return checkFreeList(&s.data, "data", func(d *D) bool {
		return (*d).IsZero()
	}, liveDataKeys(liveData))
}

func liveL1Keys(m map[uint32]uint) map[uint32]bool {
	out := make(map[uint32]bool, len(m))
	for k := range m {
		out[k] = true
	}

	return out
}

func liveDataKeys(m map[uint32]string) map[uint32]bool {
	out := make(map[uint32]bool, len(m))
	for k := range m {
		out[k] = true
	}

	return out
}

func checkFreeList[T any](p *pool[T], name string, bodyZero func(*T) bool, live map[uint32]bool) error {
	seen := map[uint32]bool{}

	for i := p.free; i != emptySlot; i = p.slots[i].meta {
		if seen[i] {
			return fmt.Errorf("%s free list: cycle at slot %d", name, i)
		}

		seen[i] = true

		if live[i] {
			return fmt.Errorf("%s free list: slot %d is also live", name, i)
		}

		if !bodyZero(&p.slots[i].body) {
			return fmt.Errorf("%s free list: slot %d body not zero", name, i)
		}
	}

	for i := range live {
		if p.slots[i].meta != i {
			return fmt.Errorf("%s slot %d: live but meta is %d", name, i, p.slots[i].meta)
		}
	}

	if got, want := len(seen)+len(live), len(p.slots)-1; got != want {
		return fmt.Errorf("%s pool: %d free + %d live slots, want %d total", name, len(seen), len(live), want)
	}

	if !bodyZero(&p.slots[emptySlot].body) {
		return fmt.Errorf("%s pool: sentinel body not zero", name)
	}

	return nil
}

// FreeLen exposes the pools' free-list lengths for tests.
func (s *Set[L0, L1, D]) FreeLen() (level1, data int) {
	return s.l1.freeLen(), s.data.freeLen()
}
