package hibitset_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/hibitset/pkg/hibitset"
)

// This file contains the core state-model property tests.
//
// We apply identical operation sequences to:
//  1. a deliberately-simple map-based model, and
//  2. the real hierarchical container,
// and assert that operation results and observable state match after every
// step. The structural invariants (hierarchy exactness, slot injectivity,
// free-list shape) are re-checked along the way.

type modelOp struct {
	name string // insert | remove | clear | contains
	x    uint
}

func (o modelOp) String() string {
	if o.name == "clear" {
		return "Clear()"
	}

	return fmt.Sprintf("%s(%d)", o.name, o.x)
}

func randModelOp(rng *rand.Rand, maxIndex uint) modelOp {
	x := uint(rng.Intn(int(maxIndex + 1)))

	switch rng.Intn(10) {
	case 0, 1, 2, 3:
		return modelOp{name: "insert", x: x}
	case 4, 5, 6:
		return modelOp{name: "remove", x: x}
	case 7, 8:
		return modelOp{name: "contains", x: x}
	default:
		return modelOp{name: "clear"}
	}
}

func Test_Set_Matches_Model_Property(t *testing.T) {
	t.Parallel()

	seedCount := 30
	opsPerSeed := 300

	for i := 0; i < seedCount; i++ {
		seed := int64(i + 1)

		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			t.Parallel()

			rng := rand.New(rand.NewSource(seed))

			s := hibitset.New64()
			model := map[uint]bool{}

			// Bias towards a small dense range so blocks fill, empty, and
			// get reallocated; occasionally jump across the universe.
			for step := 0; step < opsPerSeed; step++ {
				limit := uint(2_000)
				if rng.Intn(10) == 0 {
					limit = s.MaxIndex()
				}

				op := randModelOp(rng, limit)

				switch op.name {
				case "insert":
					want := !model[op.x]
					model[op.x] = true

					require.Equal(t, want, s.Insert(op.x), "step %d: %s", step, op)
				case "remove":
					want := model[op.x]
					delete(model, op.x)

					require.Equal(t, want, s.Remove(op.x), "step %d: %s", step, op)
				case "contains":
					require.Equal(t, model[op.x], s.Contains(op.x), "step %d: %s", step, op)
				case "clear":
					model = map[uint]bool{}

					s.Clear()
				}

				require.NoError(t, hibitset.CheckInvariants(s), "step %d: %s", step, op)
			}

			// Observable state equivalence at the end of the run.
			require.Equal(t, uint(len(model)), s.Len())
			require.Equal(t, len(model) == 0, s.IsEmpty())

			if diff := cmp.Diff(sortedKeys(model), collect64(s)); diff != "" {
				t.Fatalf("iteration disagrees with model (-want +got):\n%s", diff)
			}

			for x := range model {
				require.True(t, s.Contains(x))
			}

			// Round-trip: rebuilding from iteration reproduces the set.
			rebuilt := hibitset.From[hibitset.Block64, hibitset.Block64, hibitset.Block64](s.All())
			require.True(t, s.Equal(rebuilt))
		})
	}
}

func Test_Algebra_Matches_Model_Property(t *testing.T) {
	t.Parallel()

	for i := 0; i < 15; i++ {
		seed := int64(i + 1)

		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			t.Parallel()

			rng := rand.New(rand.NewSource(seed))

			buildPair := func() (*hibitset.Set64, map[uint]bool) {
				s := hibitset.New64()
				m := map[uint]bool{}

				n := rng.Intn(300)
				for j := 0; j < n; j++ {
					x := uint(rng.Intn(3_000))
					s.Insert(x)
					m[x] = true
				}

				return s, m
			}

			a, refA := buildPair()
			b, refB := buildPair()

			for _, name := range []string{"and", "or", "xor", "andnot"} {
				var got []uint

				switch name {
				case "and":
					got = collect64(a.And(b))
				case "or":
					got = collect64(a.Or(b))
				case "xor":
					got = collect64(a.Xor(b))
				case "andnot":
					got = collect64(a.AndNot(b))
				}

				if diff := cmp.Diff(refOp(name, refA, refB), got); diff != "" {
					t.Fatalf("%s mismatch (-want +got):\n%s", name, diff)
				}
			}

			// Equality consistency across trust levels: comparing through
			// untrusted wrappers must agree with trusted comparison.
			aCopy := a.Clone()
			wrappedA := a.And(a)
			wrappedCopy := aCopy.And(aCopy)

			require.True(t, a.Equal(aCopy))
			require.True(t, wrappedA.Equal(wrappedCopy))
			require.True(t, a.Equal(wrappedCopy))
			require.True(t, wrappedA.Equal(aCopy))
		})
	}
}
