package lottery

import (
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRuleRegistry_OrderPreservedAcrossDeletes(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	r := NewRuleRegistry(0)

	id25, err := r.AddRandom(Percent(25), 1)
	require.Nil(err)
	id5, err := r.AddRandom(Percent(5), 4)
	require.Nil(err)
	id1, err := r.AddRandom(Percent(1), 10)
	require.Nil(err)
	assert.Equal([]uint64{1, 2, 3}, []uint64{id25, id5, id1})

	require.Nil(r.RemoveRandom(id5))
	id10, err := r.AddRandom(Percent(10), 2)
	require.Nil(err)
	// ids are never reused
	assert.Equal(uint64(4), id10)

	snapshot := r.Snapshot()
	assert.Equal([]uint64{id25, id1, id10}, snapshot.RandomRuleIDs())
	assert.Equal(Percent(25), snapshot.RandomRules[0].Ratio)
	assert.Equal(Percent(1), snapshot.RandomRules[1].Ratio)
	assert.Equal(Percent(10), snapshot.RandomRules[2].Ratio)

	_, ok := r.Random(id5)
	assert.False(ok)
	rule, ok := r.Random(id10)
	assert.True(ok)
	assert.Equal(uint64(2), rule.SendingCount)

	assert.Equal(ErrRuleNotFound, r.RemoveRandom(id5))
}

func TestRuleRegistry_DefinitelyDestinationReleasedOnDelete(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	r := NewRuleRegistry(0)

	dest := ethcommon.HexToAddress("0x0000000000000000000000000000000000000042")
	id, err := r.AddDefinitely(Percent(10), dest)
	require.Nil(err)

	_, err = r.AddDefinitely(Percent(10), dest)
	assert.Equal(ErrDuplicateAddress, err)

	require.Nil(r.RemoveDefinitely(id))
	assert.Empty(r.DefinitelyIDs())

	id2, err := r.AddDefinitely(Percent(10), dest)
	require.Nil(err)
	assert.Equal(uint64(2), id2)
	assert.Equal([]uint64{2}, r.Snapshot().DefinitelyRuleIDs())
}

func TestRuleRegistry_SnapshotIsolated(t *testing.T) {
	assert := assert.New(t)
	r := NewRuleRegistry(0)

	_, err := r.AddRandom(Percent(10), 1)
	assert.Nil(err)
	snapshot := r.Snapshot()
	snapshot.RandomRules[0].Ratio.SetInt64(1)

	rule, _ := r.Random(1)
	assert.Equal(Percent(10), rule.Ratio)

	_, err = r.AddRandom(Percent(10), 1)
	assert.Nil(err)
	assert.Len(snapshot.RandomRules, 1)
}

func TestRuleRegistry_MaxSendingCount(t *testing.T) {
	assert := assert.New(t)

	r := NewRuleRegistry(5)
	assert.Equal(uint64(5), r.MaxSendingCount())
	_, err := r.AddRandom(Percent(1), 5)
	assert.Nil(err)
	_, err = r.AddRandom(Percent(1), 6)
	assert.Equal(ErrSendingCountTooLarge, err)

	assert.Equal(uint64(DefaultMaxSendingCount), NewRuleRegistry(0).MaxSendingCount())
}

func TestRuleRegistry_RatioBudget(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := NewRuleRegistry(0)
		live := new(big.Int)

		n := rapid.IntRange(1, 40).Draw(t, "n")
		for i := 0; i < n; i++ {
			ratio := big.NewInt(rapid.Int64Range(1, 400000000000000000).Draw(t, "ratio"))
			var err error
			var id uint64
			isRandom := rapid.Bool().Draw(t, "random")
			if isRandom {
				id, err = r.AddRandom(ratio, 1)
			} else {
				dest := ethcommon.BigToAddress(big.NewInt(int64(i + 1)))
				id, err = r.AddDefinitely(ratio, dest)
			}

			next := new(big.Int).Add(live, ratio)
			if next.Cmp(RatioScale) >= 0 {
				if err != ErrRatioOverflow {
					t.Fatalf("expected ratio overflow at total %v, got %v", next, err)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				live = next
			}

			// occasionally drop the rule again
			if err == nil && rapid.Bool().Draw(t, "remove") {
				if isRandom {
					err = r.RemoveRandom(id)
				} else {
					err = r.RemoveDefinitely(id)
				}
				if err != nil {
					t.Fatalf("remove failed: %v", err)
				}
				live.Sub(live, ratio)
			}

			if r.TotalRatio().Cmp(live) != 0 {
				t.Fatalf("total ratio %v, expected %v", r.TotalRatio(), live)
			}
			if r.TotalRatio().Cmp(RatioScale) >= 0 {
				t.Fatalf("total ratio %v reached 100%%", r.TotalRatio())
			}
		}
	})
}
