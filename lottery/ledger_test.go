package lottery

import (
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestLedger_Append(t *testing.T) {
	assert := assert.New(t)
	l := newLedger()

	assert.Equal(uint64(0), l.ticketLastID())
	assert.Equal(uint64(0), l.ticketLastNumber())
	assert.Nil(l.ticket(0))
	assert.Nil(l.ticket(1))

	t1 := l.append(buyer1, seller, 3, big.NewInt(3), big.NewInt(297), 10)
	t2 := l.append(buyer2, partner, 2, big.NewInt(2), big.NewInt(198), 11)
	t3 := l.append(buyer1, seller, 5, big.NewInt(5), big.NewInt(495), 12)

	assert.Equal(uint64(1), t1.ID)
	assert.Equal(uint64(3), t1.LastNumber)
	assert.Equal(uint64(1), t1.FirstNumber())
	assert.Equal(uint64(5), t2.LastNumber)
	assert.Equal(uint64(4), t2.FirstNumber())
	assert.Equal(uint64(10), t3.LastNumber)
	assert.Equal(uint64(6), t3.FirstNumber())
	assert.Equal(int64(12), t3.ReceivedAt)

	assert.Equal(uint64(3), l.ticketLastID())
	assert.Equal(uint64(10), l.ticketLastNumber())
	assert.Equal([]uint64{1, 3}, l.ticketIDs[buyer1])
	assert.Equal(uint64(2), l.participantCount)

	assert.Equal([]ethcommon.Address{seller, partner}, l.sellers)
	assert.Equal(big.NewInt(8), l.sellerAmount(seller))
	assert.Equal(big.NewInt(2), l.sellerAmount(partner))
	assert.True(l.isSeller(partner))
	assert.False(l.isSeller(buyer1))
	assert.Equal(big.NewInt(990), l.totalSupply)

	// returned amounts are copies
	l.sellerAmount(seller).SetInt64(0)
	assert.Equal(big.NewInt(8), l.sellerAmount(seller))
}

func TestLedger_TicketIDByNumber(t *testing.T) {
	assert := assert.New(t)
	l := newLedger()
	l.append(buyer1, seller, 3, new(big.Int), new(big.Int), 0)
	l.append(buyer2, seller, 1, new(big.Int), new(big.Int), 0)
	l.append(buyer3, seller, 4, new(big.Int), new(big.Int), 0)

	expected := map[uint64]uint64{0: 0, 1: 1, 2: 1, 3: 1, 4: 2, 5: 3, 8: 3, 9: 0, 100: 0}
	for number, id := range expected {
		assert.Equal(id, l.ticketIDByNumber(number), "number %d", number)
	}
}

func TestLedger_Transfer(t *testing.T) {
	assert := assert.New(t)
	l := newLedger()
	l.append(buyer1, seller, 1, new(big.Int), new(big.Int), 0)
	l.append(buyer1, seller, 1, new(big.Int), new(big.Int), 0)
	l.append(buyer1, seller, 1, new(big.Int), new(big.Int), 0)

	id, err := l.transfer(buyer1, 1, buyer2)
	assert.Nil(err)
	assert.Equal(uint64(2), id)
	assert.Equal([]uint64{1, 3}, l.ticketIDs[buyer1])
	assert.Equal([]uint64{2}, l.ticketIDs[buyer2])
	assert.Equal(buyer2, l.ticket(2).Owner)
	assert.Equal(uint64(2), l.participantCount)

	// the previous owner stays a participant
	_, err = l.transfer(buyer1, 0, buyer2)
	assert.Nil(err)
	_, err = l.transfer(buyer1, 0, buyer2)
	assert.Nil(err)
	assert.Empty(l.ticketIDs[buyer1])
	assert.True(l.participated[buyer1])
	assert.Equal([]uint64{2, 1, 3}, l.ticketIDs[buyer2])

	_, err = l.transfer(buyer1, 0, buyer2)
	assert.Equal(ErrIndexOutOfBounds, err)
	_, err = l.transfer(buyer3, 0, buyer2)
	assert.Equal(ErrIndexOutOfBounds, err)
}

// Every number in [1, ticketLastNumber] belongs to exactly one ticket and the binary search
// finds it
func TestLedger_RangesPartitionNumbers(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := newLedger()
		counts := rapid.SliceOfN(rapid.Uint64Range(1, 50), 1, 60).Draw(t, "counts")

		var total uint64
		for _, c := range counts {
			l.append(buyer1, seller, c, new(big.Int), new(big.Int), 0)
			total += c
		}
		if l.ticketLastNumber() != total {
			t.Fatalf("ticketLastNumber %d, expected %d", l.ticketLastNumber(), total)
		}

		var owner uint64 = 1
		for number := uint64(1); number <= total; number++ {
			for number > l.ticket(owner).LastNumber {
				owner++
			}
			got := l.ticketIDByNumber(number)
			if got != owner {
				t.Fatalf("number %d resolved to ticket %d, expected %d", number, got, owner)
			}
			tk := l.ticket(got)
			if number < tk.FirstNumber() || number > tk.LastNumber {
				t.Fatalf("number %d outside ticket %d range [%d, %d]", number, got, tk.FirstNumber(), tk.LastNumber)
			}
		}
		if l.ticketIDByNumber(total+1) != 0 {
			t.Fatalf("number past the end resolved to a ticket")
		}
	})
}
