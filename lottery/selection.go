package lottery

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Byte size of a Solidity uint256
const uint256Size = 32

// DrawSeed derives the seed of one draw from the round's random value:
// keccak256(randomValue | ruleID | drawIndex), each field left padded to a uint256 word
func DrawSeed(randomValue *big.Int, ruleID, drawIndex uint64) *big.Int {
	buf := make([]byte, 0, 3*uint256Size)
	buf = append(buf, ethcommon.LeftPadBytes(randomValue.Bytes(), uint256Size)...)
	buf = append(buf, ethcommon.LeftPadBytes(new(big.Int).SetUint64(ruleID).Bytes(), uint256Size)...)
	buf = append(buf, ethcommon.LeftPadBytes(new(big.Int).SetUint64(drawIndex).Bytes(), uint256Size)...)

	return crypto.Keccak256Hash(buf).Big()
}

// WinningTicketNumber maps a draw onto a ticket number in [1, ticketLastNumber].
// It returns 0 when no tickets were sold.
func WinningTicketNumber(randomValue *big.Int, ruleID, drawIndex, ticketLastNumber uint64) uint64 {
	if ticketLastNumber == 0 {
		return 0
	}
	n := new(big.Int).Mod(DrawSeed(randomValue, ruleID, drawIndex), new(big.Int).SetUint64(ticketLastNumber))
	return n.Uint64() + 1
}
