package lottery

//go:generate mockgen -source=token.go -destination=token_mock.go -package=lottery

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Token is an abstraction over the fungible token used to buy tickets and pay out the pool.
// Implementations act on behalf of the lottery account.
type Token interface {
	// TransferFrom moves amount from the from account to the to account using the allowance
	// from granted to the lottery account
	TransferFrom(from ethcommon.Address, to ethcommon.Address, amount *big.Int) error

	// Transfer moves amount held by the lottery account to the to account
	Transfer(to ethcommon.Address, amount *big.Int) error

	// BalanceOf returns the token balance of addr
	BalanceOf(addr ethcommon.Address) (*big.Int, error)
}
