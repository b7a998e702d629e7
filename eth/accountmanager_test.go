package eth

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountManager_DefaultsToFirstAccount(t *testing.T) {
	dir := t.TempDir()
	ks := keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP)
	acct, err := ks.NewAccount(testPassphrase)
	require.Nil(t, err)

	am, err := NewAccountManager(ethcommon.Address{}, dir, testChainID)
	require.Nil(t, err)
	assert.Equal(t, acct.Address, am.Account().Address)
}

func TestAccountManager_GetAccountNotFound(t *testing.T) {
	dir := t.TempDir()
	ks := keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP)
	_, err := ks.NewAccount(testPassphrase)
	require.Nil(t, err)

	_, err = getAccount(ethcommon.HexToAddress("0x01"), ks)
	assert.Equal(t, ErrAccountNotFound, err)
}

func TestAccountManager_LockUnlock(t *testing.T) {
	assert := assert.New(t)
	am := newTestAccountManager(t)

	opts, err := am.CreateTransactOpts(100, big.NewInt(5))
	require.Nil(t, err)
	assert.Equal(am.Account().Address, opts.From)
	assert.Equal(uint64(100), opts.GasLimit)

	require.Nil(t, am.Lock())
	_, err = am.CreateTransactOpts(0, nil)
	assert.Equal(ErrLocked, err)

	assert.NotNil(am.Unlock("wrong passphrase"))
	assert.Nil(am.Unlock(testPassphrase))
}

func TestAccountManager_Sign(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	am := newTestAccountManager(t)

	msg := []byte("round 1")
	sig, err := am.Sign(msg)
	require.Nil(err)

	hash := crypto.Keccak256([]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)))
	pub, err := crypto.SigToPub(hash, sig)
	require.Nil(err)
	assert.Equal(am.Account().Address, crypto.PubkeyToAddress(*pub))

	opts, err := am.CreateTransactOpts(21000, big.NewInt(1))
	require.Nil(err)
	tx := types.NewTransaction(0, buyerAddr, big.NewInt(0), 21000, big.NewInt(1), nil)
	signed, err := opts.Signer(am.Account().Address, tx)
	require.Nil(err)
	from, err := types.Sender(types.LatestSignerForChainID(testChainID), signed)
	require.Nil(err)
	assert.Equal(am.Account().Address, from)

	_, err = opts.Signer(buyerAddr, tx)
	assert.EqualError(err, "not authorized to sign this account")
}
