package starter

import (
	"bytes"
	"flag"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/livepeer/go-lottery/lottery"
	"github.com/livepeer/go-lottery/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ownerHex = "0x00000000000000000000000000000000000000a1"

func parseConfig(t *testing.T, args ...string) LotteryConfig {
	fs := flag.NewFlagSet("lottery", flag.ContinueOnError)
	cfg := NewLotteryConfig(fs)
	require.Nil(t, fs.Parse(args))
	return cfg
}

func TestNewLotteryConfig_Defaults(t *testing.T) {
	assert := assert.New(t)
	cfg := parseConfig(t)
	def := DefaultLotteryConfig()

	assert.Equal(*def.CliAddr, *cfg.CliAddr)
	assert.Equal(OracleFixed, *cfg.Oracle)
	assert.Equal(int64(86400), *cfg.Cycle)
	assert.Equal(uint64(lottery.DefaultMaxSendingCount), *cfg.MaxSendingCount)
	assert.False(*cfg.Keeper)
}

func TestPrintConfig(t *testing.T) {
	assert := assert.New(t)
	cfg := parseConfig(t, "-name", "weekly", "-ethPassword", "secret", "-kafkaPassword", "hunter2", "-keeper")

	var buf bytes.Buffer
	cfg.PrintConfig(&buf)
	out := buf.String()

	assert.Contains(out, "Name")
	assert.Contains(out, "weekly")
	assert.Contains(out, "Keeper")
	assert.Contains(out, "EthPassword")
	assert.NotContains(out, "secret")
	assert.NotContains(out, "hunter2")
	// unchanged settings are not printed
	assert.NotContains(out, "CliAddr")
}

func TestSetupLedger(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	_, err := setupToken(parseConfig(t))
	assert.EqualError(err, "-owner is required with the off-chain token")

	ts, err := setupToken(parseConfig(t, "-owner", ownerHex, "-name", "weekly"))
	require.Nil(err)
	defer ts.close()
	assert.Equal(ethcommon.HexToAddress(ownerHex), ts.owner)
	assert.Equal(defaultPoolAccount("weekly"), ts.account)
	assert.NotEqual(defaultPoolAccount("daily"), ts.account)
	require.NotNil(ts.ledger)

	ts, err = setupToken(parseConfig(t, "-owner", ownerHex, "-account", "0x00000000000000000000000000000000000000ff"))
	require.Nil(err)
	assert.Equal(ethcommon.HexToAddress("0xff"), ts.account)

	_, err = setupToken(parseConfig(t, "-owner", ownerHex, "-account", "nope"))
	assert.NotNil(err)
}

func TestSetupERC20_RequiresTokenAddr(t *testing.T) {
	_, err := setupToken(parseConfig(t, "-ethUrl", "http://127.0.0.1:1"))
	assert.EqualError(t, err, "-tokenAddr is required with -ethUrl")
}

func TestLotteryConfig(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ts := &tokenSetup{owner: ethcommon.HexToAddress(ownerHex), account: defaultPoolAccount("lottery")}

	cfg := parseConfig(t, "-ticketPrice", "500", "-sellerCommission", "2.5%", "-cycle", "3600", "-onlyOwner")
	lc, err := lotteryConfig(cfg, ts)
	require.Nil(err)
	assert.Equal(big.NewInt(500), lc.TicketPrice)
	assert.Equal(new(big.Int).Div(lottery.Percent(5), big.NewInt(2)), lc.SellerCommissionRatio)
	assert.Equal(int64(3600), lc.Cycle)
	assert.True(lc.IsOnlyOwner)
	assert.Equal(ts.owner, lc.Owner)
	assert.Equal(ts.account, lc.Account)

	_, err = lotteryConfig(parseConfig(t, "-ticketPrice", "1e18"), ts)
	assert.Contains(err.Error(), "invalid -ticketPrice")
	_, err = lotteryConfig(parseConfig(t, "-sellerCommission", "-1%"), ts)
	assert.Contains(err.Error(), "invalid -sellerCommission")
}

func TestNewOracle(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	orc, err := newOracle(parseConfig(t, "-oracleValue", "42"))
	require.Nil(err)
	fixed, ok := orc.(*oracle.Fixed)
	require.True(ok)
	assert.Equal(big.NewInt(42), fixed.Value())

	_, err = newOracle(parseConfig(t, "-oracleValue", "0"))
	assert.NotNil(err)

	_, err = newOracle(parseConfig(t, "-oracle", "chainlink"))
	assert.EqualError(err, `unknown oracle "chainlink", expected fixed or local`)

	key, err := crypto.GenerateKey()
	require.Nil(err)
	keyFile := filepath.Join(t.TempDir(), "oracle.key")
	require.Nil(os.WriteFile(keyFile, []byte(ethcommon.Bytes2Hex(crypto.FromECDSA(key))+"\n"), 0600))

	orc, err = newOracle(parseConfig(t, "-oracle", "local", "-oracleKey", keyFile))
	require.Nil(err)
	local, ok := orc.(*oracle.Local)
	require.True(ok)
	assert.Equal(crypto.PubkeyToAddress(key.PublicKey), local.Address())

	orc, err = newOracle(parseConfig(t, "-oracle", "local", "-oracleKey", "0x"+ethcommon.Bytes2Hex(crypto.FromECDSA(key))))
	require.Nil(err)
	assert.Equal(crypto.PubkeyToAddress(key.PublicKey), orc.(*oracle.Local).Address())

	_, err = newOracle(parseConfig(t, "-oracle", "local", "-oracleKey", "zz"))
	assert.Contains(err.Error(), "invalid -oracleKey")
}
