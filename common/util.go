package common

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// HTTPTimeout timeout used by the operator CLI
var HTTPTimeout = 8 * time.Second

// Max request body accepted by the HTTP API
var MaxRequestSize = 1 << 20

// Ratios are fixed point numbers with 18 decimals
const ratioDecimals = 18

var (
	ErrParseBigInt  = fmt.Errorf("failed to parse big integer")
	ErrParseRatio   = fmt.Errorf("failed to parse ratio")
	ErrParseAddress = fmt.Errorf("failed to parse address")

	ratioScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(ratioDecimals), nil)
)

func ParseBigInt(num string) (*big.Int, error) {
	bigNum := new(big.Int)
	_, ok := bigNum.SetString(num, 10)

	if !ok {
		return nil, ErrParseBigInt
	} else {
		return bigNum, nil
	}
}

// ParseRatio parses a ratio given either as a percentage ("25%", "0.5%") or as a raw value
// scaled by 10^18 ("250000000000000000")
func ParseRatio(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "%") {
		r, err := ParseBigInt(s)
		if err != nil || r.Sign() < 0 {
			return nil, ErrParseRatio
		}
		return r, nil
	}

	pct, ok := new(big.Rat).SetString(strings.TrimSuffix(s, "%"))
	if !ok || pct.Sign() < 0 {
		return nil, ErrParseRatio
	}
	scaled := new(big.Rat).Mul(pct, new(big.Rat).SetFrac(ratioScale, big.NewInt(100)))
	if !scaled.IsInt() {
		return nil, errors.Wrapf(ErrParseRatio, "%v has more than %d decimals", s, ratioDecimals-2)
	}
	return new(big.Int).Set(scaled.Num()), nil
}

// FormatRatio renders a scaled ratio as a percentage
func FormatRatio(ratio *big.Int) string {
	if ratio == nil {
		return "0%"
	}
	pct := new(big.Rat).SetFrac(new(big.Int).Mul(ratio, big.NewInt(100)), ratioScale)
	return strings.TrimRight(strings.TrimRight(pct.FloatString(ratioDecimals-2), "0"), ".") + "%"
}

// ParseAddress parses a hex encoded account address
func ParseAddress(s string) (ethcommon.Address, error) {
	if !ethcommon.IsHexAddress(s) {
		return ethcommon.Address{}, errors.Wrapf(ErrParseAddress, "%q", s)
	}
	return ethcommon.HexToAddress(s), nil
}

// Read at most n bytes from an io.Reader
func ReadAtMost(r io.Reader, n int) ([]byte, error) {
	// one extra byte tells whether the input was larger than n
	b, err := io.ReadAll(io.LimitReader(r, int64(n)+1))
	if err == nil && len(b) > n {
		return nil, errors.New("input bigger than max buffer size")
	}
	return b, err
}

// ReadFromFile returns the trimmed content of the file at s. When s is not a readable file
// it is returned as-is together with the error, so flags can hold either a value or a path.
func ReadFromFile(s string) (string, error) {
	info, err := os.Stat(s)
	if err != nil {
		return s, err
	}
	if info.IsDir() {
		return s, fmt.Errorf("supplied path is a directory")
	}
	content, err := os.ReadFile(s)
	if err != nil {
		return s, err
	}
	txt := strings.TrimSpace(string(content))
	if txt == "" {
		return s, fmt.Errorf("supplied file is empty")
	}
	return txt, nil
}
