package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalid indicates the supplied wallet is not a hex address.
var ErrInvalid = errors.New("wallet: invalid address")

// Normalize validates a wallet address and returns its EIP-55 checksum form.
// All storage and lookups go through this so the wallet key is canonical
// regardless of the casing clients send.
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalid)
	}
	if !common.IsHexAddress(trimmed) {
		return "", fmt.Errorf("%w: %q", ErrInvalid, trimmed)
	}
	return common.HexToAddress(trimmed).Hex(), nil
}
