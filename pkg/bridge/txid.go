package bridge

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/speedrun-hq/speedrun-bridge/pkg/chains"
)

var evmTxHashPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

// solanaSignatureLength is the length of an ed25519 signature
const solanaSignatureLength = 64

// NormalizeTxID validates a source transaction id and returns its canonical form:
// lowercase 0x prefixed hex for EVM chains and base58 for Solana
func NormalizeTxID(category chains.Category, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: empty", ErrMalformedTransactionID)
	}

	switch category {
	case chains.CategoryEVM:
		normalized := strings.ToLower(id)
		if !strings.HasPrefix(normalized, "0x") {
			normalized = "0x" + normalized
		}
		if !evmTxHashPattern.MatchString(normalized) {
			return "", fmt.Errorf("%w: %s is not a 32 byte hex hash", ErrMalformedTransactionID, id)
		}
		return normalized, nil
	case chains.CategorySolana:
		raw, err := base58.Decode(id)
		if err != nil || len(raw) != solanaSignatureLength {
			return "", fmt.Errorf("%w: %s is not a base58 transaction signature", ErrMalformedTransactionID, id)
		}
		return base58.Encode(raw), nil
	default:
		return "", fmt.Errorf("%w: %s", chains.ErrUnknownCategory, category)
	}
}
