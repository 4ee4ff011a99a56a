package crowdvote

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// NormalizeAddress validates a hex address and returns its canonical
// lowercase form. Case variation in the input never changes the output.
func NormalizeAddress(addr string) (string, error) {
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("malformed address: %q", addr)
	}
	return strings.ToLower(common.HexToAddress(addr).Hex()), nil
}

// Derive computes the vote commitment: keccak256 over the canonical
// colon-delimited concatenation of the five fields. The same inputs
// always produce the same digest, and the digest reveals nothing about
// vote or confidence without the salt.
//
// The colon delimiter plus the fixed numeric rendering of vote,
// confidence and tokenType keeps the concatenation unambiguous.
func Derive(vote VoteChoice, confidence uint8, salt string, voterAddress string, tokenType TokenType) (string, error) {
	if confidence < 1 || confidence > 100 {
		return "", fmt.Errorf("confidence must be within 1-100, got %d", confidence)
	}
	if salt == "" {
		return "", fmt.Errorf("salt must not be empty")
	}
	addr, err := NormalizeAddress(voterAddress)
	if err != nil {
		return "", err
	}

	preimage := strings.Join([]string{
		strconv.FormatUint(uint64(vote), 10),
		strconv.FormatUint(uint64(confidence), 10),
		salt,
		addr,
		strconv.FormatUint(uint64(tokenType), 10),
	}, ":")

	return hexutil.Encode(crypto.Keccak256([]byte(preimage))), nil
}
