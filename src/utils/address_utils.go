// backend/src/utils/address_utils.go
package utils

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// CanonicalAddress normalizes a ledger address to its EIP-55
// checksummed form. Addresses are canonicalized exactly once, at the
// system boundary, before every store write and every comparison.
func CanonicalAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid ledger address %q", address)
	}
	return common.HexToAddress(address).Hex(), nil
}

// CanonicalAddressOrRaw canonicalizes when possible and otherwise
// falls back to the raw input. Used where a decoded event value must
// be persisted even if it defies canonicalization.
func CanonicalAddressOrRaw(address string) string {
	canonical, err := CanonicalAddress(address)
	if err != nil {
		return address
	}
	return canonical
}

// SameAddress compares two addresses ignoring checksum casing.
func SameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}
