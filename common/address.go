package common

import (
	"strings"

	"github.com/pkg/errors"
)

const ZERO_ADDRESS string = "0x0000000000000000000000000000000000000000"

// NormalizeAddress canonicalizes an address string: surrounding whitespace is
// trimmed and the result lowercased. Anything without a 0x prefix is rejected
// with ErrInvalidAddress. No length or checksum validation happens here on
// purpose: cache files produced by earlier versions are keyed by whatever
// prefixed string the caller supplied, and tightening the rule would orphan
// them.
func NormalizeAddress(address string) (string, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if !strings.HasPrefix(address, "0x") {
		return "", errors.Wrapf(ErrInvalidAddress, "%q", address)
	}
	return address, nil
}

// IsZeroAddress reports whether addr is the zero address, ignoring case.
func IsZeroAddress(addr string) bool {
	return strings.ToLower(strings.TrimSpace(addr)) == ZERO_ADDRESS
}
