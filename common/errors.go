package common

import "errors"

var (
	// ErrInvalidAddress is returned when an address string doesn't carry the
	// 0x hex prefix after trimming and lowercasing.
	ErrInvalidAddress = errors.New("invalid address format")

	// ErrUnexpectedPayloadFormat is returned when a cached ABI file is neither
	// a bare entry array nor an object with an "abi" key.
	ErrUnexpectedPayloadFormat = errors.New("unexpected abi payload format")

	// ErrMissingCredential is returned when no etherscan api key can be found
	// in the environment or the keyring.
	ErrMissingCredential = errors.New("no etherscan api key configured")

	// ErrRemoteRequestFailed covers transport level failures talking to the
	// explorer api (connection, timeout, non-2xx).
	ErrRemoteRequestFailed = errors.New("explorer request failed")

	// ErrRemoteProtocolError covers responses the explorer api did return but
	// that don't carry a usable abi (bad status, unparseable result).
	ErrRemoteProtocolError = errors.New("unexpected explorer response")

	// ErrEmptyDescriptor is returned when the explorer hands back an abi that
	// parses to zero entries.
	ErrEmptyDescriptor = errors.New("empty abi from explorer")

	// ErrRepeatedFetchAttempt is returned when a remote fetch for the same
	// (chain id, address) pair was already attempted during this run.
	ErrRepeatedFetchAttempt = errors.New("abi fetch already attempted during this run")
)
