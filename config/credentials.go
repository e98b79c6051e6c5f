package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"

	"github.com/gnomandev/gnoman/common"
)

const (
	ETHERSCAN_API_KEY_VAR   string = "ETHERSCAN_API_KEY"
	KEYRING_SERVICE_VAR     string = "GNOMAN_KEYRING_SERVICE"
	DEFAULT_KEYRING_SERVICE string = "gnoman"
)

// EtherscanAPIKey returns the explorer api key from the ETHERSCAN_API_KEY env
// var, falling back to the OS keyring (service name taken from
// GNOMAN_KEYRING_SERVICE, default "gnoman"). Absence of a key in both places
// is reported as common.ErrMissingCredential.
func EtherscanAPIKey() (string, error) {
	if key := os.Getenv(ETHERSCAN_API_KEY_VAR); key != "" {
		return key, nil
	}
	service := os.Getenv(KEYRING_SERVICE_VAR)
	if service == "" {
		service = DEFAULT_KEYRING_SERVICE
	}
	key, err := keyring.Get(service, ETHERSCAN_API_KEY_VAR)
	if err != nil || key == "" {
		return "", errors.Wrapf(common.ErrMissingCredential, "keyring service %q", service)
	}
	return key, nil
}
