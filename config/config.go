// Package config holds the runtime settings of gnoman. Settings come from an
// optional gnoman.yaml, GNOMAN_* env vars and the legacy ETHERSCAN_* env vars
// the python tooling used, in that order of preference.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DEFAULT_ETHERSCAN_BASE_URL string = "https://api.etherscan.io/api"
	DEFAULT_CHAIN_ID           uint64 = 1
)

// Init loads the configuration. cfgFile may be empty, in which case gnoman.yaml
// is looked up in the working directory and ~/.gnoman, and its absence is fine.
func Init(cfgFile string) error {
	viper.SetDefault("cache_dir", "abi")
	viper.SetDefault("base_url", DEFAULT_ETHERSCAN_BASE_URL)
	viper.SetDefault("chain_id", DEFAULT_CHAIN_ID)
	viper.SetDefault("rate_limit.max_calls", 3)
	viper.SetDefault("rate_limit.window", time.Second)
	viper.SetDefault("poll_interval", 30*time.Second)
	viper.SetDefault("safe_state_path", "state/gnosis_safe_state.json")
	viper.SetDefault("tx_log_path", "logs/safe_tx_log.json")
	viper.SetDefault("address_book_path", "addresses.json")

	viper.SetEnvPrefix("GNOMAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// Legacy names kept for compatibility with the python tooling.
	viper.BindEnv("base_url", "GNOMAN_BASE_URL", "ETHERSCAN_BASE_URL") // nolint: errcheck
	viper.BindEnv("chain_id", "GNOMAN_CHAIN_ID", "ETHERSCAN_CHAIN_ID") // nolint: errcheck

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		return errors.Wrapf(viper.ReadInConfig(), "reading config file %s", cfgFile)
	}

	viper.SetConfigName("gnoman")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.gnoman")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "reading config file")
	}
	return nil
}

func CacheDir() string {
	return viper.GetString("cache_dir")
}

func BaseURL() string {
	return viper.GetString("base_url")
}

func DefaultChainID() uint64 {
	return viper.GetUint64("chain_id")
}

func RateLimitMaxCalls() int {
	return viper.GetInt("rate_limit.max_calls")
}

func RateLimitWindow() time.Duration {
	return viper.GetDuration("rate_limit.window")
}

func PollInterval() time.Duration {
	return viper.GetDuration("poll_interval")
}

func SafeStatePath() string {
	return viper.GetString("safe_state_path")
}

func TxLogPath() string {
	return viper.GetString("tx_log_path")
}

func AddressBookPath() string {
	return viper.GetString("address_book_path")
}
