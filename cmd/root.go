package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gnomandev/gnoman/config"
	"github.com/gnomandev/gnoman/log"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gnoman",
	Short: "Resolve and cache contract ABIs, track your safe, manage licenses",
	Long: `Gnoman is a command line tool around an address-keyed contract ABI cache.

Given a (chain id, address) pair it resolves the contract's ABI: from its
in-process caches, from the on-disk cache, from legacy name-keyed cache files,
and only as a last resort from an etherscan-alike explorer. Proxy contracts
are detected via the explorer's source code endpoint and the implementation's
ABI is cached under the proxy's own address. Explorer calls are rate limited
and each address is fetched at most once per run.

The explorer api key is read from the ETHERSCAN_API_KEY env var or from the
OS keyring (service name from GNOMAN_KEYRING_SERVICE, default "gnoman").

Gnoman also persists the state of a gnosis safe, polls the explorer for its
transactions, and issues/verifies offline license tokens.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(cfgFile); err != nil {
			return err
		}
		return log.InitLogger(logLevel, "")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default gnoman.yaml in . or ~/.gnoman)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warning or error")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
