package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/gnomandev/gnoman/abicache"
	"github.com/gnomandev/gnoman/common"
	"github.com/gnomandev/gnoman/config"
	"github.com/gnomandev/gnoman/db"
	"github.com/gnomandev/gnoman/resolver"
)

var (
	resolveChainID uint64
	resolveHint    string
	resolveJSON    bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <address|name>",
	Short: "Resolve a contract's ABI, proxy aware, through the address-keyed cache",
	Long: `Resolve looks up the ABI for a contract address. The argument can be a raw
0x address or a name from the address book, in which case the name is also
used as the legacy cache hint. The resolved ABI lands in the cache directory
keyed by chain id and address, next to a metadata sidecar.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chainID := resolveChainID
		if chainID == 0 {
			chainID = config.DefaultChainID()
		}

		address := args[0]
		hint := resolveHint
		if _, err := common.NormalizeAddress(address); err != nil {
			// not an address, try the address book
			book, err := db.Load(config.AddressBookPath())
			if err != nil {
				return err
			}
			desc, err := book.GetAddress(args[0])
			if err != nil {
				return err
			}
			address = desc.Address
			if hint == "" {
				hint = desc.Desc
			}
			fmt.Printf("%s (%s)\n", address, common.InfoColor(desc.Desc))
		}

		s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = " resolving abi..."
		s.Start()
		payload, err := resolver.NewDefault().ResolveByAddress(chainID, address, hint)
		s.Stop()
		if err != nil {
			return err
		}

		if resolveJSON {
			out, err := json.MarshalIndent(payload, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		meta, err := abicache.New(config.CacheDir()).ReadMetadata(chainID, address)
		if err != nil {
			return err
		}
		entries, _ := payload["abi"].([]interface{})
		fmt.Printf("Address:  %s (chain %d)\n", meta.Address, meta.ChainID)
		fmt.Printf("Source:   %s\n", common.SourceWithColor(meta.Source))
		if meta.IsProxy {
			fmt.Printf("Proxy:    %s implementation %s\n", common.AlertColor("yes"), meta.Implementation)
		} else {
			fmt.Printf("Proxy:    no\n")
		}
		fmt.Printf("Entries:  %d\n", len(entries))
		fmt.Printf("Digest:   %s\n", common.VerboseColor(meta.ABISha256))
		fmt.Printf("Fetched:  %s\n", meta.FetchedAt)
		return nil
	},
}

func init() {
	resolveCmd.Flags().Uint64VarP(&resolveChainID, "chain-id", "c", 0, "chain id (default from config)")
	resolveCmd.Flags().StringVar(&resolveHint, "hint", "", "legacy name-cache hint")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "print the full abi payload as json")
	rootCmd.AddCommand(resolveCmd)
}
