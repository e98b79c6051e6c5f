package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnomandev/gnoman/common"
	"github.com/gnomandev/gnoman/config"
	"github.com/gnomandev/gnoman/msig"
)

var (
	safeOwners    []string
	safeThreshold int
)

var safeCmd = &cobra.Command{
	Use:   "safe",
	Short: "Inspect and import the persisted gnosis safe state",
}

var safeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted safe state",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := msig.Load(config.SafeStatePath())
		if err != nil {
			return err
		}
		fmt.Printf("Safe:      %s\n", common.InfoColor(state.Address))
		fmt.Printf("Threshold: %d of %d\n", state.Threshold, len(state.Owners))
		for i, owner := range state.Owners {
			fmt.Printf("Owner %d:   %s\n", i+1, owner)
		}
		return nil
	},
}

var safeImportCmd = &cobra.Command{
	Use:   "import <address>",
	Short: "Persist a safe's address, owners and threshold",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		address, err := common.NormalizeAddress(args[0])
		if err != nil {
			return err
		}
		err = msig.Persist(config.SafeStatePath(), msig.SafeState{
			Address:   address,
			Owners:    safeOwners,
			Threshold: safeThreshold,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Safe state persisted to %s\n", config.SafeStatePath())
		return nil
	},
}

func init() {
	safeImportCmd.Flags().StringSliceVar(&safeOwners, "owner", nil, "owner address, repeatable (at least 3 required)")
	safeImportCmd.Flags().IntVar(&safeThreshold, "threshold", 0, "confirmation threshold")
	safeCmd.AddCommand(safeShowCmd)
	safeCmd.AddCommand(safeImportCmd)
	rootCmd.AddCommand(safeCmd)
}
