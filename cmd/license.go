package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/gnomandev/gnoman/common"
	"github.com/gnomandev/gnoman/licenses"
)

var (
	licenseKeyDir  string
	licensePrivKey string
	licensePubKey  string
	licenseID      string
	licenseProduct string
	licenseVersion string
	licenseDays    int
)

var licenseCmd = &cobra.Command{
	Use:   "license",
	Short: "Issue and verify offline license tokens",
}

var licenseKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a license signing keypair",
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, priv, err := licenses.GenerateKeypair()
		if err != nil {
			return err
		}
		privPEM, err := licenses.EncodePrivateKeyPEM(priv)
		if err != nil {
			return err
		}
		pubPEM, err := licenses.EncodePublicKeyPEM(pub)
		if err != nil {
			return err
		}
		if err = os.MkdirAll(licenseKeyDir, 0o700); err != nil {
			return err
		}
		privPath := filepath.Join(licenseKeyDir, "license_private.pem")
		pubPath := filepath.Join(licenseKeyDir, "license_public.pem")
		if err = os.WriteFile(privPath, privPEM, 0o600); err != nil {
			return err
		}
		if err = os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
			return err
		}
		fmt.Printf("Private key written to %s\n", privPath)
		fmt.Printf("Public key written to %s\n", pubPath)
		return nil
	},
}

var licenseIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a signed license token",
	RunE: func(cmd *cobra.Command, args []string) error {
		keyData, err := os.ReadFile(licensePrivKey)
		if err != nil {
			return err
		}
		priv, err := licenses.ParsePrivateKeyPEM(keyData)
		if err != nil {
			return err
		}
		token, err := licenses.Issue(licenseID, licenseProduct, licenseVersion, licenseDays, priv)
		if err != nil {
			return err
		}
		fmt.Println("RAW TOKEN:")
		fmt.Println(token)
		fmt.Println()
		fmt.Println("HUMAN-FRIENDLY:")
		fmt.Println(licenses.HumanFormat(token))
		return nil
	},
}

var licenseVerifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Verify a license token (raw or human-friendly form)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyData, err := os.ReadFile(licensePubKey)
		if err != nil {
			return err
		}
		pub, err := licenses.ParsePublicKeyPEM(keyData)
		if err != nil {
			return err
		}
		claims, err := licenses.Verify(args[0], pub, licenseProduct, licenseVersion, time.Now())
		if err != nil {
			fmt.Println(common.AlertColor("INVALID"))
			return err
		}
		fmt.Println(common.InfoColor("VALID"))
		fmt.Printf("Licensee: %s\n", claims.ID)
		fmt.Printf("Product:  %s %s\n", claims.Product, claims.Version)
		fmt.Printf("Expires:  %s\n", claims.ExpiresAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	licenseKeygenCmd.Flags().StringVar(&licenseKeyDir, "out", ".", "directory to write the keypair to")

	licenseIssueCmd.Flags().StringVar(&licensePrivKey, "priv", "license_private.pem", "path to the signing private key")
	licenseIssueCmd.Flags().StringVar(&licenseID, "id", "", "license identifier")
	licenseIssueCmd.Flags().IntVar(&licenseDays, "days", licenses.DEFAULT_DAYS, "days until expiry")
	licenseIssueCmd.MarkFlagRequired("id") // nolint: errcheck

	licenseVerifyCmd.Flags().StringVar(&licensePubKey, "pub", "license_public.pem", "path to the verification public key")

	licenseCmd.PersistentFlags().StringVar(&licenseProduct, "product", licenses.DEFAULT_PRODUCT, "product identifier")
	licenseCmd.PersistentFlags().StringVar(&licenseVersion, "version", licenses.DEFAULT_VERSION, "product version")

	licenseCmd.AddCommand(licenseKeygenCmd)
	licenseCmd.AddCommand(licenseIssueCmd)
	licenseCmd.AddCommand(licenseVerifyCmd)
	rootCmd.AddCommand(licenseCmd)
}
